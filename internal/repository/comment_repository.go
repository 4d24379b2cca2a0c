package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/titulapp/capstone-api/internal/models"
)

// CommentRepository persists deliverable comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a new comment row.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.Type == "" {
		comment.Type = models.CommentGeneral
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO comments (id, deliverable_id, author_id, type, body, created_at, edited_at)
	VALUES (:id, :deliverable_id, :author_id, :type, :body, :created_at, :edited_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetByID fetches a comment by identifier.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	const query = `SELECT id, deliverable_id, author_id, type, body, created_at, edited_at
	FROM comments WHERE id = $1`
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// List returns comments matching the filter, oldest first.
func (r *CommentRepository) List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(`SELECT id, deliverable_id, author_id, type, body, created_at, edited_at FROM comments`)

	conditions := make([]string, 0, 3)
	if filter.DeliverableID != "" {
		args = append(args, filter.DeliverableID)
		conditions = append(conditions, fmt.Sprintf("deliverable_id = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// UpdateBody edits a comment. Only the author may edit, enforced here by the
// author guard in the WHERE clause.
func (r *CommentRepository) UpdateBody(ctx context.Context, id, authorID, body string, editedAt time.Time) error {
	const query = `UPDATE comments SET body = $3, edited_at = $4 WHERE id = $1 AND author_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, authorID, body, editedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check comment update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a comment authored by the given user.
func (r *CommentRepository) Delete(ctx context.Context, id, authorID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND author_id = $2`, id, authorID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check comment delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
