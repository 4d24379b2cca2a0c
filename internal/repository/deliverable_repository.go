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

// DeliverableRepository persists deliverable rows.
type DeliverableRepository struct {
	db *sqlx.DB
}

// NewDeliverableRepository constructs the repository.
func NewDeliverableRepository(db *sqlx.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

const deliverableColumns = `id, title, description, project_id, phase_id, area_id, state,
       assignee_id, review_notes, due_date, submitted_at, version, created_at, updated_at`

// Create inserts a new deliverable row. The area falls back to the owning
// project's area when left empty by the caller.
func (r *DeliverableRepository) Create(ctx context.Context, d *models.Deliverable) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.State == "" {
		d.State = models.StatePending
	}
	if d.Version == 0 {
		d.Version = 1
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	const query = `INSERT INTO deliverables
	(id, title, description, project_id, phase_id, area_id, state, assignee_id, review_notes, due_date, submitted_at, version, created_at, updated_at)
	VALUES (:id, :title, :description, :project_id, :phase_id,
	        COALESCE(NULLIF(:area_id, ''), (SELECT area_id FROM projects WHERE id = :project_id)),
	        :state, :assignee_id, :review_notes, :due_date, :submitted_at, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create deliverable: %w", err)
	}
	return nil
}

// GetByID fetches a deliverable by identifier.
func (r *DeliverableRepository) GetByID(ctx context.Context, id string) (*models.Deliverable, error) {
	query := `SELECT ` + deliverableColumns + ` FROM deliverables WHERE id = $1`
	var d models.Deliverable
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns deliverables matching the filter (most recently updated first).
func (r *DeliverableRepository) List(ctx context.Context, filter models.DeliverableFilter) ([]models.Deliverable, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + deliverableColumns + ` FROM deliverables`)

	conditions := make([]string, 0, 4)
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.PhaseID != "" {
		args = append(args, filter.PhaseID)
		conditions = append(conditions, fmt.Sprintf("phase_id = $%d", len(args)))
	}
	if filter.AreaID != "" {
		args = append(args, filter.AreaID)
		conditions = append(conditions, fmt.Sprintf("area_id = $%d", len(args)))
	}
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", len(args)))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY updated_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var rows []models.Deliverable
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	return rows, nil
}

// UpdateStateParams groups the columns written by a workflow transition.
// FromState and ExpectedVersion guard the write: if the row moved on since
// the caller read it, zero rows match and sql.ErrNoRows is returned.
type UpdateStateParams struct {
	ID              string
	FromState       models.DeliverableState
	ExpectedVersion int
	ToState         models.DeliverableState
	SubmittedAt     *time.Time
	ReviewNotes     *string
	UpdatedAt       time.Time
}

// UpdateState performs the guarded state write for a transition.
func (r *DeliverableRepository) UpdateState(ctx context.Context, params UpdateStateParams) error {
	setParts := []string{
		"state = :to_state",
		"version = version + 1",
		"updated_at = :updated_at",
	}
	if params.SubmittedAt != nil {
		setParts = append(setParts, "submitted_at = :submitted_at")
	}
	if params.ReviewNotes != nil {
		setParts = append(setParts, "review_notes = :review_notes")
	}
	query := fmt.Sprintf(
		"UPDATE deliverables SET %s WHERE id = :id AND state = :from_state AND version = :expected_version",
		strings.Join(setParts, ", "),
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               params.ID,
		"from_state":       params.FromState,
		"expected_version": params.ExpectedVersion,
		"to_state":         params.ToState,
		"submitted_at":     params.SubmittedAt,
		"review_notes":     params.ReviewNotes,
		"updated_at":       params.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update deliverable state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check state update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateAssignee sets or clears the assignee without touching the state.
func (r *DeliverableRepository) UpdateAssignee(ctx context.Context, id string, assigneeID *string, updatedAt time.Time) error {
	const query = `UPDATE deliverables SET assignee_id = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, assigneeID, updatedAt)
	if err != nil {
		return fmt.Errorf("update deliverable assignee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assignee update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StateCounts aggregates deliverables per state for the given scope. Either
// an area id or a set of project ids narrows the result.
func (r *DeliverableRepository) StateCounts(ctx context.Context, areaID string, projectIDs []string) ([]models.StateCount, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT state, COUNT(*) AS count FROM deliverables`)

	conditions := make([]string, 0, 2)
	if areaID != "" {
		args = append(args, areaID)
		conditions = append(conditions, fmt.Sprintf("area_id = $%d", len(args)))
	}
	if len(projectIDs) > 0 {
		placeholders := make([]string, len(projectIDs))
		for i, id := range projectIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("project_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " OR "))
	}
	builder.WriteString(" GROUP BY state")

	var counts []models.StateCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("count deliverable states: %w", err)
	}
	return counts, nil
}

// OverdueCount counts deliverables past due that are not in a final state.
// Lateness is always derived, never stored.
func (r *DeliverableRepository) OverdueCount(ctx context.Context, areaID string, projectIDs []string, now time.Time) (int, error) {
	builder := strings.Builder{}
	args := []interface{}{now}
	builder.WriteString(`SELECT COUNT(*) FROM deliverables WHERE due_date < $1 AND state NOT IN ('ACCEPTED', 'REJECTED', 'COMPLETED')`)

	scopes := make([]string, 0, 2)
	if areaID != "" {
		args = append(args, areaID)
		scopes = append(scopes, fmt.Sprintf("area_id = $%d", len(args)))
	}
	if len(projectIDs) > 0 {
		placeholders := make([]string, len(projectIDs))
		for i, id := range projectIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		scopes = append(scopes, fmt.Sprintf("project_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(scopes) > 0 {
		builder.WriteString(" AND (")
		builder.WriteString(strings.Join(scopes, " OR "))
		builder.WriteString(")")
	}

	var count int
	if err := r.db.GetContext(ctx, &count, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count overdue deliverables: %w", err)
	}
	return count, nil
}

// ListAttachments returns the ordered attachment descriptors of a deliverable.
func (r *DeliverableRepository) ListAttachments(ctx context.Context, deliverableID string) ([]models.Attachment, error) {
	const query = `SELECT id, deliverable_id, file_name, content_type, size_bytes, position, uploaded_by, created_at
	FROM attachments WHERE deliverable_id = $1 ORDER BY position ASC`
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, deliverableID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}
