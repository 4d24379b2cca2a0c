package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type commentCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, error)
	UpdateBody(ctx context.Context, id, authorID, body string, editedAt time.Time) error
	Delete(ctx context.Context, id, authorID string) error
}

// CommentService handles comment reads and the author-only edit and delete.
// Creation happens through the workflow engine so it can notify and audit.
type CommentService struct {
	repo    commentCatalog
	history *HistoryService
	logger  *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(repo commentCatalog, history *HistoryService, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, history: history, logger: logger}
}

// List returns a deliverable's comments oldest first.
func (s *CommentService) List(ctx context.Context, deliverableID string, filter models.CommentFilter) ([]models.Comment, error) {
	if deliverableID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deliverableId is required")
	}
	filter.DeliverableID = deliverableID
	comments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to list comments")
	}
	return comments, nil
}

// Edit replaces a comment body. Only the author may edit; anyone else gets
// the same not-found answer as a missing comment.
func (s *CommentService) Edit(ctx context.Context, commentID, actorID, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment body is required")
	}

	editedAt := time.Now().UTC()
	if err := s.repo.UpdateBody(ctx, commentID, actorID, body, editedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found or not yours")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to edit comment")
	}

	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to reload comment")
	}

	s.history.Record(ctx, EntityDeliverable, comment.DeliverableID, actorID, models.HistoryActionCommentEdited,
		"comment edited", nil, nil)
	return comment, nil
}

// Delete removes a comment authored by the actor.
func (s *CommentService) Delete(ctx context.Context, commentID, actorID string) error {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load comment")
	}

	if err := s.repo.Delete(ctx, commentID, actorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found or not yours")
		}
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to delete comment")
	}

	s.history.Record(ctx, EntityDeliverable, comment.DeliverableID, actorID, models.HistoryActionCommentDeleted,
		"comment deleted", nil, nil)
	return nil
}
