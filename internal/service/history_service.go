package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

// EntityDeliverable is the entity type tag used for deliverable audit rows.
const EntityDeliverable = "deliverable"

type historyStore interface {
	Append(ctx context.Context, entry *models.HistoryEntry) error
	Query(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error)
}

// HistoryService writes and reads the append-only audit trail. Record never
// propagates storage failures to the caller: breaking a workflow operation
// over a missing audit row would invert the priority of the two writes.
type HistoryService struct {
	repo   historyStore
	logger *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(repo historyStore, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, logger: logger}
}

// Record appends one audit entry, swallowing failures.
func (s *HistoryService) Record(ctx context.Context, entityType, entityID, actorID, action, description string, before, after []byte) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.HistoryEntry{
		EntityType:  entityType,
		EntityID:    entityID,
		ActorID:     actorID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append history entry",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Query returns audit entries newest-first for an entity.
func (s *HistoryService) Query(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	if filter.EntityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entityId is required")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range end precedes start")
	}
	entries, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to query history")
	}
	return entries, nil
}

// QueryRange is a convenience wrapper for time-bounded lookups.
func (s *HistoryService) QueryRange(ctx context.Context, entityID string, from, to time.Time, limit int) ([]models.HistoryEntry, error) {
	return s.Query(ctx, models.HistoryFilter{
		EntityType: EntityDeliverable,
		EntityID:   entityID,
		From:       &from,
		To:         &to,
		Limit:      limit,
	})
}
