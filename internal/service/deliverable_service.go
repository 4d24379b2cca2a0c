package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/dto"
	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type deliverableCatalog interface {
	Create(ctx context.Context, d *models.Deliverable) error
	GetByID(ctx context.Context, id string) (*models.Deliverable, error)
	List(ctx context.Context, filter models.DeliverableFilter) ([]models.Deliverable, error)
	ListAttachments(ctx context.Context, deliverableID string) ([]models.Attachment, error)
}

// DeliverableService covers the non-workflow reads and writes: creating a
// deliverable in its initial state, fetching and listing, and attachment
// descriptors. All state changes go through the workflow engine instead.
type DeliverableService struct {
	repo      deliverableCatalog
	access    reviewPolicy
	history   *HistoryService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDeliverableService constructs the service.
func NewDeliverableService(repo deliverableCatalog, access reviewPolicy, history *HistoryService, validate *validator.Validate, logger *zap.Logger) *DeliverableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DeliverableService{repo: repo, access: access, history: history, validator: validate, logger: logger}
}

// Create registers a new deliverable in PENDING for a project phase.
func (s *DeliverableService) Create(ctx context.Context, actorID string, req dto.CreateDeliverableRequest) (*models.Deliverable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deliverable payload")
	}

	project, err := s.access.LoadProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	d := &models.Deliverable{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   project.ID,
		PhaseID:     req.PhaseID,
		AreaID:      req.AreaID,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to create deliverable")
	}

	s.history.Record(ctx, EntityDeliverable, d.ID, actorID, models.HistoryActionCreated,
		"deliverable created", nil, nil)

	return d, nil
}

// Get fetches one deliverable, enforcing review access.
func (s *DeliverableService) Get(ctx context.Context, deliverableID, actorID string) (*models.Deliverable, error) {
	d, err := s.repo.GetByID(ctx, deliverableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load deliverable")
	}

	project, err := s.access.LoadProject(ctx, d.ProjectID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.access.CanReview(ctx, actorID, d, project)
	if err != nil {
		return nil, err
	}
	if !allowed {
		allowed, err = s.access.CanContribute(ctx, actorID, d, project)
		if err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "actor may not view this deliverable")
	}
	return d, nil
}

// List returns deliverables matching the filter.
func (s *DeliverableService) List(ctx context.Context, filter models.DeliverableFilter) ([]models.Deliverable, error) {
	for _, state := range filter.States {
		if !state.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown state filter value")
		}
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to list deliverables")
	}
	return rows, nil
}

// Attachments lists the ordered file descriptors of a deliverable.
func (s *DeliverableService) Attachments(ctx context.Context, deliverableID string) ([]models.Attachment, error) {
	attachments, err := s.repo.ListAttachments(ctx, deliverableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to list attachments")
	}
	return attachments, nil
}

// Overdue annotates lateness for listing responses.
func (s *DeliverableService) Overdue(d *models.Deliverable) bool {
	return d.Overdue(time.Now().UTC())
}
