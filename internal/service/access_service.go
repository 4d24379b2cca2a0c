package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type membershipStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	MemberProjectIDs(ctx context.Context, userID string) ([]string, error)
	UserAreas(ctx context.Context, userID string) ([]string, error)
	CoordinatorProjectIDs(ctx context.Context, coordinatorID string) ([]string, error)
}

// AccessService is the single point of truth for review access. It replaces
// the per-controller checks the deliverable workflow used to duplicate.
type AccessService struct {
	projects membershipStore
	logger   *zap.Logger
}

// NewAccessService constructs the service.
func NewAccessService(projects membershipStore, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{projects: projects, logger: logger}
}

// CanReview reports whether the actor may view and act on the deliverable:
// membership in the project's area of work, being the project's director or
// evaluator, or active membership in the project itself.
func (s *AccessService) CanReview(ctx context.Context, actorID string, deliverable *models.Deliverable, project *models.Project) (bool, error) {
	if actorID == "" || deliverable == nil || project == nil {
		return false, nil
	}
	if project.DirectorID != nil && *project.DirectorID == actorID {
		return true, nil
	}
	if project.EvaluatorID != nil && *project.EvaluatorID == actorID {
		return true, nil
	}
	if project.CoordinatorID == actorID {
		return true, nil
	}

	areas, err := s.projects.UserAreas(ctx, actorID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to resolve actor areas")
	}
	for _, area := range areas {
		if area == deliverable.AreaID {
			return true, nil
		}
	}

	member, err := s.projects.IsMember(ctx, deliverable.ProjectID, actorID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to resolve project membership")
	}
	return member, nil
}

// CanContribute reports whether the actor may submit or comment: the
// assignee, any active project member, or anyone with review access.
func (s *AccessService) CanContribute(ctx context.Context, actorID string, deliverable *models.Deliverable, project *models.Project) (bool, error) {
	if deliverable.AssigneeID != nil && *deliverable.AssigneeID == actorID {
		return true, nil
	}
	member, err := s.projects.IsMember(ctx, deliverable.ProjectID, actorID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to resolve project membership")
	}
	if member {
		return true, nil
	}
	return s.CanReview(ctx, actorID, deliverable, project)
}

// VisibleScope resolves the dashboard scope of a user: their areas when they
// have any, otherwise the projects they belong to or coordinate. A
// coordinator without an area deliberately sees only their own projects.
func (s *AccessService) VisibleScope(ctx context.Context, userID string) (areaIDs []string, projectIDs []string, err error) {
	areas, err := s.projects.UserAreas(ctx, userID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to resolve user areas")
	}
	if len(areas) > 0 {
		return areas, nil, nil
	}

	member, err := s.projects.MemberProjectIDs(ctx, userID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to resolve member projects")
	}
	coordinated, err := s.projects.CoordinatorProjectIDs(ctx, userID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to resolve coordinated projects")
	}

	seen := make(map[string]struct{}, len(member)+len(coordinated))
	combined := make([]string, 0, len(member)+len(coordinated))
	for _, id := range append(member, coordinated...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		combined = append(combined, id)
	}
	return nil, combined, nil
}

// LoadProject fetches the owning project, translating missing rows.
func (s *AccessService) LoadProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load project")
	}
	return project, nil
}
