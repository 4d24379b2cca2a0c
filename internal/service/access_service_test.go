package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type membershipStoreStub struct {
	projects    map[string]*models.Project
	members     map[string]map[string]bool
	areas       map[string][]string
	coordinated map[string][]string
}

func newMembershipStoreStub() *membershipStoreStub {
	return &membershipStoreStub{
		projects:    make(map[string]*models.Project),
		members:     make(map[string]map[string]bool),
		areas:       make(map[string][]string),
		coordinated: make(map[string][]string),
	}
}

func (s *membershipStoreStub) GetByID(ctx context.Context, id string) (*models.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (s *membershipStoreStub) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	return s.members[projectID][userID], nil
}

func (s *membershipStoreStub) MemberProjectIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	for projectID, users := range s.members {
		if users[userID] {
			ids = append(ids, projectID)
		}
	}
	return ids, nil
}

func (s *membershipStoreStub) UserAreas(ctx context.Context, userID string) ([]string, error) {
	return s.areas[userID], nil
}

func (s *membershipStoreStub) CoordinatorProjectIDs(ctx context.Context, coordinatorID string) ([]string, error) {
	return s.coordinated[coordinatorID], nil
}

func accessFixture() (*AccessService, *membershipStoreStub, *models.Deliverable, *models.Project) {
	store := newMembershipStoreStub()
	director := "director-1"
	evaluator := "evaluator-1"
	project := &models.Project{
		ID:            "project-1",
		AreaID:        "area-1",
		CoordinatorID: "coordinator-1",
		DirectorID:    &director,
		EvaluatorID:   &evaluator,
	}
	store.projects[project.ID] = project
	deliverable := &models.Deliverable{ID: "deliv-1", ProjectID: project.ID, AreaID: "area-1"}
	return NewAccessService(store, nil), store, deliverable, project
}

func TestCanReviewProjectRoles(t *testing.T) {
	svc, _, deliverable, project := accessFixture()

	for _, actor := range []string{"director-1", "evaluator-1", "coordinator-1"} {
		ok, err := svc.CanReview(context.Background(), actor, deliverable, project)
		require.NoError(t, err)
		require.True(t, ok, "actor %s", actor)
	}
}

func TestCanReviewAreaMembership(t *testing.T) {
	svc, store, deliverable, project := accessFixture()
	store.areas["reviewer-1"] = []string{"area-1"}

	ok, err := svc.CanReview(context.Background(), "reviewer-1", deliverable, project)
	require.NoError(t, err)
	require.True(t, ok)

	store.areas["reviewer-2"] = []string{"area-9"}
	ok, err = svc.CanReview(context.Background(), "reviewer-2", deliverable, project)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanReviewProjectMemberFallback(t *testing.T) {
	svc, store, deliverable, project := accessFixture()
	store.members["project-1"] = map[string]bool{"member-1": true}

	ok, err := svc.CanReview(context.Background(), "member-1", deliverable, project)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.CanReview(context.Background(), "outsider-1", deliverable, project)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanContributeAssignee(t *testing.T) {
	svc, _, deliverable, project := accessFixture()
	assignee := "student-1"
	deliverable.AssigneeID = &assignee

	ok, err := svc.CanContribute(context.Background(), "student-1", deliverable, project)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVisibleScopePrefersAreas(t *testing.T) {
	svc, store, _, _ := accessFixture()
	store.areas["coordinator-2"] = []string{"area-1", "area-2"}
	store.coordinated["coordinator-2"] = []string{"project-9"}

	areas, projects, err := svc.VisibleScope(context.Background(), "coordinator-2")
	require.NoError(t, err)
	require.Equal(t, []string{"area-1", "area-2"}, areas)
	require.Empty(t, projects)
}

func TestVisibleScopeCoordinatorWithoutArea(t *testing.T) {
	svc, store, _, _ := accessFixture()
	store.members["project-1"] = map[string]bool{"coordinator-3": true}
	store.coordinated["coordinator-3"] = []string{"project-1", "project-2"}

	areas, projects, err := svc.VisibleScope(context.Background(), "coordinator-3")
	require.NoError(t, err)
	require.Empty(t, areas)
	require.ElementsMatch(t, []string{"project-1", "project-2"}, projects)
}

func TestLoadProjectMissing(t *testing.T) {
	svc, _, _, _ := accessFixture()

	_, err := svc.LoadProject(context.Background(), "missing")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}
