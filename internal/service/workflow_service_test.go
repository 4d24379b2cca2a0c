package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/internal/repository"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type deliverableStoreStub struct {
	deliverables map[string]*models.Deliverable
	staleWrites  bool
}

func newDeliverableStoreStub() *deliverableStoreStub {
	return &deliverableStoreStub{deliverables: make(map[string]*models.Deliverable)}
}

func (s *deliverableStoreStub) GetByID(ctx context.Context, id string) (*models.Deliverable, error) {
	d, ok := s.deliverables[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *d
	return &copied, nil
}

func (s *deliverableStoreStub) UpdateState(ctx context.Context, params repository.UpdateStateParams) error {
	if s.staleWrites {
		return sql.ErrNoRows
	}
	d, ok := s.deliverables[params.ID]
	if !ok || d.State != params.FromState || d.Version != params.ExpectedVersion {
		return sql.ErrNoRows
	}
	d.State = params.ToState
	d.Version++
	d.UpdatedAt = params.UpdatedAt
	if params.SubmittedAt != nil {
		d.SubmittedAt = params.SubmittedAt
	}
	if params.ReviewNotes != nil {
		d.ReviewNotes = *params.ReviewNotes
	}
	return nil
}

func (s *deliverableStoreStub) UpdateAssignee(ctx context.Context, id string, assigneeID *string, updatedAt time.Time) error {
	d, ok := s.deliverables[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.AssigneeID = assigneeID
	d.UpdatedAt = updatedAt
	return nil
}

func (s *deliverableStoreStub) StateCounts(ctx context.Context, areaID string, projectIDs []string) ([]models.StateCount, error) {
	counts := map[models.DeliverableState]int{}
	for _, d := range s.deliverables {
		if areaID != "" && d.AreaID != areaID {
			continue
		}
		counts[d.State]++
	}
	result := make([]models.StateCount, 0, len(counts))
	for state, count := range counts {
		result = append(result, models.StateCount{State: state, Count: count})
	}
	return result, nil
}

func (s *deliverableStoreStub) OverdueCount(ctx context.Context, areaID string, projectIDs []string, now time.Time) (int, error) {
	overdue := 0
	for _, d := range s.deliverables {
		if areaID != "" && d.AreaID != areaID {
			continue
		}
		if d.Overdue(now) {
			overdue++
		}
	}
	return overdue, nil
}

type commentStoreStub struct {
	comments []*models.Comment
	fail     bool
}

func (s *commentStoreStub) Create(ctx context.Context, comment *models.Comment) error {
	if s.fail {
		return errors.New("comment store down")
	}
	s.comments = append(s.comments, comment)
	return nil
}

type notifierStub struct {
	recipients []string
	messages   []Message
	fail       bool
}

func (s *notifierStub) Send(ctx context.Context, userID string, msg Message) error {
	if s.fail {
		return errors.New("dispatcher down")
	}
	s.recipients = append(s.recipients, userID)
	s.messages = append(s.messages, msg)
	return nil
}

type historyStoreStub struct {
	entries []*models.HistoryEntry
	fail    bool
}

func (s *historyStoreStub) Append(ctx context.Context, entry *models.HistoryEntry) error {
	if s.fail {
		return errors.New("history store down")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *historyStoreStub) Query(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	result := make([]models.HistoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, *entry)
	}
	return result, nil
}

type accessStub struct {
	project    *models.Project
	canReview  bool
	contribute bool
}

func (s *accessStub) CanReview(ctx context.Context, actorID string, d *models.Deliverable, p *models.Project) (bool, error) {
	return s.canReview, nil
}

func (s *accessStub) CanContribute(ctx context.Context, actorID string, d *models.Deliverable, p *models.Project) (bool, error) {
	return s.contribute, nil
}

func (s *accessStub) VisibleScope(ctx context.Context, userID string) ([]string, []string, error) {
	return []string{s.project.AreaID}, nil, nil
}

func (s *accessStub) LoadProject(ctx context.Context, projectID string) (*models.Project, error) {
	if s.project == nil || s.project.ID != projectID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}
	return s.project, nil
}

type workflowFixture struct {
	svc      *WorkflowService
	store    *deliverableStoreStub
	comments *commentStoreStub
	notifier *notifierStub
	history  *historyStoreStub
	access   *accessStub
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	director := "director-1"
	evaluator := "evaluator-1"
	access := &accessStub{
		project: &models.Project{
			ID:          "project-1",
			AreaID:      "area-1",
			DirectorID:  &director,
			EvaluatorID: &evaluator,
		},
		canReview:  true,
		contribute: true,
	}
	store := newDeliverableStoreStub()
	comments := &commentStoreStub{}
	notifier := &notifierStub{}
	history := &historyStoreStub{}
	svc := NewWorkflowService(WorkflowServiceParams{
		Deliverables: store,
		Comments:     comments,
		Access:       access,
		History:      NewHistoryService(history, nil),
		Notifier:     notifier,
	})
	return &workflowFixture{svc: svc, store: store, comments: comments, notifier: notifier, history: history, access: access}
}

func (f *workflowFixture) seed(state models.DeliverableState) *models.Deliverable {
	assignee := "student-1"
	d := &models.Deliverable{
		ID:         "deliv-1",
		Title:      "Final report",
		ProjectID:  "project-1",
		AreaID:     "area-1",
		State:      state,
		Version:    1,
		DueDate:    time.Now().Add(72 * time.Hour),
		AssigneeID: &assignee,
	}
	f.store.deliverables[d.ID] = d
	return d
}

func TestWorkflowSubmitNotifiesReviewers(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateInProgress)

	d, err := f.svc.Submit(context.Background(), "deliv-1", "student-1")
	require.NoError(t, err)
	require.Equal(t, models.StateSubmitted, d.State)
	require.NotNil(t, d.SubmittedAt)
	require.Equal(t, 2, d.Version)

	require.ElementsMatch(t, []string{"director-1", "evaluator-1"}, f.notifier.recipients)
	require.Len(t, f.history.entries, 1)
	require.Equal(t, models.HistoryActionSubmitted, f.history.entries[0].Action)
}

func TestWorkflowSubmitIdempotentOnSameState(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateSubmitted)

	d, err := f.svc.Submit(context.Background(), "deliv-1", "student-1")
	require.NoError(t, err)
	require.Equal(t, models.StateSubmitted, d.State)
	require.Empty(t, f.notifier.recipients)
	require.Empty(t, f.history.entries)
}

func TestWorkflowDecideAcceptHappyPath(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateSubmitted)

	_, err := f.svc.BeginReview(context.Background(), "deliv-1", "evaluator-1")
	require.NoError(t, err)

	d, err := f.svc.Decide(context.Background(), "deliv-1", "evaluator-1", models.DecisionAccept, "well structured")
	require.NoError(t, err)
	require.Equal(t, models.StateAccepted, d.State)
	require.Equal(t, "well structured", d.ReviewNotes)

	require.Len(t, f.history.entries, 2)
	require.Equal(t, models.HistoryActionReviewStarted, f.history.entries[0].Action)
	require.Equal(t, models.HistoryActionAccepted, f.history.entries[1].Action)

	require.Len(t, f.comments.comments, 1)
	require.Contains(t, f.comments.comments[0].Body, "[APPROVED]")

	require.Equal(t, []string{"student-1"}, f.notifier.recipients)
	require.Equal(t, models.NotificationDecision, f.notifier.messages[0].Category)
}

func TestWorkflowDecideOnPendingFailsWithoutSideEffects(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StatePending)

	_, err := f.svc.Decide(context.Background(), "deliv-1", "evaluator-1", models.DecisionReject, "too early")
	requireErrorCode(t, err, appErrors.ErrNotSubmitted.Code)

	require.Empty(t, f.history.entries)
	require.Empty(t, f.notifier.recipients)
	require.Empty(t, f.comments.comments)
	require.Equal(t, models.StatePending, f.store.deliverables["deliv-1"].State)
}

func TestWorkflowDecideTerminalRetryRejected(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateAccepted)

	_, err := f.svc.Decide(context.Background(), "deliv-1", "evaluator-1", models.DecisionAccept, "")
	requireErrorCode(t, err, appErrors.ErrTerminalState.Code)
}

func TestWorkflowDecideSurvivesDispatcherOutage(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateInReview)
	f.notifier.fail = true

	d, err := f.svc.Decide(context.Background(), "deliv-1", "evaluator-1", models.DecisionRequestChanges, "missing citations")
	require.NoError(t, err)
	require.Equal(t, models.StateRequiresChanges, d.State)
	require.Equal(t, models.StateRequiresChanges, f.store.deliverables["deliv-1"].State)
	require.Len(t, f.history.entries, 1)
}

func TestWorkflowConcurrentTransitionConflict(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateSubmitted)
	f.store.staleWrites = true

	_, err := f.svc.BeginReview(context.Background(), "deliv-1", "evaluator-1")
	requireErrorCode(t, err, appErrors.ErrStaleState.Code)
	require.Empty(t, f.history.entries)
}

func TestWorkflowHistoryFailureDoesNotBlockTransition(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateInProgress)
	f.history.fail = true

	d, err := f.svc.Submit(context.Background(), "deliv-1", "student-1")
	require.NoError(t, err)
	require.Equal(t, models.StateSubmitted, d.State)
}

func TestWorkflowAccessDenied(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateSubmitted)
	f.access.canReview = false

	_, err := f.svc.BeginReview(context.Background(), "deliv-1", "outsider-1")
	requireErrorCode(t, err, appErrors.ErrAccessDenied.Code)
}

func TestWorkflowSubmitUnknownDeliverable(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.Submit(context.Background(), "missing", "student-1")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestWorkflowAssignNotifiesNewAssignee(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateInProgress)

	d, err := f.svc.Assign(context.Background(), "deliv-1", "student-2", "director-1")
	require.NoError(t, err)
	require.NotNil(t, d.AssigneeID)
	require.Equal(t, "student-2", *d.AssigneeID)

	require.Equal(t, []string{"student-2"}, f.notifier.recipients)
	require.Len(t, f.history.entries, 1)
	require.Equal(t, models.HistoryActionAssigned, f.history.entries[0].Action)
}

func TestWorkflowAssignTerminalFails(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateCompleted)

	_, err := f.svc.Assign(context.Background(), "deliv-1", "student-2", "director-1")
	requireErrorCode(t, err, appErrors.ErrTerminalState.Code)
}

func TestWorkflowAddCommentNotifiesAssignee(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateInReview)

	comment, err := f.svc.AddComment(context.Background(), "deliv-1", "evaluator-1", "check section 3", models.CommentFeedback)
	require.NoError(t, err)
	require.Equal(t, "check section 3", comment.Body)

	require.Equal(t, []string{"student-1"}, f.notifier.recipients)
	require.Len(t, f.history.entries, 1)
	require.Equal(t, models.HistoryActionCommented, f.history.entries[0].Action)
}

func TestWorkflowAddCommentByAssigneeSkipsSelfNotification(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateInProgress)

	_, err := f.svc.AddComment(context.Background(), "deliv-1", "student-1", "updated the draft", models.CommentGeneral)
	require.NoError(t, err)
	require.Empty(t, f.notifier.recipients)
}

func TestWorkflowAddCommentRequiresBody(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seed(models.StateInProgress)

	_, err := f.svc.AddComment(context.Background(), "deliv-1", "student-1", "   ", models.CommentGeneral)
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestWorkflowStateSummaryCountsAndOverdue(t *testing.T) {
	f := newWorkflowFixture(t)
	assignee := "student-1"
	f.store.deliverables["d1"] = &models.Deliverable{ID: "d1", AreaID: "area-1", State: models.StateSubmitted, DueDate: time.Now().Add(-time.Hour), AssigneeID: &assignee}
	f.store.deliverables["d2"] = &models.Deliverable{ID: "d2", AreaID: "area-1", State: models.StateAccepted, DueDate: time.Now().Add(-time.Hour)}
	f.store.deliverables["d3"] = &models.Deliverable{ID: "d3", AreaID: "area-1", State: models.StateSubmitted, DueDate: time.Now().Add(time.Hour)}

	summary, err := f.svc.StateSummary(context.Background(), "area-1", "")
	require.NoError(t, err)
	require.Equal(t, 2, summary.Counts[models.StateSubmitted])
	require.Equal(t, 1, summary.Counts[models.StateAccepted])
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 1, summary.Overdue)
}
