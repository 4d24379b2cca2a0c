package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/internal/repository"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type deliverableStore interface {
	GetByID(ctx context.Context, id string) (*models.Deliverable, error)
	UpdateState(ctx context.Context, params repository.UpdateStateParams) error
	UpdateAssignee(ctx context.Context, id string, assigneeID *string, updatedAt time.Time) error
	StateCounts(ctx context.Context, areaID string, projectIDs []string) ([]models.StateCount, error)
	OverdueCount(ctx context.Context, areaID string, projectIDs []string, now time.Time) (int, error)
}

type commentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
}

type workflowNotifier interface {
	Send(ctx context.Context, userID string, msg Message) error
}

type reviewPolicy interface {
	CanReview(ctx context.Context, actorID string, deliverable *models.Deliverable, project *models.Project) (bool, error)
	CanContribute(ctx context.Context, actorID string, deliverable *models.Deliverable, project *models.Project) (bool, error)
	VisibleScope(ctx context.Context, userID string) (areaIDs []string, projectIDs []string, err error)
	LoadProject(ctx context.Context, projectID string) (*models.Project, error)
}

// WorkflowService is the deliverable review engine. Every state change goes
// through it: load, validate, guarded write, audit, notify. Validation
// failures abort before anything is persisted; history and notification
// failures after the state write are logged and swallowed.
type WorkflowService struct {
	deliverables deliverableStore
	comments     commentStore
	access       reviewPolicy
	history      *HistoryService
	notifier     workflowNotifier
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
}

// WorkflowServiceParams groups constructor dependencies.
type WorkflowServiceParams struct {
	Deliverables deliverableStore
	Comments     commentStore
	Access       reviewPolicy
	History      *HistoryService
	Notifier     workflowNotifier
	Metrics      *MetricsService
	Logger       *zap.Logger
}

// NewWorkflowService constructs the engine.
func NewWorkflowService(params WorkflowServiceParams) *WorkflowService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		deliverables: params.Deliverables,
		comments:     params.Comments,
		access:       params.Access,
		history:      params.History,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Submit moves a deliverable into SUBMITTED and stamps the submission time.
// The project's director and evaluator are notified; the coordinator is not,
// a scheduled reminder covers them separately.
func (s *WorkflowService) Submit(ctx context.Context, deliverableID, actorID string) (*models.Deliverable, error) {
	deliverable, project, err := s.load(ctx, deliverableID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.CanContribute(ctx, actorID, deliverable, project)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "actor may not submit this deliverable")
	}

	noop, err := CheckTransition(deliverable.State, models.StateSubmitted)
	if err != nil {
		return nil, err
	}
	if noop {
		return deliverable, nil
	}

	now := s.now().UTC()
	submittedAt := now
	if err := s.applyTransition(ctx, deliverable, models.StateSubmitted, repository.UpdateStateParams{
		SubmittedAt: &submittedAt,
	}); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, deliverable, actorID, transitionAction(models.StateSubmitted),
		fmt.Sprintf("deliverable submitted by %s", actorID))

	recipients := make([]string, 0, 2)
	if project.DirectorID != nil {
		recipients = append(recipients, *project.DirectorID)
	}
	if project.EvaluatorID != nil {
		recipients = append(recipients, *project.EvaluatorID)
	}
	s.fanOut(ctx, recipients, Message{
		Title:    "Deliverable submitted",
		Body:     fmt.Sprintf("%q was submitted and is waiting for review.", deliverable.Title),
		Category: models.NotificationSubmission,
		Link:     deliverableLink(deliverable.ID),
	})

	return deliverable, nil
}

// BeginReview moves a submitted deliverable into IN_REVIEW. The reviewer is
// the actor, so nobody is notified.
func (s *WorkflowService) BeginReview(ctx context.Context, deliverableID, actorID string) (*models.Deliverable, error) {
	deliverable, project, err := s.load(ctx, deliverableID)
	if err != nil {
		return nil, err
	}

	if err := s.requireReviewAccess(ctx, actorID, deliverable, project); err != nil {
		return nil, err
	}

	noop, err := CheckTransition(deliverable.State, models.StateInReview)
	if err != nil {
		return nil, err
	}
	if noop {
		return deliverable, nil
	}

	if err := s.applyTransition(ctx, deliverable, models.StateInReview, repository.UpdateStateParams{}); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, deliverable, actorID, transitionAction(models.StateInReview),
		fmt.Sprintf("review started by %s", actorID))

	return deliverable, nil
}

// Decide applies a reviewer verdict from IN_REVIEW. Observations become the
// deliverable's review notes and, when non-empty, an automatic comment. The
// student is notified afterwards; a dispatcher outage must never roll back
// the decision, so every side effect is isolated.
func (s *WorkflowService) Decide(ctx context.Context, deliverableID, actorID string, decision models.Decision, observations string) (*models.Deliverable, error) {
	target, action, err := DecisionTarget(decision)
	if err != nil {
		return nil, err
	}

	deliverable, project, err := s.load(ctx, deliverableID)
	if err != nil {
		return nil, err
	}

	if err := s.requireReviewAccess(ctx, actorID, deliverable, project); err != nil {
		return nil, err
	}

	if _, err := CheckTransition(deliverable.State, target); err != nil {
		return nil, err
	}

	observations = strings.TrimSpace(observations)
	notes := observations
	if err := s.applyTransition(ctx, deliverable, target, repository.UpdateStateParams{
		ReviewNotes: &notes,
	}); err != nil {
		return nil, err
	}
	deliverable.ReviewNotes = notes

	s.recordTransition(ctx, deliverable, actorID, action,
		fmt.Sprintf("decision %s by %s", decision, actorID))

	if observations != "" {
		comment := &models.Comment{
			DeliverableID: deliverable.ID,
			AuthorID:      actorID,
			Type:          models.CommentFeedback,
			Body:          decisionMarker(decision) + " " + observations,
		}
		if err := s.comments.Create(ctx, comment); err != nil {
			s.logger.Warn("failed to persist decision comment",
				zap.String("deliverable_id", deliverable.ID), zap.Error(err))
		}
	}

	if deliverable.AssigneeID != nil {
		msg := decisionMessage(decision, deliverable)
		if err := s.notifier.Send(ctx, *deliverable.AssigneeID, msg); err != nil {
			s.logger.Warn("failed to notify student of decision",
				zap.String("deliverable_id", deliverable.ID), zap.Error(err))
		}
	}

	return deliverable, nil
}

// Assign sets the deliverable's assignee without changing its state. The
// new assignee is notified.
func (s *WorkflowService) Assign(ctx context.Context, deliverableID, userID, actorID string) (*models.Deliverable, error) {
	deliverable, project, err := s.load(ctx, deliverableID)
	if err != nil {
		return nil, err
	}

	if err := s.requireReviewAccess(ctx, actorID, deliverable, project); err != nil {
		return nil, err
	}
	if deliverable.State.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrTerminalState, "cannot reassign a finished deliverable")
	}

	now := s.now().UTC()
	var assignee *string
	if userID != "" {
		assignee = &userID
	}
	if err := s.deliverables.UpdateAssignee(ctx, deliverable.ID, assignee, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to update assignee")
	}
	deliverable.AssigneeID = assignee
	deliverable.UpdatedAt = now

	s.history.Record(ctx, EntityDeliverable, deliverable.ID, actorID, models.HistoryActionAssigned,
		fmt.Sprintf("assignee set to %s", userID), nil, nil)

	if assignee != nil {
		if err := s.notifier.Send(ctx, *assignee, Message{
			Title:    "Deliverable assigned to you",
			Body:     fmt.Sprintf("You are now responsible for %q.", deliverable.Title),
			Category: models.NotificationAssignment,
			Link:     deliverableLink(deliverable.ID),
		}); err != nil {
			s.logger.Warn("failed to notify new assignee",
				zap.String("deliverable_id", deliverable.ID), zap.Error(err))
		}
	}

	return deliverable, nil
}

// AddComment attaches a comment and notifies the assignee when someone else
// wrote it.
func (s *WorkflowService) AddComment(ctx context.Context, deliverableID, actorID, text string, commentType models.CommentType) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}

	deliverable, project, err := s.load(ctx, deliverableID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.CanContribute(ctx, actorID, deliverable, project)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrAccessDenied, "actor may not comment on this deliverable")
	}

	comment := &models.Comment{
		DeliverableID: deliverable.ID,
		AuthorID:      actorID,
		Type:          commentType,
		Body:          text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to create comment")
	}

	s.history.Record(ctx, EntityDeliverable, deliverable.ID, actorID, models.HistoryActionCommented,
		"comment added", nil, nil)

	if deliverable.AssigneeID != nil && *deliverable.AssigneeID != actorID {
		if err := s.notifier.Send(ctx, *deliverable.AssigneeID, Message{
			Title:    "New comment on your deliverable",
			Body:     fmt.Sprintf("%q received a new comment.", deliverable.Title),
			Category: models.NotificationComment,
			Link:     deliverableLink(deliverable.ID),
		}); err != nil {
			s.logger.Warn("failed to notify assignee of comment",
				zap.String("deliverable_id", deliverable.ID), zap.Error(err))
		}
	}

	return comment, nil
}

// StateSummary aggregates deliverable counts per state for a dashboard
// scope: an explicit area, or the caller's visible scope when areaID is
// empty. Overdue is derived from the due date, never stored.
func (s *WorkflowService) StateSummary(ctx context.Context, areaID, userID string) (*models.StateSummary, error) {
	var projectIDs []string
	if areaID == "" {
		if userID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "areaId or userId is required")
		}
		areas, projects, err := s.access.VisibleScope(ctx, userID)
		if err != nil {
			return nil, err
		}
		projectIDs = projects
		if len(areas) == 1 {
			areaID = areas[0]
		} else if len(areas) > 1 {
			// Multi-area coordinators aggregate their first-class scope per
			// area; summarise across all of them project-free.
			summary := &models.StateSummary{Counts: map[models.DeliverableState]int{}, GeneratedAt: s.now().UTC()}
			for _, area := range areas {
				partial, err := s.summarise(ctx, area, nil)
				if err != nil {
					return nil, err
				}
				for state, count := range partial.Counts {
					summary.Counts[state] += count
				}
				summary.Total += partial.Total
				summary.Overdue += partial.Overdue
			}
			return summary, nil
		}
		if areaID == "" && len(projectIDs) == 0 {
			return &models.StateSummary{Counts: map[models.DeliverableState]int{}, GeneratedAt: s.now().UTC()}, nil
		}
	}
	return s.summarise(ctx, areaID, projectIDs)
}

func (s *WorkflowService) summarise(ctx context.Context, areaID string, projectIDs []string) (*models.StateSummary, error) {
	counts, err := s.deliverables.StateCounts(ctx, areaID, projectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to count states")
	}
	overdue, err := s.deliverables.OverdueCount(ctx, areaID, projectIDs, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to count overdue deliverables")
	}

	summary := &models.StateSummary{
		AreaID:      areaID,
		Counts:      make(map[models.DeliverableState]int, len(counts)),
		Overdue:     overdue,
		GeneratedAt: s.now().UTC(),
	}
	for _, count := range counts {
		summary.Counts[count.State] = count.Count
		summary.Total += count.Count
	}
	return summary, nil
}

func (s *WorkflowService) load(ctx context.Context, deliverableID string) (*models.Deliverable, *models.Project, error) {
	deliverable, err := s.deliverables.GetByID(ctx, deliverableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load deliverable")
	}
	project, err := s.access.LoadProject(ctx, deliverable.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return deliverable, project, nil
}

func (s *WorkflowService) requireReviewAccess(ctx context.Context, actorID string, deliverable *models.Deliverable, project *models.Project) error {
	allowed, err := s.access.CanReview(ctx, actorID, deliverable, project)
	if err != nil {
		return err
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrAccessDenied, "actor has no review access to this deliverable")
	}
	return nil
}

// applyTransition performs the guarded state write and mutates the in-memory
// deliverable on success. A zero-row update means a concurrent writer won.
func (s *WorkflowService) applyTransition(ctx context.Context, deliverable *models.Deliverable, target models.DeliverableState, params repository.UpdateStateParams) error {
	now := s.now().UTC()
	params.ID = deliverable.ID
	params.FromState = deliverable.State
	params.ExpectedVersion = deliverable.Version
	params.ToState = target
	params.UpdatedAt = now

	if err := s.deliverables.UpdateState(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrStaleState,
				fmt.Sprintf("deliverable %s changed concurrently, retry with fresh state", deliverable.ID))
		}
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to persist transition")
	}

	if s.metrics != nil {
		s.metrics.RecordTransition(string(deliverable.State), string(target))
	}
	deliverable.State = target
	deliverable.Version++
	deliverable.UpdatedAt = now
	if params.SubmittedAt != nil {
		deliverable.SubmittedAt = params.SubmittedAt
	}
	return nil
}

func (s *WorkflowService) recordTransition(ctx context.Context, deliverable *models.Deliverable, actorID, action, description string) {
	after, _ := json.Marshal(map[string]string{"state": string(deliverable.State)})
	s.history.Record(ctx, EntityDeliverable, deliverable.ID, actorID, action, description, nil, after)
}

// fanOut delivers one message per recipient, isolating failures.
func (s *WorkflowService) fanOut(ctx context.Context, recipients []string, msg Message) {
	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		if err := s.notifier.Send(ctx, recipient, msg); err != nil {
			s.logger.Warn("notification dispatch failed",
				zap.String("recipient", recipient), zap.Error(err))
		}
	}
}

func decisionMarker(decision models.Decision) string {
	switch decision {
	case models.DecisionAccept:
		return "[APPROVED]"
	case models.DecisionReject:
		return "[REJECTED]"
	default:
		return "[CHANGES REQUESTED]"
	}
}

func decisionMessage(decision models.Decision, deliverable *models.Deliverable) Message {
	msg := Message{
		Category: models.NotificationDecision,
		Link:     deliverableLink(deliverable.ID),
	}
	switch decision {
	case models.DecisionAccept:
		msg.Title = "Deliverable approved"
		msg.Body = fmt.Sprintf("%q was approved by the review board.", deliverable.Title)
	case models.DecisionReject:
		msg.Title = "Deliverable rejected"
		msg.Body = fmt.Sprintf("%q was rejected. Check the review notes for details.", deliverable.Title)
	default:
		msg.Title = "Changes requested"
		msg.Body = fmt.Sprintf("%q needs changes before it can be approved.", deliverable.Title)
	}
	return msg
}

func deliverableLink(id string) string {
	return "/deliverables/" + id
}
