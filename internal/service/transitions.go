package service

import (
	"fmt"

	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

// transitionTable encodes the legal lifecycle graph. A state absent from the
// map (or mapped to an empty slice) accepts no further transitions.
var transitionTable = map[models.DeliverableState][]models.DeliverableState{
	models.StatePending:         {models.StateInProgress, models.StateSubmitted},
	models.StateInProgress:      {models.StateSubmitted, models.StatePending},
	models.StateSubmitted:       {models.StateInReview, models.StateInProgress},
	models.StateInReview:        {models.StateAccepted, models.StateRejected, models.StateRequiresChanges},
	models.StateRequiresChanges: {models.StateInProgress, models.StateSubmitted},
	models.StateAccepted:        {models.StateCompleted},
}

// gradingStates are only reachable from IN_REVIEW.
var gradingStates = map[models.DeliverableState]struct{}{
	models.StateAccepted:        {},
	models.StateRejected:        {},
	models.StateRequiresChanges: {},
}

// CheckTransition decides whether current may move to target. It returns
// noop=true for a same-state request on a non-terminal state; requesting the
// current state of a terminal deliverable is still an error so that duplicate
// client retries cannot silently swallow the finality signal.
func CheckTransition(current, target models.DeliverableState) (noop bool, err error) {
	if !current.Valid() {
		return false, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unknown current state %q", current))
	}
	if !target.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown target state %q", target))
	}
	if current == target {
		if current.Terminal() {
			return false, appErrors.Clone(appErrors.ErrTerminalState,
				fmt.Sprintf("deliverable is already %s", current))
		}
		return true, nil
	}
	if len(transitionTable[current]) == 0 {
		return false, appErrors.Clone(appErrors.ErrTerminalState,
			fmt.Sprintf("deliverable is %s and accepts no further transitions", current))
	}
	if _, grading := gradingStates[target]; grading && current != models.StateInReview {
		if current == models.StatePending || current == models.StateInProgress {
			return false, appErrors.Clone(appErrors.ErrNotSubmitted,
				fmt.Sprintf("cannot grade a deliverable in state %s: it was never submitted", current))
		}
		return false, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("grading requires state %s, not %s", models.StateInReview, current))
	}
	for _, allowed := range transitionTable[current] {
		if allowed == target {
			return false, nil
		}
	}
	return false, appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("transition %s -> %s is not allowed", current, target))
}

// DecisionTarget maps a reviewer verdict onto its lifecycle state and the
// history action recorded for it.
func DecisionTarget(decision models.Decision) (models.DeliverableState, string, error) {
	switch decision {
	case models.DecisionAccept:
		return models.StateAccepted, models.HistoryActionAccepted, nil
	case models.DecisionReject:
		return models.StateRejected, models.HistoryActionRejected, nil
	case models.DecisionRequestChanges:
		return models.StateRequiresChanges, models.HistoryActionChangesAsked, nil
	default:
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported decision %q", decision))
	}
}

// transitionAction names the history entry for a plain state transition.
func transitionAction(target models.DeliverableState) string {
	switch target {
	case models.StateSubmitted:
		return models.HistoryActionSubmitted
	case models.StateInReview:
		return models.HistoryActionReviewStarted
	case models.StateAccepted:
		return models.HistoryActionAccepted
	case models.StateRejected:
		return models.HistoryActionRejected
	case models.StateRequiresChanges:
		return models.HistoryActionChangesAsked
	case models.StateCompleted:
		return models.HistoryActionCompleted
	default:
		return string(target)
	}
}
