package models

import "time"

// History action tags recorded for deliverable mutations.
const (
	HistoryActionCreated        = "CREATED"
	HistoryActionSubmitted      = "SUBMITTED"
	HistoryActionReviewStarted  = "REVIEW_STARTED"
	HistoryActionAccepted       = "ACCEPTED"
	HistoryActionRejected       = "REJECTED"
	HistoryActionChangesAsked   = "CHANGES_REQUESTED"
	HistoryActionCompleted      = "COMPLETED"
	HistoryActionAssigned       = "ASSIGNED"
	HistoryActionCommented      = "COMMENTED"
	HistoryActionCommentEdited  = "COMMENT_EDITED"
	HistoryActionCommentDeleted = "COMMENT_DELETED"
)

// HistoryEntry is an append-only audit record of one mutation to a tracked
// entity. Entries are never updated; removal happens only through an
// administrative retention purge.
type HistoryEntry struct {
	ID          string    `db:"id" json:"id"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	ActorID     string    `db:"actor_id" json:"actor_id"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	Before      []byte    `db:"before_snapshot" json:"before,omitempty"`
	After       []byte    `db:"after_snapshot" json:"after,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HistoryFilter constrains audit queries.
type HistoryFilter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Actions    []string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
