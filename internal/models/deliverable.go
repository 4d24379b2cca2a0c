package models

import "time"

// DeliverableState enumerates the lifecycle states of a deliverable.
type DeliverableState string

const (
	StatePending         DeliverableState = "PENDING"
	StateInProgress      DeliverableState = "IN_PROGRESS"
	StateSubmitted       DeliverableState = "SUBMITTED"
	StateInReview        DeliverableState = "IN_REVIEW"
	StateAccepted        DeliverableState = "ACCEPTED"
	StateRejected        DeliverableState = "REJECTED"
	StateRequiresChanges DeliverableState = "REQUIRES_CHANGES"
	StateCompleted       DeliverableState = "COMPLETED"
)

// Valid reports whether the state is a member of the lifecycle enum.
func (s DeliverableState) Valid() bool {
	switch s {
	case StatePending, StateInProgress, StateSubmitted, StateInReview,
		StateAccepted, StateRejected, StateRequiresChanges, StateCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from the state.
func (s DeliverableState) Terminal() bool {
	switch s {
	case StateAccepted, StateRejected, StateCompleted:
		return true
	}
	return false
}

// Decision enumerates reviewer verdicts applied from IN_REVIEW.
type Decision string

const (
	DecisionAccept         Decision = "ACCEPT"
	DecisionReject         Decision = "REJECT"
	DecisionRequestChanges Decision = "REQUEST_CHANGES"
)

// Deliverable is one unit of work owed by a student within a project phase.
// The version column guards optimistic state updates: every state write
// increments it and the previous value must match.
type Deliverable struct {
	ID          string           `db:"id" json:"id"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	ProjectID   string           `db:"project_id" json:"project_id"`
	PhaseID     string           `db:"phase_id" json:"phase_id"`
	AreaID      string           `db:"area_id" json:"area_id"`
	State       DeliverableState `db:"state" json:"state"`
	AssigneeID  *string          `db:"assignee_id" json:"assignee_id,omitempty"`
	ReviewNotes string           `db:"review_notes" json:"review_notes"`
	DueDate     time.Time        `db:"due_date" json:"due_date"`
	SubmittedAt *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	Version     int              `db:"version" json:"version"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Overdue derives lateness from the due date and a non-final state.
func (d *Deliverable) Overdue(now time.Time) bool {
	return d.DueDate.Before(now) && !d.State.Terminal()
}

// Attachment describes a file linked to a deliverable. Upload handling
// lives outside this service; only descriptors are stored.
type Attachment struct {
	ID            string    `db:"id" json:"id"`
	DeliverableID string    `db:"deliverable_id" json:"deliverable_id"`
	FileName      string    `db:"file_name" json:"file_name"`
	ContentType   string    `db:"content_type" json:"content_type"`
	SizeBytes     int64     `db:"size_bytes" json:"size_bytes"`
	Position      int       `db:"position" json:"position"`
	UploadedBy    string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// DeliverableFilter constrains listing queries.
type DeliverableFilter struct {
	ProjectID  string
	PhaseID    string
	AreaID     string
	AssigneeID string
	States     []DeliverableState
	Limit      int
	Offset     int
}

// StateCount aggregates deliverables per lifecycle state.
type StateCount struct {
	State DeliverableState `db:"state" json:"state"`
	Count int              `db:"count" json:"count"`
}

// StateSummary is the dashboard aggregate for one area or coordinator.
type StateSummary struct {
	AreaID      string                   `json:"area_id,omitempty"`
	Counts      map[DeliverableState]int `json:"counts"`
	Total       int                      `json:"total"`
	Overdue     int                      `json:"overdue"`
	GeneratedAt time.Time                `json:"generated_at"`
}
