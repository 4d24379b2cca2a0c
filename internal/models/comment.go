package models

import "time"

// CommentType tags the intent of a comment.
type CommentType string

const (
	CommentFeedback     CommentType = "FEEDBACK"
	CommentStatusChange CommentType = "STATUS_CHANGE"
	CommentGeneral      CommentType = "GENERAL"
)

// Comment is a message attached to a deliverable. Immutable once created
// except for edits by its author.
type Comment struct {
	ID            string      `db:"id" json:"id"`
	DeliverableID string      `db:"deliverable_id" json:"deliverable_id"`
	AuthorID      string      `db:"author_id" json:"author_id"`
	Type          CommentType `db:"type" json:"type"`
	Body          string      `db:"body" json:"body"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	EditedAt      *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
}

// CommentFilter constrains comment listings.
type CommentFilter struct {
	DeliverableID string
	AuthorID      string
	Type          CommentType
	Limit         int
	Offset        int
}
