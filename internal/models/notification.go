package models

import "time"

// NotificationCategory groups notifications for client-side filtering.
type NotificationCategory string

const (
	NotificationSubmission NotificationCategory = "SUBMISSION"
	NotificationDecision   NotificationCategory = "DECISION"
	NotificationAssignment NotificationCategory = "ASSIGNMENT"
	NotificationComment    NotificationCategory = "COMMENT"
)

// Notification is a message queued for one recipient. The read flag only
// ever transitions false to true.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"body" json:"body"`
	Category  NotificationCategory `db:"category" json:"category"`
	Link      *string              `db:"link" json:"link,omitempty"`
	Read      bool                 `db:"read" json:"read"`
	ReadAt    *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains inbox listings.
type NotificationFilter struct {
	UserID     string
	Category   NotificationCategory
	UnreadOnly bool
	Limit      int
	Offset     int
}
