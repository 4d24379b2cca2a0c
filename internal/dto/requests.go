package dto

import (
	"time"

	"github.com/titulapp/capstone-api/internal/models"
)

// CreateDeliverableRequest creates a new deliverable in PENDING.
type CreateDeliverableRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	ProjectID   string    `json:"project_id" validate:"required,uuid4"`
	PhaseID     string    `json:"phase_id" validate:"required"`
	AreaID      string    `json:"area_id" validate:"omitempty,uuid4"`
	AssigneeID  *string   `json:"assignee_id" validate:"omitempty,uuid4"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// DecideRequest carries a reviewer verdict.
type DecideRequest struct {
	Decision     models.Decision `json:"decision" validate:"required,oneof=ACCEPT REJECT REQUEST_CHANGES"`
	Observations string          `json:"observations" validate:"max=4000"`
}

// AssignRequest sets or clears the deliverable assignee.
type AssignRequest struct {
	UserID string `json:"user_id" validate:"omitempty,uuid4"`
}

// CommentRequest adds a comment to a deliverable.
type CommentRequest struct {
	Body string             `json:"body" validate:"required,max=4000"`
	Type models.CommentType `json:"type" validate:"omitempty,oneof=FEEDBACK STATUS_CHANGE GENERAL"`
}

// EditCommentRequest replaces a comment body.
type EditCommentRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// LogoutRequest revokes a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
