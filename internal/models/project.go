package models

import "time"

// Project groups the deliverables of one capstone effort.
type Project struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	AreaID        string    `db:"area_id" json:"area_id"`
	CoordinatorID string    `db:"coordinator_id" json:"coordinator_id"`
	DirectorID    *string   `db:"director_id" json:"director_id,omitempty"`
	EvaluatorID   *string   `db:"evaluator_id" json:"evaluator_id,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ProjectMember ties a user to a project with an active flag.
type ProjectMember struct {
	ProjectID string    `db:"project_id" json:"project_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      UserRole  `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// AreaOfWork routes review access to coordinators and evaluators.
type AreaOfWork struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}
