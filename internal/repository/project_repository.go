package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/titulapp/capstone-api/internal/models"
)

// ProjectRepository reads project, membership and area data. The review
// access policy is the main consumer.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByID fetches a project by identifier.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	const query = `SELECT id, title, description, area_id, coordinator_id, director_id, evaluator_id, active, created_at, updated_at
	FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// IsMember reports whether the user is an active member of the project.
func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2 AND active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, projectID, userID); err != nil {
		return false, fmt.Errorf("check project membership: %w", err)
	}
	return exists, nil
}

// MemberProjectIDs lists the projects the user actively belongs to.
func (r *ProjectRepository) MemberProjectIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT project_id FROM project_members WHERE user_id = $1 AND active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list member projects: %w", err)
	}
	return ids, nil
}

// UserAreas lists the area-of-work ids the user belongs to, either by
// direct assignment on the user row or through area membership.
func (r *ProjectRepository) UserAreas(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT area_id FROM area_members WHERE user_id = $1
	UNION
	SELECT area_id FROM users WHERE id = $1 AND area_id IS NOT NULL`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list user areas: %w", err)
	}
	return ids, nil
}

// CoordinatorProjectIDs lists the projects a coordinator runs directly.
func (r *ProjectRepository) CoordinatorProjectIDs(ctx context.Context, coordinatorID string) ([]string, error) {
	const query = `SELECT id FROM projects WHERE coordinator_id = $1 AND active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, coordinatorID); err != nil {
		return nil, fmt.Errorf("list coordinator projects: %w", err)
	}
	return ids, nil
}
