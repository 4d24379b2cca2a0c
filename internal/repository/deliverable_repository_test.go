package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/titulapp/capstone-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func deliverableRows(id string, state models.DeliverableState, version int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "title", "description", "project_id", "phase_id", "area_id", "state",
		"assignee_id", "review_notes", "due_date", "submitted_at", "version", "created_at", "updated_at"}).
		AddRow(id, "Final report", "", "project-1", "phase-1", "area-1", string(state), nil, "", now.Add(48*time.Hour), nil, version, now, now)
}

func TestDeliverableRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeliverableRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO deliverables")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	d := &models.Deliverable{
		Title:     "Final report",
		ProjectID: "project-1",
		PhaseID:   "phase-1",
		DueDate:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), d))
	require.NotEmpty(t, d.ID)
	require.Equal(t, models.StatePending, d.State)
	require.Equal(t, 1, d.Version)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, project_id")).
		WithArgs(d.ID).
		WillReturnRows(deliverableRows(d.ID, models.StatePending, 1))

	found, err := repo.GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, d.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverableRepositoryUpdateStateGuarded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeliverableRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE deliverables SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateState(context.Background(), UpdateStateParams{
		ID:              "deliv-1",
		FromState:       models.StateSubmitted,
		ExpectedVersion: 3,
		ToState:         models.StateInReview,
		UpdatedAt:       time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverableRepositoryUpdateStateStaleRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeliverableRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE deliverables SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), UpdateStateParams{
		ID:              "deliv-1",
		FromState:       models.StateSubmitted,
		ExpectedVersion: 2,
		ToState:         models.StateInReview,
		UpdatedAt:       time.Now(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverableRepositoryListStateFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeliverableRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, project_id")).
		WithArgs("project-1", "SUBMITTED", "IN_REVIEW").
		WillReturnRows(deliverableRows("deliv-1", models.StateSubmitted, 1))

	rows, err := repo.List(context.Background(), models.DeliverableFilter{
		ProjectID: "project-1",
		States:    []models.DeliverableState{models.StateSubmitted, models.StateInReview},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverableRepositoryStateCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeliverableRepository(db)
	rows := sqlmock.NewRows([]string{"state", "count"}).
		AddRow("SUBMITTED", 3).
		AddRow("ACCEPTED", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT state, COUNT(*) AS count FROM deliverables")).
		WithArgs("area-1").
		WillReturnRows(rows)

	counts, err := repo.StateCounts(context.Background(), "area-1", nil)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverableRepositoryOverdueCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeliverableRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deliverables WHERE due_date <")).
		WithArgs(now, "area-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.OverdueCount(context.Background(), "area-1", nil, now)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
