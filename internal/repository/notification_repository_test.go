package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/titulapp/capstone-api/internal/models"
)

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	n := &models.Notification{
		UserID:   "student-1",
		Title:    "Deliverable approved",
		Category: models.NotificationDecision,
	}
	require.NoError(t, repo.Create(context.Background(), n))
	require.NotEmpty(t, n.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	readAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE")).
		WithArgs("n-1", "student-1", readAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "n-1", "student-1", readAt))

	// A replay matches zero rows because the flag never reverts.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE")).
		WithArgs("n-1", "student-1", readAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "n-1", "student-1", readAt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListUnreadOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "body", "category", "link", "read", "read_at", "created_at"}).
		AddRow("n-1", "student-1", "New comment", "", "COMMENT", nil, false, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, title, body, category")).
		WithArgs("student-1").
		WillReturnRows(rows)

	notifications, err := repo.List(context.Background(), models.NotificationFilter{
		UserID:     "student-1",
		UnreadOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.False(t, notifications[0].Read)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCountUnread(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountUnread(context.Background(), "student-1")
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
