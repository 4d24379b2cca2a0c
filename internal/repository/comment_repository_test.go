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

func TestCommentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO comments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	comment := &models.Comment{
		DeliverableID: "deliv-1",
		AuthorID:      "student-1",
		Body:          "first draft uploaded",
	}
	require.NoError(t, repo.Create(context.Background(), comment))
	require.NotEmpty(t, comment.ID)
	require.Equal(t, models.CommentGeneral, comment.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryUpdateBodyAuthorGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	editedAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE comments SET body =")).
		WithArgs("c-1", "student-2", "hijacked", editedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateBody(context.Background(), "c-1", "student-2", "hijacked", editedAt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM comments WHERE id =")).
		WithArgs("c-1", "student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "c-1", "student-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
