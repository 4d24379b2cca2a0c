package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type commentCatalogStub struct {
	comments map[string]*models.Comment
}

func newCommentCatalogStub() *commentCatalogStub {
	return &commentCatalogStub{comments: make(map[string]*models.Comment)}
}

func (s *commentCatalogStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	c, ok := s.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (s *commentCatalogStub) List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, error) {
	result := make([]models.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		if filter.DeliverableID != "" && c.DeliverableID != filter.DeliverableID {
			continue
		}
		result = append(result, *c)
	}
	return result, nil
}

func (s *commentCatalogStub) UpdateBody(ctx context.Context, id, authorID, body string, editedAt time.Time) error {
	c, ok := s.comments[id]
	if !ok || c.AuthorID != authorID {
		return sql.ErrNoRows
	}
	c.Body = body
	c.EditedAt = &editedAt
	return nil
}

func (s *commentCatalogStub) Delete(ctx context.Context, id, authorID string) error {
	c, ok := s.comments[id]
	if !ok || c.AuthorID != authorID {
		return sql.ErrNoRows
	}
	delete(s.comments, id)
	return nil
}

func TestCommentEditByAuthor(t *testing.T) {
	store := newCommentCatalogStub()
	store.comments["c-1"] = &models.Comment{ID: "c-1", DeliverableID: "deliv-1", AuthorID: "student-1", Body: "draft"}
	history := &historyStoreStub{}
	svc := NewCommentService(store, NewHistoryService(history, nil), nil)

	comment, err := svc.Edit(context.Background(), "c-1", "student-1", "final version")
	require.NoError(t, err)
	require.Equal(t, "final version", comment.Body)
	require.NotNil(t, comment.EditedAt)
	require.Len(t, history.entries, 1)
	require.Equal(t, models.HistoryActionCommentEdited, history.entries[0].Action)
}

func TestCommentEditByOtherUserDenied(t *testing.T) {
	store := newCommentCatalogStub()
	store.comments["c-1"] = &models.Comment{ID: "c-1", DeliverableID: "deliv-1", AuthorID: "student-1", Body: "draft"}
	svc := NewCommentService(store, NewHistoryService(&historyStoreStub{}, nil), nil)

	_, err := svc.Edit(context.Background(), "c-1", "student-2", "hijacked")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
	require.Equal(t, "draft", store.comments["c-1"].Body)
}

func TestCommentDeleteByAuthor(t *testing.T) {
	store := newCommentCatalogStub()
	store.comments["c-1"] = &models.Comment{ID: "c-1", DeliverableID: "deliv-1", AuthorID: "student-1"}
	history := &historyStoreStub{}
	svc := NewCommentService(store, NewHistoryService(history, nil), nil)

	require.NoError(t, svc.Delete(context.Background(), "c-1", "student-1"))
	require.Empty(t, store.comments)
	require.Len(t, history.entries, 1)
	require.Equal(t, models.HistoryActionCommentDeleted, history.entries[0].Action)
}

func TestCommentListRequiresDeliverable(t *testing.T) {
	svc := NewCommentService(newCommentCatalogStub(), NewHistoryService(&historyStoreStub{}, nil), nil)

	_, err := svc.List(context.Background(), "", models.CommentFilter{})
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}
