package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/pkg/config"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type notificationStoreStub struct {
	mu            sync.Mutex
	notifications map[string]*models.Notification
}

func newNotificationStoreStub() *notificationStoreStub {
	return &notificationStoreStub{notifications: make(map[string]*models.Notification)}
}

func (s *notificationStoreStub) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = "n-" + n.UserID
	}
	copied := *n
	s.notifications[n.ID] = &copied
	return nil
}

func (s *notificationStoreStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if filter.UserID != "" && n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		result = append(result, *n)
	}
	return result, nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, userID string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID || n.Read {
		return sql.ErrNoRows
	}
	n.Read = true
	n.ReadAt = &readAt
	return nil
}

func (s *notificationStoreStub) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func testNotificationConfig() config.NotificationsConfig {
	return config.NotificationsConfig{
		Workers:         1,
		BufferSize:      8,
		MaxRetries:      1,
		RetryDelay:      time.Millisecond,
		DispatchTimeout: time.Second,
	}
}

func TestNotificationSendPersistsAndDelivers(t *testing.T) {
	store := newNotificationStoreStub()
	delivered := make(chan models.Notification, 1)
	deliverer := DelivererFunc(func(ctx context.Context, n models.Notification) error {
		delivered <- n
		return nil
	})
	svc := NewNotificationService(store, deliverer, testNotificationConfig(), nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	err := svc.Send(context.Background(), "student-1", Message{
		Title:    "Deliverable approved",
		Category: models.NotificationDecision,
	})
	require.NoError(t, err)

	select {
	case n := <-delivered:
		require.Equal(t, "student-1", n.UserID)
		require.Equal(t, models.NotificationDecision, n.Category)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never happened")
	}

	count, err := svc.UnreadCount(context.Background(), "student-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNotificationSendRequiresRecipient(t *testing.T) {
	svc := NewNotificationService(newNotificationStoreStub(), nil, testNotificationConfig(), nil, nil)

	err := svc.Send(context.Background(), "", Message{Title: "orphan"})
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestNotificationSendSurvivesDeliveryFailure(t *testing.T) {
	store := newNotificationStoreStub()
	deliverer := DelivererFunc(func(ctx context.Context, n models.Notification) error {
		return context.DeadlineExceeded
	})
	svc := NewNotificationService(store, deliverer, testNotificationConfig(), nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	// The row persists even though every delivery attempt fails.
	require.NoError(t, svc.Send(context.Background(), "student-1", Message{Title: "lost"}))

	inbox, err := svc.Inbox(context.Background(), "student-1", models.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}

func TestNotificationMarkReadReplay(t *testing.T) {
	store := newNotificationStoreStub()
	svc := NewNotificationService(store, nil, testNotificationConfig(), nil, nil)

	n := &models.Notification{ID: "n-1", UserID: "student-1", Title: "hello"}
	require.NoError(t, store.Create(context.Background(), n))

	require.NoError(t, svc.MarkRead(context.Background(), "n-1", "student-1"))

	err := svc.MarkRead(context.Background(), "n-1", "student-1")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestNotificationInboxScopedToUser(t *testing.T) {
	store := newNotificationStoreStub()
	svc := NewNotificationService(store, nil, testNotificationConfig(), nil, nil)

	require.NoError(t, store.Create(context.Background(), &models.Notification{ID: "n-1", UserID: "student-1"}))
	require.NoError(t, store.Create(context.Background(), &models.Notification{ID: "n-2", UserID: "student-2"}))

	inbox, err := svc.Inbox(context.Background(), "student-1", models.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.Equal(t, "student-1", inbox[0].UserID)
}
