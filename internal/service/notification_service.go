package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/pkg/config"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
	"github.com/titulapp/capstone-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string, readAt time.Time) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Deliverer pushes a stored notification to an external channel (mail,
// webhook, push). Implementations live outside this service.
type Deliverer interface {
	Deliver(ctx context.Context, n models.Notification) error
}

// DelivererFunc allows using plain functions as deliverers.
type DelivererFunc func(ctx context.Context, n models.Notification) error

// Deliver implements Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, n models.Notification) error {
	return f(ctx, n)
}

// Message is the payload handed to Send by the workflow engine.
type Message struct {
	Title    string
	Body     string
	Category models.NotificationCategory
	Link     string
}

// NotificationService persists notifications and hands delivery to a
// bounded worker queue. Delivery is best effort: a failed or timed-out
// dispatch is retried by the queue and never surfaces to the caller's
// request path.
type NotificationService struct {
	repo      notificationStore
	deliverer Deliverer
	queue     *jobs.Queue
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewNotificationService constructs the service and its delivery queue.
func NewNotificationService(repo notificationStore, deliverer Deliverer, cfg config.NotificationsConfig, logger *zap.Logger, metrics *MetricsService) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deliverer == nil {
		deliverer = DelivererFunc(func(ctx context.Context, n models.Notification) error {
			logger.Debug("notification delivery skipped, no deliverer configured", zap.String("notification_id", n.ID))
			return nil
		})
	}
	timeout := cfg.DispatchTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	svc := &NotificationService{
		repo:      repo,
		deliverer: deliverer,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
	svc.queue = jobs.NewQueue("notifications", svc.handleDelivery, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Send stores the notification and schedules its delivery. A persistence
// failure is returned so the caller can decide whether to log or abort; an
// enqueue failure is only logged because the row already exists and the
// inbox listing will still surface it.
func (s *NotificationService) Send(ctx context.Context, userID string, msg Message) error {
	if userID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "recipient is required")
	}
	n := &models.Notification{
		UserID:   userID,
		Title:    msg.Title,
		Body:     msg.Body,
		Category: msg.Category,
	}
	if msg.Link != "" {
		link := msg.Link
		n.Link = &link
	}
	if err := s.repo.Create(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.RecordNotification(false)
		}
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to store notification")
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(true)
	}
	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: "deliver", Payload: *n}); err != nil {
		s.logger.Warn("failed to enqueue notification delivery", zap.String("notification_id", n.ID), zap.Error(err))
	}
	return nil
}

func (s *NotificationService) handleDelivery(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("invalid notification payload", zap.String("job_id", job.ID))
		return nil
	}
	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.deliverer.Deliver(dctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.RecordDelivery(false)
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordDelivery(true)
	}
	return nil
}

// Inbox lists a user's notifications newest first.
func (s *NotificationService) Inbox(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, error) {
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	filter.UserID = userID
	notifications, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flips the read flag once; re-reads are reported as not found so
// clients can distinguish replays.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID, time.Now().UTC()); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found or already read")
	}
	return nil
}

// UnreadCount returns the unread badge count for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to count notifications")
	}
	return count, nil
}
