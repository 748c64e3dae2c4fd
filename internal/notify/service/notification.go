package service

import (
	"context"
	"errors"
	"sync"

	notifyerrors "clinic/internal/notify/errors"
	"clinic/internal/notify/repository"
	"clinic/pkg/auth"
	"clinic/pkg/config"
	apperrors "clinic/pkg/errors"
	"clinic/pkg/kafka"
	"clinic/pkg/logger"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// EventPublisher publishes notification events. Nil is allowed; publishing is
// best-effort and failures are logged, never surfaced.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type NotificationService interface {
	Push(ctx context.Context, userID, title, message string, category model.NotificationCategory) error
	ListForUser(ctx context.Context, limit int, offset int64) ([]*model.Notification, int64, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id string) error
}

type notificationService struct {
	repository repository.NotificationRepository
	events     EventPublisher
	cfg        *config.Config
	log        *logger.Logger
}

func NewNotificationService(
	repository repository.NotificationRepository,
	events EventPublisher,
	cfg *config.Config,
	log *logger.Logger,
) NotificationService {
	return &notificationService{
		repository: repository,
		events:     events,
		cfg:        cfg,
		log:        log,
	}
}

// Push persists a notification row. It is safe to call inside a transaction:
// the row commits or rolls back with the caller's other writes, and the Kafka
// event is deferred to the flow that owns the transaction.
func (s *notificationService) Push(ctx context.Context, userID, title, message string, category model.NotificationCategory) error {
	n := &model.Notification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Category: category,
	}

	if err := s.repository.Create(ctx, n); err != nil {
		return apperrors.Internal("Failed to create notification", err)
	}

	if _, inTx := ctx.(mongo.SessionContext); inTx {
		return nil
	}
	s.publishCreated(ctx, n)
	return nil
}

func (s *notificationService) publishCreated(ctx context.Context, n *model.Notification) {
	if s.events == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(n.UserID).
		WithEventType(kafka.EventNotificationCreated).
		WithSource("clinic.notify").
		WithValue(n).
		Build()

	if err := s.events.Publish(ctx, msg); err != nil {
		s.log.Error("failed to publish notification event",
			"event_type", kafka.EventNotificationCreated,
			"user_id", n.UserID,
			"error", err)
	}
}

func (s *notificationService) ListForUser(ctx context.Context, limit int, offset int64) ([]*model.Notification, int64, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var notifications []*model.Notification
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repository.CountByUser(ctx, user.ID)
		if errCount != nil {
			s.log.Error("Failed to count notifications", "user_id", user.ID, "error", errCount)
			errCount = apperrors.Internal("Failed to count notifications", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		notifications, errFind = s.repository.ListByUser(ctx, user.ID, limit, offset)
		if errFind != nil {
			s.log.Error("Failed to list notifications", "user_id", user.ID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve notifications", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return notifications, count, nil
}

func (s *notificationService) UnreadCount(ctx context.Context) (int64, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return 0, apperrors.Unauthorized("Authentication required")
	}

	count, err := s.repository.CountUnreadByUser(ctx, user.ID)
	if err != nil {
		return 0, apperrors.Internal("Failed to count unread notifications", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}

	if err := s.repository.MarkRead(ctx, id, user.ID); err != nil {
		if errors.Is(err, notifyerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid notification ID")
		}
		if errors.Is(err, notifyerrors.ErrNotFound) {
			return apperrors.NotFound("notification")
		}
		return apperrors.Internal("Failed to mark notification read", err)
	}
	return nil
}
