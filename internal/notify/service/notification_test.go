package service

import (
	"context"
	"io"
	"testing"

	"clinic/pkg/auth"
	"clinic/pkg/config"
	mongotx "clinic/pkg/db/mongo"
	apperrors "clinic/pkg/errors"
	"clinic/pkg/kafka"
	"clinic/pkg/logger"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const testUserID = "656f1f77bcf86cd799439011"

type mockNotificationRepository struct {
	createFn          func(ctx context.Context, n *model.Notification) error
	listByUserFn      func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error)
	countByUserFn     func(ctx context.Context, userID string) (int64, error)
	countUnreadFn     func(ctx context.Context, userID string) (int64, error)
	markReadFn        func(ctx context.Context, id, userID string) error
	transactionCtx    mongo.SessionContext
	executeTransactFn func(ctx context.Context, fn mongotx.TransactionFunc) error
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if m.createFn != nil {
		return m.createFn(ctx, n)
	}
	n.ID = "656f1f77bcf86cd799439099"
	return nil
}

func (m *mockNotificationRepository) ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockNotificationRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFn != nil {
		return m.countByUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationRepository) CountUnreadByUser(ctx context.Context, userID string) (int64, error) {
	if m.countUnreadFn != nil {
		return m.countUnreadFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, id, userID)
	}
	return nil
}

func (m *mockNotificationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.executeTransactFn != nil {
		return m.executeTransactFn(ctx, fn)
	}
	return fn(m.transactionCtx)
}

type mockPublisher struct {
	events []kafka.Message
}

func (m *mockPublisher) Publish(_ context.Context, msg kafka.Message) error {
	m.events = append(m.events, msg)
	return nil
}

func newTestService(repo *mockNotificationRepository, pub EventPublisher) NotificationService {
	log := logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard})
	cfg := &config.Config{Log: log}
	return NewNotificationService(repo, pub, cfg, log)
}

func userCtx() context.Context {
	return auth.WithUser(context.Background(), auth.User{ID: testUserID, Role: auth.RolePatient})
}

func TestPushPersistsAndPublishes(t *testing.T) {
	var created *model.Notification
	repo := &mockNotificationRepository{
		createFn: func(_ context.Context, n *model.Notification) error {
			n.ID = "656f1f77bcf86cd799439099"
			created = n
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestService(repo, pub)

	err := svc.Push(context.Background(), testUserID, "Reminder", "See you tomorrow", model.CategoryReminder)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if created == nil {
		t.Fatal("Push() never persisted the notification")
	}
	if created.Category != model.CategoryReminder {
		t.Errorf("Category = %q, want %q", created.Category, model.CategoryReminder)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if got := pub.events[0].GetEventType(); got != kafka.EventNotificationCreated {
		t.Errorf("event type = %q, want %q", got, kafka.EventNotificationCreated)
	}
}

func TestPushWithNilPublisher(t *testing.T) {
	svc := newTestService(&mockNotificationRepository{}, nil)

	if err := svc.Push(context.Background(), testUserID, "Title", "Body", model.CategorySystem); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
}

func TestListForUserPaginatesOwnRows(t *testing.T) {
	repo := &mockNotificationRepository{
		listByUserFn: func(_ context.Context, userID string, limit int, offset int64) ([]*model.Notification, error) {
			if userID != testUserID {
				t.Errorf("ListByUser(%q), want session user %q", userID, testUserID)
			}
			return []*model.Notification{{ID: "n1"}, {ID: "n2"}}, nil
		},
		countByUserFn: func(_ context.Context, userID string) (int64, error) {
			return 7, nil
		},
	}
	svc := newTestService(repo, nil)

	notifications, total, err := svc.ListForUser(userCtx(), 2, 0)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("len(notifications) = %d, want 2", len(notifications))
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
}

func TestUnreadCount(t *testing.T) {
	repo := &mockNotificationRepository{
		countUnreadFn: func(_ context.Context, userID string) (int64, error) {
			if userID != testUserID {
				t.Errorf("CountUnreadByUser(%q), want %q", userID, testUserID)
			}
			return 3, nil
		},
	}
	svc := newTestService(repo, nil)

	count, err := svc.UnreadCount(userCtx())
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	repo := &mockNotificationRepository{
		markReadFn: func(_ context.Context, id, userID string) error {
			if userID != testUserID {
				t.Errorf("MarkRead scoped to %q, want session user %q", userID, testUserID)
			}
			return nil
		},
	}
	svc := newTestService(repo, nil)

	if err := svc.MarkRead(userCtx(), "656f1f77bcf86cd799439055"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
}

func TestMarkReadRequiresAuth(t *testing.T) {
	svc := newTestService(&mockNotificationRepository{}, nil)

	err := svc.MarkRead(context.Background(), "656f1f77bcf86cd799439055")
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("MarkRead() error = %v, want unauthorized", err)
	}
}
