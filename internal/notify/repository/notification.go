package repository

import (
	"context"
	"fmt"
	"time"

	notifyerrors "clinic/internal/notify/errors"
	"clinic/pkg/config"
	mongotx "clinic/pkg/db/mongo"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Notifications"
)

type mongoNotificationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	CountUnreadByUser(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoNotificationRepository(cfg *config.Config) NotificationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoNotificationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoNotificationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining > timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	n.IsRead = false
	n.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid.Hex()
	}
	return nil
}

func (r *mongoNotificationRepository) ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*model.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (r *mongoNotificationRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, bson.M{"user_id": userID})
}

func (r *mongoNotificationRepository) CountUnreadByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, bson.M{"user_id": userID, "is_read": false})
}

func (r *mongoNotificationRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips the read flag only when the notification belongs to userID,
// so a caller cannot mark someone else's notification by guessing IDs.
func (r *mongoNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", notifyerrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "user_id": userID}
	update := bson.M{"$set": bson.M{"is_read": true}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", notifyerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoNotificationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
