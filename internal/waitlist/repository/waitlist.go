package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	waitlisterrors "clinic/internal/waitlist/errors"
	"clinic/pkg/config"
	mongotx "clinic/pkg/db/mongo"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Waitlist"
)

type mongoWaitlistRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type WaitlistRepository interface {
	Create(ctx context.Context, w *model.WaitlistRequest) error
	ExistsPending(ctx context.Context, patientID, doctorID string) (bool, error)
	PendingForDoctor(ctx context.Context, doctorID string) ([]*model.WaitlistRequest, error)
	ListByPatient(ctx context.Context, patientID string) ([]*model.WaitlistRequest, error)
	MarkNotified(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoWaitlistRepository(cfg *config.Config) WaitlistRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWaitlistRepository{
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
func (r *mongoWaitlistRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoWaitlistRepository) Create(ctx context.Context, w *model.WaitlistRequest) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	w.IsNotified = false
	w.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, w)
	if err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		w.ID = oid.Hex()
	}
	return nil
}

func (r *mongoWaitlistRepository) ExistsPending(ctx context.Context, patientID, doctorID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"patient_id":  patientID,
		"doctor_id":   doctorID,
		"is_notified": false,
	}

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := r.collection.FindOne(ctx, filter, opts).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check pending waitlist entry: %w", err)
	}
	return true, nil
}

func (r *mongoWaitlistRepository) PendingForDoctor(ctx context.Context, doctorID string) ([]*model.WaitlistRequest, error) {
	return r.find(ctx, bson.M{"doctor_id": doctorID, "is_notified": false})
}

func (r *mongoWaitlistRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.WaitlistRequest, error) {
	return r.find(ctx, bson.M{"patient_id": patientID})
}

// find returns entries oldest first so cancellation notifications go out in
// join order.
func (r *mongoWaitlistRepository) find(ctx context.Context, filter bson.M) ([]*model.WaitlistRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitlistRequest
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode waitlist entries: %w", err)
	}
	return entries, nil
}

func (r *mongoWaitlistRepository) MarkNotified(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", waitlisterrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{"is_notified": true},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark waitlist entry notified: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", waitlisterrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoWaitlistRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
