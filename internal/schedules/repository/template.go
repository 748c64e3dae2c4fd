package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	scheduleserrors "clinic/internal/schedules/errors"
	"clinic/pkg/config"
	mongotx "clinic/pkg/db/mongo"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Schedules"
)

type mongoTemplateRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type TemplateRepository interface {
	Create(ctx context.Context, t *model.ScheduleTemplate) error
	FindByID(ctx context.Context, id string) (*model.ScheduleTemplate, error)
	FindByDoctor(ctx context.Context, doctorID string) ([]*model.ScheduleTemplate, error)
	ActiveByDoctor(ctx context.Context, doctorID string) ([]*model.ScheduleTemplate, error)
	ActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.ScheduleTemplate, error)
	Update(ctx context.Context, id string, t *model.ScheduleTemplate) (*mongo.UpdateResult, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoTemplateRepository(cfg *config.Config) TemplateRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTemplateRepository{
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
func (r *mongoTemplateRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoTemplateRepository) Create(ctx context.Context, t *model.ScheduleTemplate) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to create schedule template: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTemplateRepository) FindByID(ctx context.Context, id string) (*model.ScheduleTemplate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}

	var t model.ScheduleTemplate
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find schedule template: %w", err)
	}

	return &t, nil
}

// weeklyOrder keeps the listing stable: templates come back in the order a
// week unfolds, earliest start first within a day.
var weeklyOrder = bson.D{
	{Key: "day_of_week", Value: 1},
	{Key: "start_time", Value: 1},
}

func (r *mongoTemplateRepository) FindByDoctor(ctx context.Context, doctorID string) ([]*model.ScheduleTemplate, error) {
	return r.find(ctx, bson.M{"doctor_id": doctorID})
}

func (r *mongoTemplateRepository) ActiveByDoctor(ctx context.Context, doctorID string) ([]*model.ScheduleTemplate, error) {
	return r.find(ctx, bson.M{"doctor_id": doctorID, "is_active": true})
}

func (r *mongoTemplateRepository) ActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.ScheduleTemplate, error) {
	return r.find(ctx, bson.M{"doctor_id": doctorID, "day_of_week": dayOfWeek, "is_active": true})
}

func (r *mongoTemplateRepository) find(ctx context.Context, filter bson.M) ([]*model.ScheduleTemplate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(weeklyOrder)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []*model.ScheduleTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode schedule templates: %w", err)
	}
	return templates, nil
}

func (r *mongoTemplateRepository) Update(ctx context.Context, id string, t *model.ScheduleTemplate) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"day_of_week":           t.DayOfWeek,
			"start_time":            t.StartTime,
			"end_time":              t.EndTime,
			"slot_duration_minutes": t.SlotDurationMinutes,
			"break_start":           t.BreakStart,
			"break_end":             t.BreakEnd,
			"max_patients":          t.MaxPatients,
			"updated_at":            time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule template: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
	}

	return result, nil
}

func (r *mongoTemplateRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"is_active":  active,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to set schedule template active flag: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoTemplateRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete schedule template: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoTemplateRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
