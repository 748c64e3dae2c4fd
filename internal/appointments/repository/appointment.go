package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentserrors "clinic/internal/appointments/errors"
	"clinic/pkg/config"
	mongotx "clinic/pkg/db/mongo"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Appointments"
)

type mongoAppointmentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error
	ListByPatient(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, error)
	CountByPatient(ctx context.Context, patientID string) (int64, error)
	ListForDoctorRange(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error)
	ListOccupying(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error)
	ExistsOccupying(ctx context.Context, doctorID string, at time.Time) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context
// unchanged with a no-op cancel function.
func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

// occupyingFilter matches appointments that currently hold their slot.
func occupyingFilter() bson.M {
	return bson.M{"status": bson.M{"$in": model.OccupyingStatuses}}
}

// Create inserts the appointment. The collection carries a partial unique
// index on (doctor_id, date_time) restricted to occupying statuses; a
// duplicate-key error therefore means the slot was taken by a concurrent
// booking and is mapped to ErrSlotTaken.
func (r *mongoAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	a.CreatedAt = now
	a.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: doctor %s at %s", appointmentserrors.ErrSlotTaken, a.DoctorID, a.DateTime)
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}

	var a model.Appointment
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &a, nil
}

func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoAppointmentRepository) ListByPatient(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "date_time", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"patient_id": patientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func (r *mongoAppointmentRepository) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *mongoAppointmentRepository) ListForDoctorRange(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
	return r.list(ctx, bson.M{
		"doctor_id": doctorID,
		"date_time": bson.M{"$gte": from, "$lt": to},
	})
}

func (r *mongoAppointmentRepository) ListOccupying(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
	filter := occupyingFilter()
	filter["doctor_id"] = doctorID
	filter["date_time"] = bson.M{"$gte": from, "$lt": to}
	return r.list(ctx, filter)
}

func (r *mongoAppointmentRepository) list(ctx context.Context, filter bson.M) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func (r *mongoAppointmentRepository) ExistsOccupying(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := occupyingFilter()
	filter["doctor_id"] = doctorID
	filter["date_time"] = at

	err := r.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check slot occupancy: %w", err)
	}
	return true, nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
