package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinic/internal/migrations/mongo/validators"
	"clinic/pkg/model"
)

var (
	SchedulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "doctor_id", Value: 1},
			{Key: "day_of_week", Value: 1},
			{Key: "is_active", Value: 1},
		}},
	}

	// The partial unique index is the storage-level guarantee that one
	// doctor slot is held by at most one live appointment. Cancelled,
	// completed and no-show rows fall outside the filter, so a freed slot
	// can be rebooked without deleting history.
	AppointmentsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "doctor_id", Value: 1},
				{Key: "date_time", Value: 1},
			},
			Options: options.Index().
				SetName("unique_live_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": model.OccupyingStatuses},
				}),
		},
		{Keys: bson.D{
			{Key: "patient_id", Value: 1},
			{Key: "date_time", Value: -1},
		}},
	}

	WaitlistIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "doctor_id", Value: 1},
			{Key: "is_notified", Value: 1},
		}},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
	}

	// Abandoned advisory locks expire server-side once expires_at passes.
	SlotLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running clinic Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Schedules": {
			Indexes:   SchedulesIndexes,
			Validator: validators.ScheduleTemplateValidator,
		},
		"Appointments": {
			Indexes:   AppointmentsIndexes,
			Validator: validators.AppointmentValidator,
		},
		"Waitlist": {
			Indexes:   WaitlistIndexes,
			Validator: validators.WaitlistValidator,
		},
		"Notifications": {
			Indexes:   NotificationsIndexes,
			Validator: validators.NotificationValidator,
		},
		"Slot_locks": {
			Indexes:   SlotLocksIndexes,
			Validator: validators.SlotLockValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
