package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appointmentserrors "clinic/internal/appointments/errors"
	"clinic/internal/appointments/repository"
	"clinic/internal/appointments/validator"
	"clinic/internal/availability"
	"clinic/pkg/auth"
	"clinic/pkg/config"
	apperrors "clinic/pkg/errors"
	"clinic/pkg/kafka"
	"clinic/pkg/model"
	"clinic/pkg/sanitizer"
	"clinic/pkg/timeutil"

	"go.mongodb.org/mongo-driver/mongo"
)

// WaitlistSource is the slice of the waitlist repository the cancel flow
// needs. Both calls run inside the cancellation transaction.
type WaitlistSource interface {
	PendingForDoctor(ctx context.Context, doctorID string) ([]*model.WaitlistRequest, error)
	MarkNotified(ctx context.Context, id string) error
}

// Notifier persists a notification for a user; sessCtx-aware so the cancel
// flow keeps notification rows transactional with the waitlist flag flips.
type Notifier interface {
	Push(ctx context.Context, userID, title, message string, category model.NotificationCategory) error
}

// EventPublisher publishes appointment lifecycle events. Publishing happens
// after commit and is best-effort; failures are logged, never surfaced.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type AppointmentService interface {
	Create(ctx context.Context, a *model.Appointment) error
	Cancel(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	ListMine(ctx context.Context, limit int, offset int64) ([]*model.Appointment, int64, error)
	ListForDoctor(ctx context.Context, doctorID string, day time.Time) ([]*model.Appointment, error)
	ListUpcomingForDoctor(ctx context.Context, doctorID string, days int) ([]*model.Appointment, error)
}

type appointmentService struct {
	repo         repository.AppointmentRepository
	lockRepo     repository.SlotLockRepository
	availability availability.Service
	waitlist     WaitlistSource
	notifier     Notifier
	events       EventPublisher
	validator    *validator.AppointmentValidator
	cfg          *config.Config
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	lockRepo repository.SlotLockRepository,
	availabilitySvc availability.Service,
	waitlist WaitlistSource,
	notifier Notifier,
	events EventPublisher,
	validator *validator.AppointmentValidator,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:         repo,
		lockRepo:     lockRepo,
		availability: availabilitySvc,
		waitlist:     waitlist,
		notifier:     notifier,
		events:       events,
		validator:    validator,
		cfg:          cfg,
	}
}

// Create books one slot for the authenticated patient. The identity always
// comes from the session, never from the request body. The availability
// check is re-derived from the templates at booking time; the insert then
// runs under an advisory slot lock and the storage-level uniqueness
// constraint, so two racing requests for the same slot cannot both land.
func (s *appointmentService) Create(ctx context.Context, a *model.Appointment) error {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}
	if user.Role != auth.RolePatient {
		return apperrors.Forbidden("Only patients can book appointments")
	}

	a.PatientID = user.ID
	a.DateTime = timeutil.TruncateMinute(a.DateTime.UTC())
	a.Status = model.StatusScheduled
	s.sanitize(a)

	if err := s.validator.Validate(a); err != nil {
		s.cfg.Log.Warn("Appointment validation failed",
			"patient_id", a.PatientID,
			"doctor_id", a.DoctorID,
			"error", err,
		)
		return apperrors.Validation("Appointment validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	available, err := s.availability.IsAvailable(ctx, a.DoctorID, a.DateTime)
	if err != nil {
		return err
	}
	if !available {
		return apperrors.Conflict("The requested time slot is not available")
	}

	// Advisory lock narrows the race window between the availability check
	// and the insert; the partial unique index settles whatever remains.
	lockID, err := s.acquireSlotLock(ctx, a.DoctorID, a.DateTime)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, a); err != nil {
			if errors.Is(err, appointmentserrors.ErrSlotTaken) {
				return apperrors.Conflict("The requested time slot is not available")
			}
			return apperrors.Internal("Failed to create appointment", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create appointment",
			"patient_id", a.PatientID,
			"doctor_id", a.DoctorID,
			"date_time", a.DateTime,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Appointment created successfully",
		"id", a.ID,
		"patient_id", a.PatientID,
		"doctor_id", a.DoctorID,
		"date_time", a.DateTime,
	)
	s.publishEvent(ctx, kafka.EventAppointmentBooked, a)
	return nil
}

// Cancel flips one appointment to cancelled and, inside the same
// transaction, notifies every un-notified waitlist entry for the doctor that
// a slot opened. Each waitlist entry is notified at most once; after the
// flag flips the entry is inert.
func (s *appointmentService) Cancel(ctx context.Context, id string) error {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}

	a, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.Role != auth.RoleAdmin && user.ID != a.PatientID {
		return apperrors.Forbidden("Appointments can only be cancelled by their patient")
	}
	if a.Status == model.StatusCompleted || a.Status == model.StatusCancelled {
		return apperrors.Conflict(fmt.Sprintf("Appointment in status %q cannot be cancelled", a.Status))
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, id, model.StatusCancelled); err != nil {
			return apperrors.Internal("Failed to cancel appointment", err)
		}

		pending, err := s.waitlist.PendingForDoctor(sessCtx, a.DoctorID)
		if err != nil {
			return apperrors.Internal("Failed to load waitlist", err)
		}
		for _, w := range pending {
			message := fmt.Sprintf("A slot with your doctor opened up on %s. Book now before it is taken.",
				a.DateTime.Format("2006-01-02 15:04"))
			if err := s.notifier.Push(sessCtx, w.PatientID, "A slot has opened up", message, model.CategoryAppointment); err != nil {
				return apperrors.Internal("Failed to create waitlist notification", err)
			}
			if err := s.waitlist.MarkNotified(sessCtx, w.ID); err != nil {
				return apperrors.Internal("Failed to mark waitlist entry notified", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel appointment", "id", id, "error", err)
		return err
	}

	a.Status = model.StatusCancelled
	s.cfg.Log.Info("Appointment cancelled successfully",
		"id", id,
		"doctor_id", a.DoctorID,
		"date_time", a.DateTime,
	)
	s.publishEvent(ctx, kafka.EventAppointmentCancelled, a)
	s.publishEvent(ctx, kafka.EventSlotOpened, a)
	return nil
}

// UpdateStatus is the doctor-side lifecycle surface. Transitions follow the
// appointment state machine; terminal statuses are immutable.
func (s *appointmentService) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}

	switch status {
	case model.StatusConfirmed, model.StatusInProgress, model.StatusCompleted, model.StatusCancelled, model.StatusNoShow:
	default:
		return apperrors.InvalidInput(fmt.Sprintf("Unknown appointment status: %q", status))
	}

	a, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.Role != auth.RoleAdmin && !(user.Role == auth.RoleDoctor && user.ID == a.DoctorID) {
		return apperrors.Forbidden("Appointment status can only be changed by the appointment's doctor")
	}
	if !a.Status.CanTransition(status) {
		return apperrors.Conflict(fmt.Sprintf("Appointment cannot move from %q to %q", a.Status, status))
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, id, status); err != nil {
			return apperrors.Internal("Failed to update appointment status", err)
		}
		message := fmt.Sprintf("Your appointment on %s is now %s.",
			a.DateTime.Format("2006-01-02 15:04"), status)
		if err := s.notifier.Push(sessCtx, a.PatientID, "Appointment updated", message, model.CategoryAppointment); err != nil {
			return apperrors.Internal("Failed to create status notification", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update appointment status",
			"id", id,
			"status", status,
			"error", err,
		)
		return err
	}

	a.Status = status
	s.cfg.Log.Info("Appointment status updated",
		"id", id,
		"doctor_id", a.DoctorID,
		"status", status,
	)
	s.publishEvent(ctx, kafka.EventAppointmentStatus, a)
	return nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", id)
		}
		if errors.Is(err, appointmentserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid appointment ID format")
		}
		s.cfg.Log.Error("Failed to get appointment by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve appointment", err)
	}

	if user, ok := auth.FromContext(ctx); ok {
		if user.Role != auth.RoleAdmin && user.ID != a.PatientID && user.ID != a.DoctorID {
			return nil, apperrors.Forbidden("Appointments are visible only to their patient and doctor")
		}
	}

	return a, nil
}

func (s *appointmentService) ListMine(ctx context.Context, limit int, offset int64) ([]*model.Appointment, int64, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var appointments []*model.Appointment
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByPatient(ctx, user.ID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count appointments", "patient_id", user.ID, "error", errCount)
			errCount = apperrors.Internal("Failed to count appointments", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		appointments, errFind = s.repo.ListByPatient(ctx, user.ID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list appointments", "patient_id", user.ID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve appointments", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return appointments, count, nil
}

func (s *appointmentService) ListForDoctor(ctx context.Context, doctorID string, day time.Time) ([]*model.Appointment, error) {
	if err := s.canReadDoctorCalendar(ctx, doctorID); err != nil {
		return nil, err
	}

	from := timeutil.DayStart(day.UTC())
	to := from.AddDate(0, 0, 1)

	appointments, err := s.repo.ListForDoctorRange(ctx, doctorID, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to list doctor appointments",
			"doctor_id", doctorID,
			"day", from.Format("2006-01-02"),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve appointments", err)
	}
	return appointments, nil
}

func (s *appointmentService) ListUpcomingForDoctor(ctx context.Context, doctorID string, days int) ([]*model.Appointment, error) {
	if err := s.canReadDoctorCalendar(ctx, doctorID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}

	from := time.Now().UTC()
	to := timeutil.DayStart(from).AddDate(0, 0, days+1)

	appointments, err := s.repo.ListForDoctorRange(ctx, doctorID, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to list upcoming doctor appointments",
			"doctor_id", doctorID,
			"days", days,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve appointments", err)
	}
	return appointments, nil
}

// --- Helpers ---

func (s *appointmentService) canReadDoctorCalendar(ctx context.Context, doctorID string) error {
	if doctorID == "" {
		return apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	user, ok := auth.FromContext(ctx)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}
	if user.Role == auth.RoleAdmin {
		return nil
	}
	if user.Role == auth.RoleDoctor && user.ID == doctorID {
		return nil
	}
	return apperrors.Forbidden("Doctor calendars are visible only to the doctor")
}

func (s *appointmentService) sanitize(a *model.Appointment) {
	a.Reason = sanitizer.SanitizeFreeText(a.Reason)
	a.Notes = sanitizer.SanitizeFreeText(a.Notes)
}

// acquireSlotLock creates an advisory lock for one (doctor, minute) slot.
// Returns the lock ID if successful, or conflict error if lock already exists.
func (s *appointmentService) acquireSlotLock(ctx context.Context, doctorID string, at time.Time) (string, error) {
	lockID := fmt.Sprintf("slot_%s_%d", doctorID, at.Unix())

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

// releaseSlotLock removes the advisory lock
func (s *appointmentService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func (s *appointmentService) publishEvent(ctx context.Context, eventType string, a *model.Appointment) {
	if s.events == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(a.DoctorID).
		WithEventType(eventType).
		WithSource("clinic").
		WithValue(a).
		Build()

	if err := s.events.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish appointment event",
			"event_type", eventType,
			"appointment_id", a.ID,
			"error", err,
		)
	}
}
