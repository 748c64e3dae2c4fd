package service

import (
	"context"
	"io"
	"testing"
	"time"

	appointmentserrors "clinic/internal/appointments/errors"
	"clinic/internal/appointments/validator"
	"clinic/pkg/auth"
	"clinic/pkg/config"
	mongotx "clinic/pkg/db/mongo"
	apperrors "clinic/pkg/errors"
	"clinic/pkg/kafka"
	"clinic/pkg/logger"
	"clinic/pkg/model"
)

const (
	testPatientID = "507f1f77bcf86cd799439011"
	testDoctorID  = "507f1f77bcf86cd799439022"
	testAdminID   = "507f1f77bcf86cd799439033"
	testApptID    = "507f1f77bcf86cd799439044"
)

var testSlot = time.Date(2026, time.March, 9, 9, 30, 0, 0, time.UTC)

// Mock appointment repository
type mockAppointmentRepository struct {
	createFunc       func(ctx context.Context, a *model.Appointment) error
	findByIDFunc     func(ctx context.Context, id string) (*model.Appointment, error)
	updateStatusFunc func(ctx context.Context, id string, status model.AppointmentStatus) error
	listByPatient    func(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, error)
	countByPatient   func(ctx context.Context, patientID string) (int64, error)
	listForRangeFunc func(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error)
}

func (m *mockAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	return nil
}

func (m *mockAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, appointmentserrors.ErrNotFound
}

func (m *mockAppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockAppointmentRepository) ListByPatient(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, error) {
	if m.listByPatient != nil {
		return m.listByPatient(ctx, patientID, limit, offset)
	}
	return nil, nil
}

func (m *mockAppointmentRepository) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	if m.countByPatient != nil {
		return m.countByPatient(ctx, patientID)
	}
	return 0, nil
}

func (m *mockAppointmentRepository) ListForDoctorRange(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
	if m.listForRangeFunc != nil {
		return m.listForRangeFunc(ctx, doctorID, from, to)
	}
	return nil, nil
}

func (m *mockAppointmentRepository) ListOccupying(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
	return nil, nil
}

func (m *mockAppointmentRepository) ExistsOccupying(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	return false, nil
}

func (m *mockAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

// Mock slot lock repository
type mockSlotLockRepository struct {
	createFunc func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error)
	deleted    []string
}

func (m *mockSlotLockRepository) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockSlotLockRepository) Delete(ctx context.Context, lockID string) error {
	m.deleted = append(m.deleted, lockID)
	return nil
}

// Mock availability gate
type mockAvailability struct {
	available bool
}

func (m *mockAvailability) Slots(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error) {
	return nil, nil
}

func (m *mockAvailability) IsAvailable(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	return m.available, nil
}

func (m *mockAvailability) MonthAvailability(ctx context.Context, doctorID string, year int, month time.Month) ([]model.MonthDay, error) {
	return nil, nil
}

// Mock waitlist source
type mockWaitlist struct {
	pending  []*model.WaitlistRequest
	notified []string
}

func (m *mockWaitlist) PendingForDoctor(ctx context.Context, doctorID string) ([]*model.WaitlistRequest, error) {
	return m.pending, nil
}

func (m *mockWaitlist) MarkNotified(ctx context.Context, id string) error {
	m.notified = append(m.notified, id)
	return nil
}

// Mock notifier
type pushed struct {
	userID   string
	category model.NotificationCategory
}

type mockNotifier struct {
	pushes []pushed
}

func (m *mockNotifier) Push(ctx context.Context, userID, title, message string, category model.NotificationCategory) error {
	m.pushes = append(m.pushes, pushed{userID: userID, category: category})
	return nil
}

// Mock event publisher
type mockPublisher struct {
	events []string
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.events = append(m.events, msg.GetEventType())
	return nil
}

type fixture struct {
	repo      *mockAppointmentRepository
	locks     *mockSlotLockRepository
	gate      *mockAvailability
	waitlist  *mockWaitlist
	notifier  *mockNotifier
	publisher *mockPublisher
	svc       AppointmentService
}

func newFixture(repo *mockAppointmentRepository) *fixture {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Output: io.Discard})
	cfg := &config.Config{Log: log, SlotLockTTL: 10 * time.Second}

	f := &fixture{
		repo:      repo,
		locks:     &mockSlotLockRepository{},
		gate:      &mockAvailability{available: true},
		waitlist:  &mockWaitlist{},
		notifier:  &mockNotifier{},
		publisher: &mockPublisher{},
	}
	f.svc = NewAppointmentService(
		f.repo, f.locks, f.gate, f.waitlist, f.notifier, f.publisher,
		validator.NewAppointmentValidator(log), cfg,
	)
	return f
}

func patientCtx(id string) context.Context {
	return auth.WithUser(context.Background(), auth.User{ID: id, Role: auth.RolePatient})
}

func doctorCtx(id string) context.Context {
	return auth.WithUser(context.Background(), auth.User{ID: id, Role: auth.RoleDoctor})
}

func newAppointment() *model.Appointment {
	return &model.Appointment{
		DoctorID: testDoctorID,
		DateTime: testSlot,
		Reason:   "checkup",
	}
}

func TestCreateStampsIdentityAndTruncates(t *testing.T) {
	var created *model.Appointment
	f := newFixture(&mockAppointmentRepository{
		createFunc: func(ctx context.Context, a *model.Appointment) error {
			created = a
			return nil
		},
	})

	a := newAppointment()
	a.PatientID = "attacker-supplied"
	a.DateTime = testSlot.Add(42 * time.Second)

	if err := f.svc.Create(patientCtx(testPatientID), a); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}
	if created == nil {
		t.Fatal("repository Create was not called")
	}
	if created.PatientID != testPatientID {
		t.Errorf("PatientID = %q, want session identity %q", created.PatientID, testPatientID)
	}
	if !created.DateTime.Equal(testSlot) {
		t.Errorf("DateTime = %v, want minute-truncated %v", created.DateTime, testSlot)
	}
	if created.Status != model.StatusScheduled {
		t.Errorf("Status = %q, want %q", created.Status, model.StatusScheduled)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0] != kafka.EventAppointmentBooked {
		t.Errorf("published events = %v, want [%s]", f.publisher.events, kafka.EventAppointmentBooked)
	}
}

func TestCreateRejectsUnavailableSlot(t *testing.T) {
	f := newFixture(&mockAppointmentRepository{})
	f.gate.available = false

	err := f.svc.Create(patientCtx(testPatientID), newAppointment())
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("Create() = %v, want CONFLICT", err)
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("published events = %v, want none", f.publisher.events)
	}
}

func TestCreateMapsDuplicateKeyToConflict(t *testing.T) {
	f := newFixture(&mockAppointmentRepository{
		createFunc: func(ctx context.Context, a *model.Appointment) error {
			return appointmentserrors.ErrSlotTaken
		},
	})

	err := f.svc.Create(patientCtx(testPatientID), newAppointment())
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("Create() = %v, want CONFLICT", err)
	}
}

func TestCreateReleasesSlotLock(t *testing.T) {
	f := newFixture(&mockAppointmentRepository{})

	if err := f.svc.Create(patientCtx(testPatientID), newAppointment()); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}
	if len(f.locks.deleted) != 1 {
		t.Fatalf("released %d locks, want 1", len(f.locks.deleted))
	}
}

func TestCreateRejectsNonPatient(t *testing.T) {
	f := newFixture(&mockAppointmentRepository{})

	err := f.svc.Create(doctorCtx(testDoctorID), newAppointment())
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("Create() = %v, want FORBIDDEN", err)
	}
}

func existingAppointment(status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		ID:        testApptID,
		PatientID: testPatientID,
		DoctorID:  testDoctorID,
		DateTime:  testSlot,
		Status:    status,
	}
}

func repoWith(a *model.Appointment) *mockAppointmentRepository {
	return &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			cp := *a
			return &cp, nil
		},
	}
}

func TestCancelNotifiesPendingWaitlist(t *testing.T) {
	f := newFixture(repoWith(existingAppointment(model.StatusScheduled)))
	f.waitlist.pending = []*model.WaitlistRequest{
		{ID: "w1", PatientID: "507f1f77bcf86cd799439055", DoctorID: testDoctorID},
		{ID: "w2", PatientID: "507f1f77bcf86cd799439066", DoctorID: testDoctorID},
	}

	if err := f.svc.Cancel(patientCtx(testPatientID), testApptID); err != nil {
		t.Fatalf("Cancel() = %v, want nil", err)
	}

	if len(f.notifier.pushes) != 2 {
		t.Fatalf("pushed %d notifications, want 2", len(f.notifier.pushes))
	}
	for i, p := range f.notifier.pushes {
		if p.userID != f.waitlist.pending[i].PatientID {
			t.Errorf("notification %d went to %q, want %q", i, p.userID, f.waitlist.pending[i].PatientID)
		}
		if p.category != model.CategoryAppointment {
			t.Errorf("notification %d category = %q, want %q", i, p.category, model.CategoryAppointment)
		}
	}
	if len(f.waitlist.notified) != 2 || f.waitlist.notified[0] != "w1" || f.waitlist.notified[1] != "w2" {
		t.Errorf("notified entries = %v, want [w1 w2]", f.waitlist.notified)
	}
}

func TestCancelRefusesTerminalStatuses(t *testing.T) {
	for _, status := range []model.AppointmentStatus{model.StatusCompleted, model.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(repoWith(existingAppointment(status)))

			err := f.svc.Cancel(patientCtx(testPatientID), testApptID)
			if !apperrors.IsCode(err, apperrors.CodeConflict) {
				t.Fatalf("Cancel() = %v, want CONFLICT", err)
			}
			if len(f.waitlist.notified) != 0 {
				t.Error("waitlist was touched on a refused cancellation")
			}
		})
	}
}

func TestCancelRefusesForeignAppointment(t *testing.T) {
	f := newFixture(repoWith(existingAppointment(model.StatusScheduled)))

	err := f.svc.Cancel(patientCtx("507f1f77bcf86cd799439099"), testApptID)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("Cancel() = %v, want FORBIDDEN", err)
	}
}

func TestCancelAllowedForAdmin(t *testing.T) {
	f := newFixture(repoWith(existingAppointment(model.StatusScheduled)))

	ctx := auth.WithUser(context.Background(), auth.User{ID: testAdminID, Role: auth.RoleAdmin})
	if err := f.svc.Cancel(ctx, testApptID); err != nil {
		t.Fatalf("Cancel() = %v, want nil", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    model.AppointmentStatus
		to      model.AppointmentStatus
		wantErr bool
	}{
		{"scheduled to confirmed", model.StatusScheduled, model.StatusConfirmed, false},
		{"scheduled to in_progress", model.StatusScheduled, model.StatusInProgress, false},
		{"confirmed to no_show", model.StatusConfirmed, model.StatusNoShow, false},
		{"in_progress to completed", model.StatusInProgress, model.StatusCompleted, false},
		{"scheduled to completed", model.StatusScheduled, model.StatusCompleted, true},
		{"in_progress to no_show", model.StatusInProgress, model.StatusNoShow, true},
		{"completed immutable", model.StatusCompleted, model.StatusCancelled, true},
		{"cancelled immutable", model.StatusCancelled, model.StatusConfirmed, true},
		{"no_show immutable", model.StatusNoShow, model.StatusInProgress, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(repoWith(existingAppointment(tt.from)))

			err := f.svc.UpdateStatus(doctorCtx(testDoctorID), testApptID, tt.to)
			if tt.wantErr {
				if !apperrors.IsCode(err, apperrors.CodeConflict) {
					t.Fatalf("UpdateStatus() = %v, want CONFLICT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus() = %v, want nil", err)
			}
			if len(f.notifier.pushes) != 1 || f.notifier.pushes[0].userID != testPatientID {
				t.Errorf("pushes = %+v, want one notification for the patient", f.notifier.pushes)
			}
		})
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(repoWith(existingAppointment(model.StatusScheduled)))

	err := f.svc.UpdateStatus(doctorCtx(testDoctorID), testApptID, "postponed")
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("UpdateStatus() = %v, want INVALID_INPUT", err)
	}
}

func TestUpdateStatusRefusesForeignDoctor(t *testing.T) {
	f := newFixture(repoWith(existingAppointment(model.StatusScheduled)))

	err := f.svc.UpdateStatus(doctorCtx("507f1f77bcf86cd799439099"), testApptID, model.StatusInProgress)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("UpdateStatus() = %v, want FORBIDDEN", err)
	}
}

func TestGetByIDHidesForeignAppointment(t *testing.T) {
	f := newFixture(repoWith(existingAppointment(model.StatusScheduled)))

	_, err := f.svc.GetByID(patientCtx("507f1f77bcf86cd799439099"), testApptID)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("GetByID() = %v, want FORBIDDEN", err)
	}

	if _, err := f.svc.GetByID(doctorCtx(testDoctorID), testApptID); err != nil {
		t.Fatalf("GetByID() as doctor = %v, want nil", err)
	}
}

func TestListMineScopesToSession(t *testing.T) {
	var requestedPatient string
	f := newFixture(&mockAppointmentRepository{
		listByPatient: func(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, error) {
			requestedPatient = patientID
			return []*model.Appointment{existingAppointment(model.StatusScheduled)}, nil
		},
		countByPatient: func(ctx context.Context, patientID string) (int64, error) {
			return 1, nil
		},
	})

	appointments, count, err := f.svc.ListMine(patientCtx(testPatientID), 10, 0)
	if err != nil {
		t.Fatalf("ListMine() = %v, want nil", err)
	}
	if requestedPatient != testPatientID {
		t.Errorf("queried patient = %q, want %q", requestedPatient, testPatientID)
	}
	if count != 1 || len(appointments) != 1 {
		t.Errorf("count = %d, len = %d, want 1 and 1", count, len(appointments))
	}
}

func TestListForDoctorRefusesOtherDoctor(t *testing.T) {
	f := newFixture(&mockAppointmentRepository{})

	_, err := f.svc.ListForDoctor(doctorCtx("507f1f77bcf86cd799439099"), testDoctorID, testSlot)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("ListForDoctor() = %v, want FORBIDDEN", err)
	}
}
