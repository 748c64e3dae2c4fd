package availability

import (
	"context"
	"io"
	"testing"
	"time"

	"clinic/pkg/config"
	"clinic/pkg/logger"
	"clinic/pkg/model"
)

type mockTemplateSource struct {
	activeByDoctorDayFunc func(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.ScheduleTemplate, error)
}

func (m *mockTemplateSource) ActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.ScheduleTemplate, error) {
	if m.activeByDoctorDayFunc != nil {
		return m.activeByDoctorDayFunc(ctx, doctorID, dayOfWeek)
	}
	return nil, nil
}

type mockAppointmentSource struct {
	listOccupyingFunc   func(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error)
	existsOccupyingFunc func(ctx context.Context, doctorID string, at time.Time) (bool, error)
}

func (m *mockAppointmentSource) ListOccupying(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
	if m.listOccupyingFunc != nil {
		return m.listOccupyingFunc(ctx, doctorID, from, to)
	}
	return nil, nil
}

func (m *mockAppointmentSource) ExistsOccupying(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	if m.existsOccupyingFunc != nil {
		return m.existsOccupyingFunc(ctx, doctorID, at)
	}
	return false, nil
}

const testDoctorID = "507f1f77bcf86cd799439011"

// 2026-03-09 is a Monday.
var monday = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

func newTestService(templates *mockTemplateSource, appointments *mockAppointmentSource) *service {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Output: io.Discard})
	cfg := &config.Config{Log: log, BookingWindowDays: 14}
	svc := NewService(templates, appointments, cfg).(*service)
	svc.now = func() time.Time { return monday }
	return svc
}

func morningTemplate() *model.ScheduleTemplate {
	return &model.ScheduleTemplate{
		ID:                  "tpl1",
		DoctorID:            testDoctorID,
		DayOfWeek:           1,
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
		BreakStart:          "10:00",
		BreakEnd:            "11:00",
		IsActive:            true,
	}
}

func singleTemplateSource(t *model.ScheduleTemplate) *mockTemplateSource {
	return &mockTemplateSource{
		activeByDoctorDayFunc: func(ctx context.Context, doctorID string, day int) ([]*model.ScheduleTemplate, error) {
			if day == t.DayOfWeek {
				return []*model.ScheduleTemplate{t}, nil
			}
			return nil, nil
		},
	}
}

func slotClocks(slots []model.TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.StartTime.Format("15:04")
	}
	return out
}

func TestSlotsSkipsBreakAndMarksOccupied(t *testing.T) {
	booked := time.Date(2026, time.March, 9, 9, 30, 0, 0, time.UTC)
	appointments := &mockAppointmentSource{
		listOccupyingFunc: func(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
			return []*model.Appointment{{DoctorID: doctorID, DateTime: booked, Status: model.StatusScheduled}}, nil
		},
	}
	svc := newTestService(singleTemplateSource(morningTemplate()), appointments)

	slots, err := svc.Slots(context.Background(), testDoctorID, monday)
	if err != nil {
		t.Fatalf("Slots() = %v, want nil", err)
	}

	want := []string{"09:00", "09:30", "11:00", "11:30"}
	got := slotClocks(slots)
	if len(got) != len(want) {
		t.Fatalf("slot starts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot starts = %v, want %v", got, want)
		}
	}

	for _, s := range slots {
		wantAvailable := !s.StartTime.Equal(booked)
		if s.IsAvailable != wantAvailable {
			t.Errorf("slot %s IsAvailable = %v, want %v", s.StartTime.Format("15:04"), s.IsAvailable, wantAvailable)
		}
	}
}

func TestSlotsNoTrailingPartialSlot(t *testing.T) {
	tpl := morningTemplate()
	tpl.EndTime = "10:15"
	tpl.BreakStart = ""
	tpl.BreakEnd = ""
	svc := newTestService(singleTemplateSource(tpl), &mockAppointmentSource{})

	slots, err := svc.Slots(context.Background(), testDoctorID, monday)
	if err != nil {
		t.Fatalf("Slots() = %v, want nil", err)
	}

	want := []string{"09:00", "09:30"}
	got := slotClocks(slots)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("slot starts = %v, want %v", got, want)
	}
}

func TestSlotsEmptyWithoutTemplates(t *testing.T) {
	svc := newTestService(&mockTemplateSource{}, &mockAppointmentSource{})

	slots, err := svc.Slots(context.Background(), testDoctorID, monday)
	if err != nil {
		t.Fatalf("Slots() = %v, want nil", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0", len(slots))
	}
}

func TestSlotsDeduplicatesOverlappingTemplates(t *testing.T) {
	first := morningTemplate()
	first.BreakStart = ""
	first.BreakEnd = ""
	second := &model.ScheduleTemplate{
		ID:                  "tpl2",
		DoctorID:            testDoctorID,
		DayOfWeek:           1,
		StartTime:           "09:00",
		EndTime:             "10:00",
		SlotDurationMinutes: 30,
		IsActive:            true,
	}
	templates := &mockTemplateSource{
		activeByDoctorDayFunc: func(ctx context.Context, doctorID string, day int) ([]*model.ScheduleTemplate, error) {
			return []*model.ScheduleTemplate{first, second}, nil
		},
	}
	svc := newTestService(templates, &mockAppointmentSource{})

	slots, err := svc.Slots(context.Background(), testDoctorID, monday)
	if err != nil {
		t.Fatalf("Slots() = %v, want nil", err)
	}

	// 09:00..12:00 at 30min = 6 unique starts; the second template's two
	// duplicates must not reappear.
	if len(slots) != 6 {
		t.Fatalf("len(slots) = %d, want 6 (%v)", len(slots), slotClocks(slots))
	}
	seen := make(map[string]bool)
	for _, s := range slots {
		clock := s.StartTime.Format("15:04")
		if seen[clock] {
			t.Fatalf("duplicate slot start %s", clock)
		}
		seen[clock] = true
	}
}

func TestSlotsQueriesSundayAsSeven(t *testing.T) {
	var requestedDay int
	templates := &mockTemplateSource{
		activeByDoctorDayFunc: func(ctx context.Context, doctorID string, day int) ([]*model.ScheduleTemplate, error) {
			requestedDay = day
			return nil, nil
		},
	}
	svc := newTestService(templates, &mockAppointmentSource{})

	sunday := time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Slots(context.Background(), testDoctorID, sunday); err != nil {
		t.Fatalf("Slots() = %v, want nil", err)
	}
	if requestedDay != 7 {
		t.Errorf("queried day_of_week = %d, want 7", requestedDay)
	}
}

func TestIsAvailable(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		occupied bool
		want     bool
	}{
		{"on grid and free", time.Date(2026, time.March, 9, 9, 30, 0, 0, time.UTC), false, true},
		{"seconds truncated before grid check", time.Date(2026, time.March, 9, 9, 30, 45, 0, time.UTC), false, true},
		{"off grid", time.Date(2026, time.March, 9, 9, 40, 0, 0, time.UTC), false, false},
		{"inside break", time.Date(2026, time.March, 9, 10, 30, 0, 0, time.UTC), false, false},
		{"before window", time.Date(2026, time.March, 9, 8, 30, 0, 0, time.UTC), false, false},
		{"slot would overrun window", time.Date(2026, time.March, 9, 11, 45, 0, 0, time.UTC), false, false},
		{"wrong weekday", time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC), false, false},
		{"occupied", time.Date(2026, time.March, 9, 9, 30, 0, 0, time.UTC), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appointments := &mockAppointmentSource{
				existsOccupyingFunc: func(ctx context.Context, doctorID string, at time.Time) (bool, error) {
					if at.Second() != 0 || at.Nanosecond() != 0 {
						t.Errorf("occupancy checked at %v, want minute precision", at)
					}
					return tt.occupied, nil
				},
			}
			svc := newTestService(singleTemplateSource(morningTemplate()), appointments)

			got, err := svc.IsAvailable(context.Background(), testDoctorID, tt.at)
			if err != nil {
				t.Fatalf("IsAvailable() = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("IsAvailable(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestIsAvailableNoTemplates(t *testing.T) {
	svc := newTestService(&mockTemplateSource{}, &mockAppointmentSource{})

	got, err := svc.IsAvailable(context.Background(), testDoctorID, monday.Add(9*time.Hour))
	if err != nil {
		t.Fatalf("IsAvailable() = %v, want nil", err)
	}
	if got {
		t.Error("IsAvailable() = true without any active template")
	}
}

func TestMonthAvailabilityWindowAndCapacity(t *testing.T) {
	// Mondays only: 09:00-12:00, 30min slots, 10:00-11:00 break.
	// Capacity = (180-60)/30 = 4.
	tpl := morningTemplate()

	// Three occupying bookings on Monday the 16th, four on Monday the 23rd.
	appointments := &mockAppointmentSource{
		listOccupyingFunc: func(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
			var out []*model.Appointment
			for i := 0; i < 3; i++ {
				out = append(out, &model.Appointment{
					DateTime: time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * 30 * time.Minute),
				})
			}
			for i := 0; i < 4; i++ {
				out = append(out, &model.Appointment{
					DateTime: time.Date(2026, time.March, 23, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * 30 * time.Minute),
				})
			}
			return out, nil
		},
	}
	svc := newTestService(singleTemplateSource(tpl), appointments)

	days, err := svc.MonthAvailability(context.Background(), testDoctorID, 2026, time.March)
	if err != nil {
		t.Fatalf("MonthAvailability() = %v, want nil", err)
	}

	// Window is [Mar 9, Mar 23]; Mondays inside it are the 9th, 16th, 23rd.
	if len(days) != 3 {
		t.Fatalf("len(days) = %d, want 3 (%+v)", len(days), days)
	}

	byDay := make(map[int]model.MonthDay)
	for _, d := range days {
		byDay[d.Day] = d
		if !d.Available {
			t.Errorf("day %d Available = false, want true on every emitted day", d.Day)
		}
	}

	if byDay[9].IsFull {
		t.Error("day 9 IsFull = true, want false (no bookings)")
	}
	if byDay[16].IsFull {
		t.Error("day 16 IsFull = true, want false (3 of 4 booked)")
	}
	if !byDay[23].IsFull {
		t.Error("day 23 IsFull = false, want true (4 of 4 booked)")
	}
	if byDay[23].Date != "2026-03-23" {
		t.Errorf("day 23 Date = %q, want %q", byDay[23].Date, "2026-03-23")
	}
}

func TestMonthAvailabilityClampsToMaxPatients(t *testing.T) {
	tpl := morningTemplate()
	tpl.MaxPatients = 2

	appointments := &mockAppointmentSource{
		listOccupyingFunc: func(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
			return []*model.Appointment{
				{DateTime: time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)},
				{DateTime: time.Date(2026, time.March, 9, 9, 30, 0, 0, time.UTC)},
			}, nil
		},
	}
	svc := newTestService(singleTemplateSource(tpl), appointments)

	days, err := svc.MonthAvailability(context.Background(), testDoctorID, 2026, time.March)
	if err != nil {
		t.Fatalf("MonthAvailability() = %v, want nil", err)
	}

	for _, d := range days {
		if d.Day == 9 && !d.IsFull {
			t.Error("day 9 IsFull = false, want true (capacity clamped to 2)")
		}
		if d.Day == 16 && d.IsFull {
			t.Error("day 16 IsFull = true, want false (no bookings)")
		}
	}
}

func TestMonthAvailabilitySumsOverlappingTemplates(t *testing.T) {
	first := morningTemplate()
	first.BreakStart = ""
	first.BreakEnd = ""
	second := &model.ScheduleTemplate{
		ID:                  "tpl2",
		DoctorID:            testDoctorID,
		DayOfWeek:           1,
		StartTime:           "14:00",
		EndTime:             "16:00",
		SlotDurationMinutes: 30,
		IsActive:            true,
	}
	templates := &mockTemplateSource{
		activeByDoctorDayFunc: func(ctx context.Context, doctorID string, day int) ([]*model.ScheduleTemplate, error) {
			if day == 1 {
				return []*model.ScheduleTemplate{first, second}, nil
			}
			return nil, nil
		},
	}

	// 6 + 4 = 10 slots on Mondays; 9 bookings leave the day not yet full.
	appointments := &mockAppointmentSource{
		listOccupyingFunc: func(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error) {
			var out []*model.Appointment
			for i := 0; i < 9; i++ {
				out = append(out, &model.Appointment{
					DateTime: time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * 30 * time.Minute),
				})
			}
			return out, nil
		},
	}
	svc := newTestService(templates, appointments)

	days, err := svc.MonthAvailability(context.Background(), testDoctorID, 2026, time.March)
	if err != nil {
		t.Fatalf("MonthAvailability() = %v, want nil", err)
	}
	for _, d := range days {
		if d.Day == 9 && d.IsFull {
			t.Error("day 9 IsFull = true, want false (9 of 10 booked)")
		}
	}
}

func TestMonthAvailabilityOmitsDaysOutsidePast(t *testing.T) {
	svc := newTestService(singleTemplateSource(morningTemplate()), &mockAppointmentSource{})

	days, err := svc.MonthAvailability(context.Background(), testDoctorID, 2026, time.March)
	if err != nil {
		t.Fatalf("MonthAvailability() = %v, want nil", err)
	}
	for _, d := range days {
		if d.Day < 9 {
			t.Errorf("day %d emitted, want past days omitted", d.Day)
		}
		if d.Day > 23 {
			t.Errorf("day %d emitted, want days past the booking window omitted", d.Day)
		}
	}
}
