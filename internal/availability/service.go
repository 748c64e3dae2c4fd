package availability

import (
	"context"
	"fmt"
	"time"

	"clinic/pkg/config"
	apperrors "clinic/pkg/errors"
	"clinic/pkg/model"
	"clinic/pkg/timeutil"
)

// TemplateSource is the slice of the schedule repository the slot engine
// needs.
type TemplateSource interface {
	ActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.ScheduleTemplate, error)
}

// AppointmentSource is the slice of the appointment repository the slot
// engine needs: bookings that currently occupy slots.
type AppointmentSource interface {
	ListOccupying(ctx context.Context, doctorID string, from, to time.Time) ([]*model.Appointment, error)
	ExistsOccupying(ctx context.Context, doctorID string, at time.Time) (bool, error)
}

type Service interface {
	Slots(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error)
	IsAvailable(ctx context.Context, doctorID string, at time.Time) (bool, error)
	MonthAvailability(ctx context.Context, doctorID string, year int, month time.Month) ([]model.MonthDay, error)
}

type service struct {
	templates    TemplateSource
	appointments AppointmentSource
	cfg          *config.Config
	now          func() time.Time
}

func NewService(templates TemplateSource, appointments AppointmentSource, cfg *config.Config) Service {
	return &service{
		templates:    templates,
		appointments: appointments,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Slots derives the bookable slots for one doctor on one calendar date. All
// active templates for the weekday contribute; the day's occupying
// appointments are fetched once and candidate slots are marked against that
// set. When overlapping templates generate the same start time, the first
// template's slot wins and later duplicates are dropped.
func (s *service) Slots(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	day := timeutil.DayStart(date.UTC())
	templates, err := s.templates.ActiveByDoctorDay(ctx, doctorID, timeutil.ISOWeekday(day))
	if err != nil {
		s.cfg.Log.Error("Failed to load schedule templates for slot generation",
			"doctor_id", doctorID,
			"date", day.Format("2006-01-02"),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load schedule templates", err)
	}
	if len(templates) == 0 {
		return []model.TimeSlot{}, nil
	}

	occupied, err := s.occupiedMinutes(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	slots := make([]model.TimeSlot, 0)
	seen := make(map[int]struct{})
	for _, t := range templates {
		w, ok := parseTemplate(t)
		if !ok {
			continue
		}
		for _, start := range w.slotStarts() {
			if _, dup := seen[start]; dup {
				continue
			}
			seen[start] = struct{}{}

			_, taken := occupied[start]
			slots = append(slots, model.TimeSlot{
				StartTime:   timeutil.AtMinutes(day, start),
				EndTime:     timeutil.AtMinutes(day, start+w.duration),
				IsAvailable: !taken,
			})
		}
	}

	return slots, nil
}

// IsAvailable is the authoritative booking-time gate. It re-derives validity
// from the templates instead of trusting a previously rendered slot list, so
// a stale client cannot book a slot the schedule no longer yields.
func (s *service) IsAvailable(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	if doctorID == "" {
		return false, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	at = timeutil.TruncateMinute(at.UTC())
	templates, err := s.templates.ActiveByDoctorDay(ctx, doctorID, timeutil.ISOWeekday(at))
	if err != nil {
		s.cfg.Log.Error("Failed to load schedule templates for availability check",
			"doctor_id", doctorID,
			"date_time", at,
			"error", err,
		)
		return false, apperrors.Internal("Failed to load schedule templates", err)
	}

	minute := timeutil.MinuteOfDay(at)
	scheduleValid := false
	for _, t := range templates {
		w, ok := parseTemplate(t)
		if !ok {
			continue
		}
		if w.admits(minute) {
			scheduleValid = true
			break
		}
	}
	if !scheduleValid {
		return false, nil
	}

	taken, err := s.appointments.ExistsOccupying(ctx, doctorID, at)
	if err != nil {
		s.cfg.Log.Error("Failed to check slot occupancy",
			"doctor_id", doctorID,
			"date_time", at,
			"error", err,
		)
		return false, apperrors.Internal("Failed to check slot occupancy", err)
	}
	return !taken, nil
}

// MonthAvailability computes calendar-cell data for one month. Only
// schedulable days inside the booking window are emitted; a day missing from
// the result is simply not bookable. Capacity sums across every template
// matching the weekday; appointments for the whole month are fetched once
// and bucketed per day.
func (s *service) MonthAvailability(ctx context.Context, doctorID string, year int, month time.Month) ([]model.MonthDay, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	if year < 1970 || year > 2200 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Year out of range: %d", year))
	}
	if month < time.January || month > time.December {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Month out of range: %d", month))
	}

	windowStart := timeutil.DayStart(s.now().UTC())
	windowEnd := windowStart.AddDate(0, 0, s.cfg.BookingWindowDays)

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	booked, err := s.bookedPerDay(ctx, doctorID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	// Weekday capacity repeats across the month; compute each of the seven
	// at most once.
	capacityByWeekday := make(map[int]int)

	days := make([]model.MonthDay, 0)
	for d := 1; d <= timeutil.DaysInMonth(year, month); d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		if date.Before(windowStart) || date.After(windowEnd) {
			continue
		}

		weekday := timeutil.ISOWeekday(date)
		capacity, cached := capacityByWeekday[weekday]
		if !cached {
			capacity, err = s.weekdayCapacity(ctx, doctorID, weekday)
			if err != nil {
				return nil, err
			}
			capacityByWeekday[weekday] = capacity
		}
		if capacity == 0 {
			continue
		}

		days = append(days, model.MonthDay{
			Day:       d,
			Date:      date.Format("2006-01-02"),
			Available: true,
			IsFull:    booked[d] >= capacity,
		})
	}

	return days, nil
}

func (s *service) weekdayCapacity(ctx context.Context, doctorID string, weekday int) (int, error) {
	templates, err := s.templates.ActiveByDoctorDay(ctx, doctorID, weekday)
	if err != nil {
		s.cfg.Log.Error("Failed to load schedule templates for month aggregation",
			"doctor_id", doctorID,
			"day_of_week", weekday,
			"error", err,
		)
		return 0, apperrors.Internal("Failed to load schedule templates", err)
	}

	total := 0
	for _, t := range templates {
		if w, ok := parseTemplate(t); ok {
			total += w.capacity()
		}
	}
	return total, nil
}

// occupiedMinutes returns the minute-of-day start times of every occupying
// appointment in [from, to), for marking generated slots.
func (s *service) occupiedMinutes(ctx context.Context, doctorID string, from, to time.Time) (map[int]struct{}, error) {
	appointments, err := s.appointments.ListOccupying(ctx, doctorID, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to load occupying appointments",
			"doctor_id", doctorID,
			"from", from,
			"to", to,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load appointments", err)
	}

	occupied := make(map[int]struct{}, len(appointments))
	for _, a := range appointments {
		occupied[timeutil.MinuteOfDay(timeutil.TruncateMinute(a.DateTime.UTC()))] = struct{}{}
	}
	return occupied, nil
}

// bookedPerDay counts occupying appointments per calendar day in [from, to).
func (s *service) bookedPerDay(ctx context.Context, doctorID string, from, to time.Time) (map[int]int, error) {
	appointments, err := s.appointments.ListOccupying(ctx, doctorID, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to load occupying appointments for month aggregation",
			"doctor_id", doctorID,
			"from", from,
			"to", to,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load appointments", err)
	}

	booked := make(map[int]int)
	for _, a := range appointments {
		booked[a.DateTime.UTC().Day()]++
	}
	return booked, nil
}
