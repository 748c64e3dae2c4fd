package model

import "time"

// ScheduleTemplate is a recurring weekly availability rule for one doctor on
// one weekday. Times of day are "15:04" clock strings; DayOfWeek follows ISO
// numbering (Monday=1 .. Sunday=7). MaxPatients of zero means the weekday's
// capacity is bounded only by the slot grid.
type ScheduleTemplate struct {
	ID                  string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DoctorID            string    `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	DayOfWeek           int       `json:"day_of_week" bson:"day_of_week" validate:"required,min=1,max=7"`
	StartTime           string    `json:"start_time" bson:"start_time" validate:"required,clock_time"`
	EndTime             string    `json:"end_time" bson:"end_time" validate:"required,clock_time"`
	SlotDurationMinutes int       `json:"slot_duration_minutes" bson:"slot_duration_minutes" validate:"required,min=5,max=480"`
	BreakStart          string    `json:"break_start,omitempty" bson:"break_start,omitempty" validate:"omitempty,clock_time"`
	BreakEnd            string    `json:"break_end,omitempty" bson:"break_end,omitempty" validate:"omitempty,clock_time"`
	MaxPatients         int       `json:"max_patients" bson:"max_patients" validate:"min=0,max=200"`
	IsActive            bool      `json:"is_active" bson:"is_active"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt           time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type ScheduleTemplateUpdate struct {
	DayOfWeek           *int    `json:"day_of_week,omitempty" validate:"omitempty,min=1,max=7"`
	StartTime           string  `json:"start_time,omitempty" validate:"omitempty,clock_time"`
	EndTime             string  `json:"end_time,omitempty" validate:"omitempty,clock_time"`
	SlotDurationMinutes *int    `json:"slot_duration_minutes,omitempty" validate:"omitempty,min=5,max=480"`
	BreakStart          *string `json:"break_start,omitempty" validate:"omitempty"`
	BreakEnd            *string `json:"break_end,omitempty" validate:"omitempty"`
	MaxPatients         *int    `json:"max_patients,omitempty" validate:"omitempty,min=0,max=200"`
}

// HasBreak reports whether the template carries a break window. Validation
// guarantees the two ends are always set together.
func (t *ScheduleTemplate) HasBreak() bool {
	return t.BreakStart != "" && t.BreakEnd != ""
}
