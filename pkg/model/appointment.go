package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Appointment is one patient's booking of one exact slot with one doctor.
// DateTime is stored at whole-minute precision in UTC; slot occupancy is
// keyed on (doctor_id, date_time) for the occupying statuses.
type Appointment struct {
	ID        string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PatientID string            `json:"patient_id" bson:"patient_id" validate:"required,mongodb"`
	DoctorID  string            `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	DateTime  time.Time         `json:"date_time" bson:"date_time" validate:"required"`
	Status    AppointmentStatus `json:"status" bson:"status" validate:"required,oneof=scheduled confirmed in_progress completed cancelled no_show"`
	Reason    string            `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=200"`
	Notes     string            `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=1000"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// OccupyingStatuses are the statuses that reserve a slot against further
// booking.
var OccupyingStatuses = []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusInProgress}

// IsOccupying reports whether an appointment in this status holds its slot.
func (s AppointmentStatus) IsOccupying() bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusInProgress
}

// IsTerminal reports whether the status permits no further transition.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanTransition encodes the appointment lifecycle: scheduled/confirmed may
// move to in_progress, cancelled or no_show; in_progress may only complete;
// terminal statuses are immutable.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusConfirmed:
		return to == StatusConfirmed || to == StatusInProgress || to == StatusCancelled || to == StatusNoShow
	case StatusInProgress:
		return to == StatusCompleted
	default:
		return false
	}
}
