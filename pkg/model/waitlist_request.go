package model

import "time"

// WaitlistRequest is a patient's opt-in to be told once when any slot for a
// doctor is freed by a cancellation. Rows are never deleted: the IsNotified
// flag flips exactly once and the entry is inert afterwards.
type WaitlistRequest struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PatientID  string    `json:"patient_id" bson:"patient_id" validate:"required,mongodb"`
	DoctorID   string    `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	IsNotified bool      `json:"is_notified" bson:"is_notified"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
