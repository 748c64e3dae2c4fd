package model

import "time"

// TimeSlot is a bookable interval derived from a schedule template. Slots
// are recomputed on every read and never persisted.
type TimeSlot struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
}

// MonthDay is one calendar day of a doctor's month-availability view, used
// for calendar-cell rendering. Only schedulable days inside the booking
// window are emitted; Available is therefore always true on an emitted day.
type MonthDay struct {
	Day       int    `json:"day"`
	Date      string `json:"full_date"`
	Available bool   `json:"available"`
	IsFull    bool   `json:"is_full"`
}
