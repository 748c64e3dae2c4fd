package errors

import "errors"

var (
	ErrNotFound  = errors.New("appointment not found")
	ErrInvalidID = errors.New("invalid appointment ID")

	// ErrSlotTaken surfaces the storage-level uniqueness guarantee on
	// (doctor_id, date_time) for occupying statuses.
	ErrSlotTaken = errors.New("slot already occupied")
)
