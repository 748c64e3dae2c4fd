package errors

import "errors"

var (
	ErrNotFound  = errors.New("waitlist entry not found")
	ErrInvalidID = errors.New("invalid waitlist entry ID")
)
