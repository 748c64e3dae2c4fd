package errors

import "errors"

var (
	ErrNotFound  = errors.New("schedule template not found")
	ErrInvalidID = errors.New("invalid schedule template ID")
)
