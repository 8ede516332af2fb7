package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStatus is returned when a status value is not in the vocabulary
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition is returned when a status change is not allowed by
	// the lead lifecycle
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrLeadNotConvertible is returned when conversion is attempted on a lead
	// that is not in won status
	ErrLeadNotConvertible = errors.New("lead must be in won status before conversion")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrOTPInvalid is returned when a login code does not match or was never issued
	ErrOTPInvalid = errors.New("invalid login code")

	// ErrOTPExpired is returned when a login code has passed its time-to-live
	ErrOTPExpired = errors.New("login code expired")
)
