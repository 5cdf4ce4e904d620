// Package services defines the business logic for restaurant shift
// checklists: access resolution, duty templates, lock times, and the
// seed/toggle/submit/reset lifecycle of a day's checklist.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Any error not listed here is a persistence failure and
// is returned wrapped, never retried or swallowed.
package services

import "errors"

// Access errors.
var (
	// ErrPermissionDenied is returned when the principal may not act on the
	// restaurant or lacks the admin role.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrProfileNotFound indicates the authenticated identity has no user
	// profile and may not use the application.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrRestaurantNotFound indicates the restaurant key does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// Checklist lifecycle errors.
var (
	// ErrShiftLocked is returned when an item write targets a locked shift.
	ErrShiftLocked = errors.New("shift is locked")

	// ErrAlreadyLocked is returned when a submit targets a locked shift.
	ErrAlreadyLocked = errors.New("shift already submitted")

	// ErrShiftNotFound is returned when a shift was never seeded.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrItemNotFound is returned when a toggle targets an unknown item.
	ErrItemNotFound = errors.New("checklist item not found")

	// ErrInvalidShift is returned for a shift kind other than open|mid|close.
	ErrInvalidShift = errors.New("invalid shift")
)

// Settings errors.
var (
	ErrEmptyTitle      = errors.New("duty title is empty")
	ErrIndexOutOfRange = errors.New("duty index out of range")
	ErrInvalidLockTime = errors.New("lock time must be HH:mm (24h)")
)
