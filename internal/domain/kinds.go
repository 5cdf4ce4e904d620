package domain

import (
	"errors"
	"strings"
)

// ShiftKind names a work period within a business day.
type ShiftKind string

// Shift kinds in display order.
const (
	ShiftOpen  ShiftKind = "open"
	ShiftMid   ShiftKind = "mid"
	ShiftClose ShiftKind = "close"
)

// ShiftKinds lists every shift kind in display order.
var ShiftKinds = []ShiftKind{ShiftOpen, ShiftMid, ShiftClose}

// ErrUnknownShift is returned by ParseShiftKind for anything but open|mid|close.
var ErrUnknownShift = errors.New("shift must be one of: open, mid, close")

// ParseShiftKind normalizes s (case-insensitive) into a ShiftKind.
func ParseShiftKind(s string) (ShiftKind, error) {
	switch k := ShiftKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ShiftOpen, ShiftMid, ShiftClose:
		return k, nil
	}
	return "", ErrUnknownShift
}

// Role is the authorization tier of a user profile.
type Role string

// Known roles.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// DefaultLockTimes are applied to any shift whose lock time was never configured.
var DefaultLockTimes = map[ShiftKind]string{
	ShiftOpen:  "05:00",
	ShiftMid:   "17:00",
	ShiftClose: "02:30",
}
