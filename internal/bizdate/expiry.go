package bizdate

import (
	"errors"
	"time"
)

// DefaultRetentionDays is how long checklist records are kept before an
// external sweep may purge them.
const DefaultRetentionDays = 400

// ErrInvalidRetention is returned for a negative retention window.
var ErrInvalidRetention = errors.New("retention days must be >= 0")

// ExpiryFor returns UTC midnight of date plus retentionDays calendar days.
// Leap days are counted as ordinary days, so ExpiryFor(d, n) - n days is
// always UTC midnight of d.
func ExpiryFor(date string, retentionDays int) (time.Time, error) {
	if retentionDays < 0 {
		return time.Time{}, ErrInvalidRetention
	}
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return day.AddDate(0, 0, retentionDays), nil
}
