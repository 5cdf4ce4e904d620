// Package bizdate converts wall-clock instants into the logical business day a
// restaurant operates on, stamps retention horizons, and interprets the HH:mm
// lock times configured per shift.
//
// A business day starts at a configurable cutoff hour (5am by default) in the
// restaurant's timezone: anything that happens before the cutoff belongs to the
// previous civil day, so a close that runs until 2am is still filed under the
// evening it started.
//
// All functions here are pure. The default timezone is configuration, passed
// in by the caller; nothing in this package reads the process environment.
package bizdate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	// Embedded zone database so results do not depend on the host image.
	_ "time/tzdata"
)

// DateLayout is the wire and storage format of a business date.
const DateLayout = "2006-01-02"

// DefaultCutoffHour is the hour (local time) at which a new business day begins.
const DefaultCutoffHour = 5

var (
	// ErrInvalidTimezone is returned for an unknown or empty IANA zone name.
	ErrInvalidTimezone = errors.New("invalid timezone")
	// ErrInvalidDate is returned for anything that is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidCutoff is returned when the cutoff hour is outside 0..23.
	ErrInvalidCutoff = errors.New("cutoff hour must be between 0 and 23")
)

// LoadLocation resolves an IANA zone name. Unlike time.LoadLocation it refuses
// the empty string, which would otherwise silently mean UTC.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

// BusinessDateFor returns the YYYY-MM-DD business date of instant in timezone.
// When the local hour is strictly below cutoffHour the previous civil date is
// returned.
func BusinessDateFor(instant time.Time, timezone string, cutoffHour int) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	if cutoffHour < 0 || cutoffHour > 23 {
		return "", ErrInvalidCutoff
	}
	return businessDate(instant, loc, cutoffHour), nil
}

func businessDate(instant time.Time, loc *time.Location, cutoffHour int) string {
	local := instant.In(loc)
	y, m, d := local.Date()
	if local.Hour() < cutoffHour {
		d--
	}
	// Civil arithmetic at noon UTC: normalizes month/year rollover, immune to DST.
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC).Format(DateLayout)
}

// ParseDate parses a strict YYYY-MM-DD date and returns its UTC midnight.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Calculator binds a timezone and cutoff hour loaded from configuration.
type Calculator struct {
	Location   *time.Location
	CutoffHour int
}

// NewCalculator validates tz and cutoffHour once so callers can compute
// business dates without re-checking on every request.
func NewCalculator(tz string, cutoffHour int) (*Calculator, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	if cutoffHour < 0 || cutoffHour > 23 {
		return nil, ErrInvalidCutoff
	}
	return &Calculator{Location: loc, CutoffHour: cutoffHour}, nil
}

// BusinessDate returns the business date of instant.
func (c *Calculator) BusinessDate(instant time.Time) string {
	return businessDate(instant, c.Location, c.CutoffHour)
}
