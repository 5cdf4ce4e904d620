package bizdate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidLockTime is returned for a lock time that is not a 24h HH:mm value.
var ErrInvalidLockTime = errors.New("lock time must be HH:mm (24h)")

var hhmmRE = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ParseLockTime splits a HH:mm string into hour and minute.
func ParseLockTime(s string) (hour, minute int, err error) {
	m := hhmmRE.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLockTime, s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// LockDeadline returns the instant a shift on business date becomes eligible
// for locking. Times earlier than cutoffHour fall on the following civil day,
// which is how close=02:30 on 2024-06-01 resolves to 2024-06-02 02:30 local.
//
// The result is advisory; nothing in this module acts on it.
func LockDeadline(date, hhmm string, loc *time.Location, cutoffHour int) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseLockTime(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		return time.Time{}, ErrInvalidTimezone
	}
	y, mo, d := day.Date()
	if hour < cutoffHour {
		d++
	}
	return time.Date(y, mo, d, hour, minute, 0, 0, loc), nil
}
