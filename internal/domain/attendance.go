package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format used by the attendance file (YYYY-MM-DD HH:MM:SS)
const TimeLayout = "2006-01-02 15:04:05"

// DefaultCooldown is the minimum time between two accepted marks for one identity
const DefaultCooldown = time.Hour

// AttendanceRecord is the single row kept per identity
type AttendanceRecord struct {
	Name               string    `json:"name"`
	Time               time.Time `json:"time"`
	LastAttendanceTime time.Time `json:"last_attendance_time"`
}

// MarkResult is the outcome of a mark attempt
type MarkResult int

const (
	// AlreadyMarked means the identity was marked within the cooldown window
	AlreadyMarked MarkResult = iota
	// Marked means a new record was written and persisted
	Marked
)

func (r MarkResult) String() string {
	switch r {
	case Marked:
		return "marked"
	case AlreadyMarked:
		return "already_marked"
	default:
		return fmt.Sprintf("MarkResult(%d)", int(r))
	}
}

// ParseTimestamp parses a ledger timestamp in local time
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp.WithError(err)
	}
	return t, nil
}

// FormatTimestamp renders t with TimeLayout
func FormatTimestamp(t time.Time) string {
	return t.Format(TimeLayout)
}
