// Package schedule implements the appointment scheduling core: date/time
// label normalization, slot availability resolution, the appointment
// lifecycle state machine, and the change notification hub.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Wire formats for the date and time-slot labels stored on appointments.
// Labels render like "Monday, 15 Jan 2025" and "9:30 AM"; the fixed English
// weekday/month vocabulary is the time package's own.
const (
	DateLayout     = "Monday, 2 Jan 2006"
	TimeSlotLayout = "3:04 PM"
)

// FormatDateForDisplay renders a calendar date as its appointment date label.
func FormatDateForDisplay(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTimeSlot renders a clock time as its time-slot label.
func FormatTimeSlot(t time.Time) string {
	return t.Format(TimeSlotLayout)
}

// ParseAppointmentDate combines a date label and a time-slot label back into
// a single calendar/time value, used for ordering and cutoff checks. Labels
// can arrive malformed from denormalized legacy data, so failures are
// reported to the caller rather than substituted with a default; the caller
// owns the fallback policy.
func ParseAppointmentDate(dateLabel, timeLabel string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(dateLabel), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date %q: %w", dateLabel, err)
	}

	clock, err := time.Parse(TimeSlotLayout, strings.TrimSpace(timeLabel))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time slot %q: %w", timeLabel, err)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
}
