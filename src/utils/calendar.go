package utils

import "time"

// -----------------------------------------------------------------------------

// Date layout used everywhere a calendar date is stored or compared. The
// micro layout is the storage form: its fractional part is elided for whole
// seconds and kept up to microseconds otherwise.
const (
	DateLayout           = "2006-01-02"
	TimestampLayout      = "2006-01-02 15:04:05"
	TimestampMicroLayout = "2006-01-02 15:04:05.999999"
)

// -----------------------------------------------------------------------------

// WeekdayNumber returns the weekday with Monday=0 .. Sunday=6, matching the
// numbering of the temporal source store.
func WeekdayNumber(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// -----------------------------------------------------------------------------

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	return WeekdayNumber(t) >= 5
}

// -----------------------------------------------------------------------------

// Quarter returns the calendar quarter (1-4) of t.
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// -----------------------------------------------------------------------------

// MonthName returns the full English month name of t.
func MonthName(t time.Time) string {
	return t.Month().String()
}

// -----------------------------------------------------------------------------

// WeekOfYear returns the ISO 8601 week number of t.
func WeekOfYear(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// -----------------------------------------------------------------------------

// DateString truncates t to its calendar date in YYYY-MM-DD form.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// -----------------------------------------------------------------------------

// DateOfMillis derives the UTC calendar date from a milliseconds-since-epoch
// timestamp, the interpretation used by the transactional source.
func DateOfMillis(ms int64) string {
	return DateString(time.UnixMilli(ms).UTC())
}

// -----------------------------------------------------------------------------

// ParseTimestamp parses a source timestamp permissively, trying the layouts
// the source stores are known to emit. The second return is false when no
// layout matches (callers treat that as an absent value, not an error).
func ParseTimestamp(raw string) (time.Time, bool) {
	layouts := []string{
		TimestampLayout,
		time.RFC3339,
		DateLayout,
		TimestampMicroLayout,
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
