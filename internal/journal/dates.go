package journal

import (
	"strings"
	"time"
)

// DateLayout is the wire and query format of a calendar day.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// NormalizeDate drops the time of day and zone of t, keeping the calendar day t
// shows in its own location. The result is midnight UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// daysBetween returns the whole days from a to b, both normalized.
func daysBetween(a, b time.Time) int {
	return int(NormalizeDate(b).Sub(NormalizeDate(a)) / day)
}

// CountWords counts runs of non-whitespace separated by space, tab, newline or
// carriage return.
func CountWords(text string) int {
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}))
}
