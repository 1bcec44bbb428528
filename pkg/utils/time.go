package utils

import (
	"time"
)

const (
	// Time format constants
	TimeFormat = "2006-01-02 15:04:05"
	DateFormat = "2006-01-02"
)

// GetCurrentTimestamp get current timestamp (seconds)
func GetCurrentTimestamp() int64 {
	return time.Now().Unix()
}

// ParseTime parse time string
func ParseTime(timeStr string) (time.Time, error) {
	return time.Parse(TimeFormat, timeStr)
}

// ParseDate parse date string
func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse(DateFormat, dateStr)
}

// FormatTime format time
func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// FormatDate format date
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// InWindow reports whether now falls inside the optional [start, end] window.
// A nil bound is open on that side.
func InWindow(now time.Time, start, end *time.Time) bool {
	if start != nil && now.Before(*start) {
		return false
	}
	if end != nil && now.After(*end) {
		return false
	}
	return true
}
