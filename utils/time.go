package utils

import (
	"fmt"
	"sync"
	"time"
)

const (
	dbDateTimeLayout = "2006-01-02 15:04:05"
	dateOnlyLayout   = "2006-01-02"
)

var (
	locMu sync.RWMutex
	loc   = time.UTC
)

// SetLocation changes the zone used for stored timestamps. An unknown name keeps the current zone.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	l, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load location %q: %w", name, err)
	}
	locMu.Lock()
	loc = l
	locMu.Unlock()
	return nil
}

// Location 현재 설정된 타임존
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return loc
}

// Now returns the current time in the configured zone.
func Now() time.Time {
	return time.Now().In(Location())
}

// FormatDateTimeForDB formats a time for DATETIME columns.
func FormatDateTimeForDB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Location()).Format(dbDateTimeLayout)
}

// FormatTimestamp 파일 업로드 타임스탬프 (RFC3339)
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Location()).Format(time.RFC3339)
}

// ParseDBDate parses date strings retrieved from the database.
func ParseDBDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	l := Location()
	if ts, err := time.ParseInLocation(dbDateTimeLayout, value, l); err == nil {
		return ts, nil
	}

	if ts, err := time.ParseInLocation(dateOnlyLayout, value, l); err == nil {
		return ts, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.In(l), nil
	}

	return time.Time{}, fmt.Errorf("unsupported db time format: %s", value)
}

// MediaDir returns the YYYY/MM partition an upload at t is stored under.
func MediaDir(t time.Time) string {
	t = t.In(Location())
	return fmt.Sprintf("%04d/%02d", t.Year(), int(t.Month()))
}
