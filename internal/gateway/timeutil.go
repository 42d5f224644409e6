package gateway

import (
	"fmt"
	"strconv"
	"time"
)

// ParseMillis parses a decimal Unix millisecond timestamp such as Gmail's
// internalDate. The result is in UTC.
func ParseMillis(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// FormatMillis renders t as decimal Unix milliseconds.
func FormatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
