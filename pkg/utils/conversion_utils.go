package utils

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the layout accepted for date query parameters.
const DateLayout = "2006-01-02"

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// StrToInt64 converts a string to an int64.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q as int64: %w", s, err)
	}
	return num, nil
}

// OptionalInt64 parses s, returning nil for an empty string.
func OptionalInt64(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := StrToInt64(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// OptionalDate parses a YYYY-MM-DD value, returning nil for an empty string.
// With nextDay set the result is midnight of the following day, which makes a
// date-only upper bound inclusive when compared with "<".
func OptionalDate(s string, nextDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	if nextDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
