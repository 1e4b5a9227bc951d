package store

import (
	"strconv"
	"time"
)

// Int64 extracts a numeric value from a record, tolerating the integer
// widths different drivers hand back.
func Int64(rec Record, key string) (int64, bool) {
	switch v := rec[key].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// String extracts a string value from a record.
func String(rec Record, key string) (string, bool) {
	s, ok := rec[key].(string)
	return s, ok
}

// Bool extracts a boolean value from a record.
func Bool(rec Record, key string) (bool, bool) {
	b, ok := rec[key].(bool)
	return b, ok
}

// Time extracts a timestamp value from a record.
func Time(rec Record, key string) (time.Time, bool) {
	t, ok := rec[key].(time.Time)
	return t, ok
}
