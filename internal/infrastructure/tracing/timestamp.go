package tracing

import (
	"strconv"
	"time"
)

// Now returns the current time as epoch microseconds, the unit Zipkin uses
// for span timestamps and durations.
func Now() int64 {
	return time.Now().UnixMicro()
}

// IsValidTimestamp reports whether ts looks like epoch microseconds
// (exactly 16 decimal digits).
func IsValidTimestamp(ts int64) bool {
	return len(strconv.FormatInt(ts, 10)) == 16
}
