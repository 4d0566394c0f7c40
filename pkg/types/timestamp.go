package types

import (
	"math"
	"time"
)

// Timestamps are persisted as Unix nanoseconds. These are the earliest and
// latest instants that representation can hold.
var (
	MinTimestamp = time.Unix(0, math.MinInt64).UTC()
	MaxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

// TimestampInRange reports whether t can be stored without overflow.
func TimestampInRange(t time.Time) bool {
	return !t.Before(MinTimestamp) && !t.After(MaxTimestamp)
}

// ClampNanos returns t as Unix nanoseconds, saturating at the int64 limits
// for instants outside the representable range. Query bounds use it so that
// an open-ended range such as "until 9999-12-31" still covers every row.
func ClampNanos(t time.Time) int64 {
	switch {
	case t.Before(MinTimestamp):
		return math.MinInt64
	case t.After(MaxTimestamp):
		return math.MaxInt64
	}
	return t.UnixNano()
}
