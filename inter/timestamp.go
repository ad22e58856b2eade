package inter

import (
	"time"
)

// Timestamp is a unix time in whole seconds, the resolution headers carry.
type Timestamp uint64

// FromUnix converts unix seconds.
func FromUnix(sec int64) Timestamp {
	if sec < 0 {
		return 0
	}
	return Timestamp(sec)
}

// FromTime truncates t to whole seconds.
func FromTime(t time.Time) Timestamp {
	return FromUnix(t.Unix())
}

// Unix returns t as unix seconds.
func (t Timestamp) Unix() int64 {
	return int64(t)
}

// Time returns t as a time.Time in the local zone.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0)
}

// Add shifts t by the given number of seconds.
func (t Timestamp) Add(sec uint64) Timestamp {
	return t + Timestamp(sec)
}

// MaxTimestamp returns the later of a and b.
func MaxTimestamp(a, b Timestamp) Timestamp {
	if a > b {
		return a
	}
	return b
}

func (t Timestamp) String() string {
	return t.Time().UTC().Format(time.RFC3339)
}
