package emitter

import (
	"time"
)

// Config tunes the production loop.
type Config struct {
	// Interval is how often a skipped slot is retried without a new head.
	Interval time.Duration
	// MinInterval bounds Interval from below, so a zero-period chain does
	// not spin.
	MinInterval time.Duration
}

// DefaultConfig returns the tuning for a chain with the given block period.
func DefaultConfig(period time.Duration) Config {
	return Config{
		Interval:    period,
		MinInterval: 200 * time.Millisecond,
	}
}

func (c Config) tick() time.Duration {
	if c.Interval < c.MinInterval {
		return c.MinInterval
	}
	if c.Interval <= 0 {
		return time.Second
	}
	return c.Interval
}
