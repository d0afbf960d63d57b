package progress

import "time"

// Clock is a microsecond timestamp source.
type Clock interface {
	Micros() uint64
}

// SystemClock reports wall-clock microseconds. Readings are taken from the
// monotonic clock relative to the moment the clock was created, so they
// never run backwards when the system time is adjusted.
type SystemClock struct {
	base   time.Time
	offset uint64
}

// NewSystemClock returns a clock anchored at the current wall time.
func NewSystemClock() *SystemClock {
	now := time.Now()
	return &SystemClock{base: now, offset: uint64(now.UnixMicro())}
}

func (c *SystemClock) Micros() uint64 {
	return c.offset + uint64(time.Since(c.base).Microseconds())
}
