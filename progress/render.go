// Package progress computes dd-style throughput lines and keeps them on a
// single line of the terminal while a copy is running.
package progress

import (
	"fmt"

	"github.com/sryze/wdd/sizefmt"
)

// Interval is the minimum time between two progress lines, in microseconds.
const Interval = 1000000

// Renderer builds status lines against a clock.
type Renderer struct {
	Clock Clock
}

// Line renders the status for total bytes copied. delta is the number of
// bytes copied since last; the reported speed is delta over the time since
// last, except during the first second of the transfer where delta itself is
// reported as the per-second rate.
func (r Renderer) Line(total, delta int64, start, last uint64) string {
	now := r.Clock.Micros()
	elapsed := now - start

	var speed float64
	if elapsed >= 1000000 {
		speed = float64(delta) / (float64(now-last) / 1000000)
	} else {
		speed = float64(delta)
	}

	return fmt.Sprintf("%d bytes (%s) copied, %0.1f s, %s",
		total,
		sizefmt.Size(total),
		float64(elapsed)/1000000.0,
		sizefmt.Speed(speed))
}

// Status renders the final line: the average rate over the whole transfer.
func (r Renderer) Status(total int64, start uint64) string {
	return r.Line(total, total, start, start)
}
