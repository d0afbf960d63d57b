package progress

// Monitor decides when the copy loop should emit a progress line.
type Monitor struct {
	renderer  Renderer
	display   Display
	start     uint64
	last      uint64
	lastBytes int64
	sampled   bool
}

// NewMonitor returns a monitor for a transfer that started at start.
func NewMonitor(clock Clock, display Display, start uint64) *Monitor {
	return &Monitor{
		renderer: Renderer{Clock: clock},
		display:  display,
		start:    start,
	}
}

// Sample is called once per loop iteration with the bytes written so far.
// The first call only records the baseline. After that a fresh line replaces
// the previous one whenever Interval has passed since the last line.
func (m *Monitor) Sample(total int64) {
	now := m.renderer.Clock.Micros()
	if !m.sampled {
		m.sampled = true
		m.last = now
		return
	}
	if now-m.last < Interval {
		return
	}

	m.display.Show(m.renderer.Line(total, total-m.lastBytes, m.start, m.last))
	m.last = now
	m.lastBytes = total
}
