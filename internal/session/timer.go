package session

import (
	"sync"
	"time"
)

// Timer tracks elapsed wall-clock time from a fixed start timestamp.
// Elapsed is always recomputed as now minus start rather than counted
// up by ticks, so background throttling or system sleep cannot skew it.
type Timer struct {
	start    time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTimer creates a timer anchored at the given start time.
func NewTimer(start time.Time) *Timer {
	return &Timer{start: start, stop: make(chan struct{})}
}

// StartedAt returns the anchor timestamp.
func (t *Timer) StartedAt() time.Time { return t.start }

// Elapsed returns the wall-clock time since the start timestamp.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Seconds returns the elapsed time in whole seconds.
func (t *Timer) Seconds() int {
	return int(t.Elapsed() / time.Second)
}

// Run invokes observe with the current elapsed time every interval until
// the timer is stopped. The displayed value is purely informational and
// never gates progression or scoring. Run blocks; callers start it in
// its own goroutine.
func (t *Timer) Run(interval time.Duration, observe func(elapsed time.Duration)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			observe(t.Elapsed())
		case <-t.stop:
			return
		}
	}
}

// Stop tears down any running tick loop. Safe to call more than once.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}
