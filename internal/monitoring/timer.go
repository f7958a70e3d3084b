package monitoring

import "time"

// Timer measures operation duration
type Timer struct {
	start     time.Time
	metrics   *Metrics
	component string
	op        string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, component, op string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		component: component,
		op:        op,
	}
}

// Stop stops the timer and records the duration. A timer built on a nil
// collector records nothing.
func (t *Timer) Stop(status string) {
	if t.metrics == nil {
		return
	}
	duration := time.Since(t.start)
	t.metrics.RecordOperation(t.component, t.op, status, duration)
}
