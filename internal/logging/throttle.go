package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Throttle gates a logger behind a token bucket. Degradation events inside
// the agent (lane drops, sink failures) can fire thousands of times per
// second under load; emitting every one would turn the agent into the very
// overhead it exists to measure. Messages over the budget are counted, and
// the count is attached to the next message that passes.
type Throttle struct {
	logger     *Logger
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewThrottle wraps logger with a perSecond/burst budget. A non-positive
// perSecond disables throttling.
func NewThrottle(logger *Logger, perSecond float64, burst int) *Throttle {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Warn logs at warn level if the budget allows.
func (t *Throttle) Warn(msg string, fields ...zap.Field) {
	if fields = t.admit(fields); fields != nil {
		t.logger.Warn(msg, fields...)
	}
}

// Error logs at error level if the budget allows.
func (t *Throttle) Error(msg string, fields ...zap.Field) {
	if fields = t.admit(fields); fields != nil {
		t.logger.Error(msg, fields...)
	}
}

// Suppressed returns the number of messages dropped since the last one that
// passed the gate.
func (t *Throttle) Suppressed() int64 {
	return t.suppressed.Load()
}

// admit consumes a token. On success it returns the fields, annotated with
// the suppressed count when messages were dropped since the previous emit;
// on failure it returns nil.
func (t *Throttle) admit(fields []zap.Field) []zap.Field {
	if !t.limiter.Allow() {
		t.suppressed.Add(1)
		return nil
	}
	if n := t.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	if fields == nil {
		fields = []zap.Field{}
	}
	return fields
}
