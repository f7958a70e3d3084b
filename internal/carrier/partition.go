package carrier

import (
	"math/rand"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// Partitioner selects the lane a segment lands in. Select must return an
// index in [0, total). MaxRetry hints how many offer attempts an if_possible
// lane makes; values at or below one mean a single attempt.
type Partitioner interface {
	Select(total int, seg *tracing.Segment) int
	MaxRetry() int
}

// RoundRobin spreads segments evenly across lanes.
type RoundRobin struct {
	next  atomic.Uint32
	retry int
}

// NewRoundRobin creates a round-robin partitioner with the given offer retry
// budget.
func NewRoundRobin(retry int) *RoundRobin {
	return &RoundRobin{retry: retry}
}

// Select returns lanes in rotation.
func (p *RoundRobin) Select(total int, _ *tracing.Segment) int {
	if total <= 1 {
		return 0
	}
	return int((p.next.Add(1) - 1) % uint32(total))
}

// MaxRetry returns the offer retry budget.
func (p *RoundRobin) MaxRetry() int { return p.retry }

// Hash pins every segment of a trace to one lane, so segments produced by
// the same trace keep their relative order all the way to the sink.
type Hash struct {
	retry int
}

// NewHash creates a trace-affine partitioner with the given offer retry
// budget.
func NewHash(retry int) *Hash {
	return &Hash{retry: retry}
}

// Select hashes the segment's trace id onto a lane.
func (p *Hash) Select(total int, seg *tracing.Segment) int {
	if total <= 1 || seg == nil {
		return 0
	}
	return int(xxhash.Sum64String(string(seg.TraceID)) % uint64(total))
}

// MaxRetry returns the offer retry budget.
func (p *Hash) MaxRetry() int { return p.retry }

// Random picks a lane uniformly at random.
type Random struct {
	retry int
}

// NewRandom creates a random partitioner with the given offer retry budget.
func NewRandom(retry int) *Random {
	return &Random{retry: retry}
}

// Select returns a uniformly random lane.
func (p *Random) Select(total int, _ *tracing.Segment) int {
	if total <= 1 {
		return 0
	}
	return rand.Intn(total)
}

// MaxRetry returns the offer retry budget.
func (p *Random) MaxRetry() int { return p.retry }

// ForPolicy maps a configured partitioner name to an implementation.
// Unknown names fall back to round robin.
func ForPolicy(name string, retry int) Partitioner {
	switch name {
	case "hash":
		return NewHash(retry)
	case "random":
		return NewRandom(retry)
	default:
		return NewRoundRobin(retry)
	}
}
