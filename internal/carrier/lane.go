package carrier

import (
	"runtime"
	"sync"

	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// Policy governs what Offer does when the lane is full.
type Policy int8

const (
	// PolicyBlock waits for space. The producer absorbs backpressure.
	PolicyBlock Policy = iota
	// PolicyIfPossible makes a bounded number of attempts, then drops.
	PolicyIfPossible
	// PolicySkip makes one attempt and drops immediately on a full lane.
	PolicySkip
)

// PolicyFromString maps a configured policy name to a Policy. Unknown names
// fall back to if_possible.
func PolicyFromString(s string) Policy {
	switch s {
	case "block":
		return PolicyBlock
	case "skip":
		return PolicySkip
	default:
		return PolicyIfPossible
	}
}

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicySkip:
		return "skip"
	default:
		return "if_possible"
	}
}

// Lane is one bounded FIFO partition of the carrier. Producers offer under
// the lane's overflow policy; exactly one consumer drains at a time.
type Lane struct {
	mu      sync.Mutex
	notFull *sync.Cond
	items   []*tracing.Segment
	head    int
	count   int
	policy  Policy
	closed  bool
}

// NewLane creates a lane with a fixed capacity.
func NewLane(capacity int, policy Policy) *Lane {
	if capacity <= 0 {
		capacity = 1
	}
	l := &Lane{
		items:  make([]*tracing.Segment, capacity),
		policy: policy,
	}
	l.notFull = sync.NewCond(&l.mu)
	return l
}

// Offer inserts seg under the lane's overflow policy and reports whether it
// was accepted. retries bounds the attempts an if_possible lane makes;
// values at or below one mean a single attempt.
func (l *Lane) Offer(seg *tracing.Segment, retries int) bool {
	switch l.policy {
	case PolicyBlock:
		return l.offerBlocking(seg)
	case PolicySkip:
		return l.tryOffer(seg)
	default:
		if retries < 1 {
			retries = 1
		}
		for i := 0; i < retries; i++ {
			if l.tryOffer(seg) {
				return true
			}
			// Give a drainer the chance to free a slot before the
			// next attempt.
			runtime.Gosched()
		}
		return false
	}
}

func (l *Lane) tryOffer(seg *tracing.Segment) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.count == len(l.items) {
		return false
	}
	l.insert(seg)
	return true
}

func (l *Lane) offerBlocking(seg *tracing.Segment) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.count == len(l.items) && !l.closed {
		l.notFull.Wait()
	}
	if l.closed {
		return false
	}
	l.insert(seg)
	return true
}

// insert appends at the ring's tail. Callers hold mu.
func (l *Lane) insert(seg *tracing.Segment) {
	l.items[(l.head+l.count)%len(l.items)] = seg
	l.count++
}

// Drain removes and returns up to max segments in acceptance order. It
// returns nil when the lane is empty.
func (l *Lane) Drain(max int) []*tracing.Segment {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 || max <= 0 {
		return nil
	}
	n := max
	if n > l.count {
		n = l.count
	}
	out := make([]*tracing.Segment, n)
	for i := 0; i < n; i++ {
		out[i] = l.items[l.head]
		l.items[l.head] = nil
		l.head = (l.head + 1) % len(l.items)
	}
	l.count -= n
	l.notFull.Broadcast()
	return out
}

// Len returns the current occupancy.
func (l *Lane) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Cap returns the fixed capacity.
func (l *Lane) Cap() int { return len(l.items) }

// Close rejects further offers and releases blocked producers. Buffered
// segments stay drainable.
func (l *Lane) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.notFull.Broadcast()
}
