package carrier

import (
	"sync"
	"sync/atomic"

	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// Channels owns the lane set. Lanes materialize lazily on first use; the
// sync.Once provides the single-writer guarantee, and readers after the
// first call never block on initialization again.
type Channels struct {
	laneCount int
	capacity  int
	policy    Policy
	part      Partitioner
	metrics   *monitoring.Metrics

	once  sync.Once
	lanes []*Lane

	closed atomic.Bool
}

// NewChannels creates a lane set. Lane buffers are not allocated until the
// first Put or Lanes call.
func NewChannels(laneCount, capacity int, policy Policy, part Partitioner, metrics *monitoring.Metrics) *Channels {
	if laneCount <= 0 {
		laneCount = 1
	}
	if part == nil {
		part = NewRoundRobin(1)
	}
	return &Channels{
		laneCount: laneCount,
		capacity:  capacity,
		policy:    policy,
		part:      part,
		metrics:   metrics,
	}
}

func (c *Channels) init() {
	c.once.Do(func() {
		lanes := make([]*Lane, c.laneCount)
		for i := range lanes {
			lanes[i] = NewLane(c.capacity, c.policy)
		}
		c.lanes = lanes
	})
}

// Put partitions seg onto a lane and offers it under the lane's overflow
// policy. It reports whether the segment was accepted.
func (c *Channels) Put(seg *tracing.Segment) bool {
	if c.closed.Load() {
		c.recordDrop("shutdown")
		return false
	}
	c.init()

	lane := c.part.Select(len(c.lanes), seg)
	if !c.lanes[lane].Offer(seg, c.part.MaxRetry()) {
		c.recordDrop("full")
		return false
	}
	if c.metrics != nil {
		c.metrics.RecordProduce(lane)
		c.metrics.SetLaneDepth(lane, c.lanes[lane].Len())
	}
	return true
}

// Lanes returns the materialized lane set.
func (c *Channels) Lanes() []*Lane {
	c.init()
	return c.lanes
}

// LaneCount returns the configured number of lanes without forcing
// materialization.
func (c *Channels) LaneCount() int { return c.laneCount }

// Depth returns the total buffered segments across all lanes.
func (c *Channels) Depth() int {
	c.init()
	total := 0
	for _, l := range c.lanes {
		total += l.Len()
	}
	return total
}

// Close rejects further puts and closes every lane. Buffered segments stay
// drainable.
func (c *Channels) Close() {
	c.closed.Store(true)
	c.init()
	for _, l := range c.lanes {
		l.Close()
	}
}

func (c *Channels) recordDrop(reason string) {
	if c.metrics != nil {
		c.metrics.RecordDrop(reason)
	}
}
