package carrier

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ZHKGitHub1994/skywalking/internal/config"
	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// defaultOfferRetry bounds if_possible offer attempts. The partitioner owns
// the hint; retry-capable lanes consume it.
const defaultOfferRetry = 3

// Carrier is the partitioned buffer between span production and transport.
// Application goroutines call Produce; the consumer pool drains lanes in the
// background and forwards batches to the sink.
type Carrier struct {
	channels *Channels
	pool     *ConsumerPool
	logger   *logging.Logger
	throttle *logging.Throttle
	metrics  *monitoring.Metrics

	down atomic.Bool
}

// New assembles a carrier from configuration. The sink is required; logger
// and metrics may be nil.
func New(cfg config.CarrierConfig, sink Sink, logger *logging.Logger, metrics *monitoring.Metrics) *Carrier {
	if logger == nil {
		logger = logging.NewNop()
	}

	part := ForPolicy(cfg.Partitioner, defaultOfferRetry)
	channels := NewChannels(cfg.Lanes, cfg.LaneCapacity, PolicyFromString(cfg.Policy), part, metrics)
	pool := NewConsumerPool(channels, sink, PoolOptions{
		Workers:     cfg.Consumers,
		BatchSize:   cfg.BatchSize,
		Cycle:       cfg.ConsumeCycle,
		SinkRetries: cfg.SinkRetries,
		Grace:       cfg.ShutdownGrace,
	}, logger, metrics)

	named := logger.Named("carrier")
	return &Carrier{
		channels: channels,
		pool:     pool,
		logger:   named,
		throttle: logging.NewThrottle(named, 1, 5),
		metrics:  metrics,
	}
}

// Start launches the consumer pool.
func (c *Carrier) Start() {
	c.pool.Start()
}

// Produce hands a sealed segment to the carrier. It returns false when the
// segment was dropped, either because its lane was full or because the
// carrier is shut down. Degradation stays silent toward the instrumented
// goroutine; the drop counters are the only witness.
func (c *Carrier) Produce(seg *tracing.Segment) bool {
	if seg == nil {
		return false
	}
	if c.down.Load() {
		if c.metrics != nil {
			c.metrics.RecordDrop("shutdown")
		}
		return false
	}
	if !c.channels.Put(seg) {
		c.throttle.Warn("segment dropped",
			zap.String("trace_id", string(seg.TraceID)),
		)
		return false
	}
	return true
}

// Shutdown stops accepting segments, lets the workers drain what they can
// within the grace period, and waits for them to exit. It is safe to call
// more than once.
func (c *Carrier) Shutdown(ctx context.Context) error {
	c.down.Store(true)
	c.channels.Close()
	if err := c.pool.Stop(ctx); err != nil {
		return err
	}
	c.logger.Info("carrier stopped",
		zap.Int("left_behind", c.channels.Depth()),
	)
	return nil
}

// Stats reports carrier occupancy for the agent's introspection surface.
func (c *Carrier) Stats() map[string]interface{} {
	lanes := c.channels.Lanes()
	depths := make([]int, len(lanes))
	for i, l := range lanes {
		depths[i] = l.Len()
	}
	return map[string]interface{}{
		"lanes":       len(lanes),
		"lane_depths": depths,
		"buffered":    c.channels.Depth(),
		"workers":     c.pool.workers,
	}
}
