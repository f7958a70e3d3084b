package carrier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// Sink receives drained batches. The pool owns delivery scheduling and
// retries; the sink owns the wire.
type Sink interface {
	Send(ctx context.Context, batch []*tracing.Segment) error
}

// PoolOptions shapes a consumer pool.
type PoolOptions struct {
	Workers     int
	BatchSize   int
	Cycle       time.Duration
	SinkRetries int
	Grace       time.Duration
}

// ConsumerPool drains lanes in the background and forwards batches to the
// sink. Worker i owns the lanes {l : l mod workers == i}, so no lane ever
// has two drainers and per-lane FIFO survives all the way to the sink.
type ConsumerPool struct {
	channels *Channels
	sink     Sink
	workers  int
	batch    int
	cycle    time.Duration
	retries  int
	grace    time.Duration

	logger   *logging.Logger
	throttle *logging.Throttle
	metrics  *monitoring.Metrics

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started atomic.Bool
	stopped sync.Once
}

// NewConsumerPool creates a pool draining channels into sink. Workers are
// capped at the lane count.
func NewConsumerPool(channels *Channels, sink Sink, opts PoolOptions, logger *logging.Logger, metrics *monitoring.Metrics) *ConsumerPool {
	if logger == nil {
		logger = logging.NewNop()
	}
	named := logger.Named("carrier")

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if n := channels.LaneCount(); workers > n {
		workers = n
	}
	batch := opts.BatchSize
	if batch < 1 {
		batch = 1
	}
	cycle := opts.Cycle
	if cycle <= 0 {
		cycle = 20 * time.Millisecond
	}
	grace := opts.Grace
	if grace <= 0 {
		grace = time.Second
	}

	return &ConsumerPool{
		channels: channels,
		sink:     sink,
		workers:  workers,
		batch:    batch,
		cycle:    cycle,
		retries:  opts.SinkRetries,
		grace:    grace,
		logger:   named,
		throttle: logging.NewThrottle(named, 1, 5),
		metrics:  metrics,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the workers. It is idempotent.
func (p *ConsumerPool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.logger.Debug("consumer pool started",
		zap.Int("workers", p.workers),
		zap.Int("batch_size", p.batch),
	)
}

// Stop signals the workers and waits for them to exit. Each worker's final
// drain is bounded by the pool's grace period; ctx bounds only how long Stop
// itself waits.
func (p *ConsumerPool) Stop(ctx context.Context) error {
	p.stopped.Do(func() { close(p.stopCh) })
	if !p.started.Load() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ConsumerPool) run(worker int) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cycle)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			p.finalDrain(worker)
			return
		default:
		}

		if p.sweep(context.Background(), worker) > 0 {
			continue
		}

		select {
		case <-p.stopCh:
			p.finalDrain(worker)
			return
		case <-ticker.C:
		}
	}
}

// sweep drains one batch from each lane this worker owns and ships it.
// It returns the number of segments moved out of the lanes.
func (p *ConsumerPool) sweep(ctx context.Context, worker int) int {
	lanes := p.channels.Lanes()
	moved := 0
	for l := worker; l < len(lanes); l += p.workers {
		batch := lanes[l].Drain(p.batch)
		if len(batch) == 0 {
			continue
		}
		p.ship(ctx, batch)
		moved += len(batch)
		if p.metrics != nil {
			p.metrics.SetLaneDepth(l, lanes[l].Len())
		}
	}
	return moved
}

// ship forwards a batch, retrying a bounded number of times before dropping
// it. There is no retry queue; a batch that exhausts its attempts is gone.
func (p *ConsumerPool) ship(ctx context.Context, batch []*tracing.Segment) {
	attempts := p.retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = p.sink.Send(ctx, batch); err == nil {
			if p.metrics != nil {
				p.metrics.RecordConsume(len(batch))
			}
			return
		}
		if ctx.Err() != nil {
			break
		}
	}

	if p.metrics != nil {
		for range batch {
			p.metrics.RecordDrop("sink_error")
		}
	}
	p.throttle.Warn("batch dropped after sink failure",
		zap.Int("batch", len(batch)),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
}

// finalDrain empties this worker's lanes on a best-effort basis within the
// grace period. Whatever remains past the deadline is discarded.
func (p *ConsumerPool) finalDrain(worker int) {
	ctx, cancel := context.WithTimeout(context.Background(), p.grace)
	defer cancel()

	for p.sweep(ctx, worker) > 0 {
		if ctx.Err() != nil {
			break
		}
	}

	if left := p.laneDebt(worker); left > 0 {
		if p.metrics != nil {
			for i := 0; i < left; i++ {
				p.metrics.RecordDrop("shutdown")
			}
		}
		p.logger.Warn("discarding buffered segments at shutdown",
			zap.Int("count", left),
		)
	}
}

// laneDebt counts segments still buffered in this worker's lanes.
func (p *ConsumerPool) laneDebt(worker int) int {
	lanes := p.channels.Lanes()
	left := 0
	for l := worker; l < len(lanes); l += p.workers {
		left += lanes[l].Len()
	}
	return left
}
