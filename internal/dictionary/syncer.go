package dictionary

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
)

// Syncer periodically ships pending names to the resolver and interns the
// returned assignments. One syncer serves both registries; applications
// resolve first because operation keys need a real application code.
type Syncer struct {
	apps     *ApplicationRegistry
	ops      *OperationRegistry
	resolver Resolver
	interval time.Duration
	logger   *logging.Logger
	throttle *logging.Throttle
	metrics  *monitoring.Metrics

	stopCh  chan struct{}
	done    chan struct{}
	started atomic.Bool
	stopped sync.Once
}

// NewSyncer creates a syncer; Start launches the background loop.
func NewSyncer(apps *ApplicationRegistry, ops *OperationRegistry, resolver Resolver, interval time.Duration, logger *logging.Logger, metrics *monitoring.Metrics) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	named := logger.Named("dict-sync")

	return &Syncer{
		apps:     apps,
		ops:      ops,
		resolver: resolver,
		interval: interval,
		logger:   named,
		throttle: logging.NewThrottle(named, 1, 5),
		metrics:  metrics,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sync loop. Calling Start twice is a no-op.
func (s *Syncer) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

// Stop terminates the loop and waits for it to exit.
func (s *Syncer) Stop() {
	s.stopped.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Syncer) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			if err := s.SyncNow(ctx); err != nil {
				s.throttle.Warn("dictionary sync failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// SyncNow runs one resolution round immediately. It is safe to call
// alongside the background loop; registries tolerate concurrent assignment.
func (s *Syncer) SyncNow(ctx context.Context) error {
	pendingApps := s.apps.PendingNames()
	pendingOps := s.ops.PendingKeys()
	if len(pendingApps) == 0 && len(pendingOps) == 0 {
		return nil
	}

	timer := monitoring.NewTimer(s.metrics, "dictionary", "sync")

	if err := s.syncApplications(ctx, pendingApps); err != nil {
		s.recordSync("error")
		timer.Stop("error")
		return err
	}
	if err := s.syncOperations(ctx, pendingOps); err != nil {
		s.recordSync("error")
		timer.Stop("error")
		return err
	}

	s.recordSync("success")
	timer.Stop("success")
	return nil
}

func (s *Syncer) syncApplications(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	assigned, err := s.resolver.ResolveApplications(ctx, names)
	if err != nil {
		return fmt.Errorf("resolve applications: %w", err)
	}

	for name, code := range assigned {
		if err := s.apps.Assign(name, code); err != nil {
			s.logger.Warn("discarding application assignment",
				zap.String("name", name),
				zap.Int32("code", code),
				zap.Error(err))
			continue
		}
		s.logger.Debug("application interned",
			zap.String("name", name),
			zap.Int32("code", code))
	}
	return nil
}

func (s *Syncer) syncOperations(ctx context.Context, keys []OperationKey) error {
	if len(keys) == 0 {
		return nil
	}

	assigned, err := s.resolver.ResolveOperations(ctx, keys)
	if err != nil {
		return fmt.Errorf("resolve operations: %w", err)
	}

	for key, code := range assigned {
		if err := s.ops.Assign(key, code); err != nil {
			s.logger.Warn("discarding operation assignment",
				zap.String("name", key.Name),
				zap.Int32("app_code", key.AppCode),
				zap.Int32("code", code),
				zap.Error(err))
			continue
		}
	}
	return nil
}

func (s *Syncer) recordSync(status string) {
	if s.metrics != nil {
		s.metrics.RecordSync(status)
	}
}
