package agent

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ZHKGitHub1994/skywalking/internal/carrier"
	"github.com/ZHKGitHub1994/skywalking/internal/config"
	"github.com/ZHKGitHub1994/skywalking/internal/dictionary"
	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
	"github.com/ZHKGitHub1994/skywalking/internal/shared/id"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
	"github.com/ZHKGitHub1994/skywalking/internal/transport"
)

// Agent is the process-wide composition root. It owns the configuration,
// logger, metrics, dictionary registries, syncer, carrier, and sink, and
// hands out tracing contexts wired to all of them. Construct one per
// process and pass it where needed; there is no package-level instance.
type Agent struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *monitoring.Metrics

	apps   *dictionary.ApplicationRegistry
	ops    *dictionary.OperationRegistry
	syncer *dictionary.Syncer

	carrier *carrier.Carrier

	started atomic.Bool
	closed  atomic.Bool
}

// New assembles an agent. A nil cfg means defaults, a nil logger means the
// quiet production logger. Whether the agent reports to a collector or logs
// segments locally follows cfg.Standalone().
func New(cfg *config.Config, logger *logging.Logger) (*Agent, error) {
	if cfg == nil {
		cfg = config.Default()
		cfg.Normalize()
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	logger = logger.Named("swagent")

	// A private registry: two agents in one process (tests, mostly) must
	// not fight over the default registerer.
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	apps := dictionary.NewApplicationRegistry(cfg.Dictionary.Capacity, metrics)
	ops := dictionary.NewOperationRegistry(cfg.Dictionary.Capacity, metrics)

	var resolver dictionary.Resolver
	var sink carrier.Sink
	if cfg.Standalone() {
		resolver = dictionary.NewLocalResolver()
		sink = transport.NewLogReporter(logger)
	} else {
		resolver = dictionary.NewHTTPResolver(cfg.Agent.CollectorURL, cfg.Reporter.Timeout)
		sink = transport.NewReporter(cfg.Reporter, cfg.Agent.CollectorURL, logger, metrics)
	}

	a := &Agent{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		apps:     apps,
		ops:      ops,
		syncer:   dictionary.NewSyncer(apps, ops, resolver, cfg.Dictionary.SyncInterval, logger, metrics),
		carrier:  carrier.New(cfg.Carrier, sink, logger, metrics),
	}

	// Queue the service name right away so the first sync round gives the
	// agent its application code.
	a.apps.FindOrRegister(cfg.Agent.Service)

	return a, nil
}

// Start launches the background machinery: carrier consumers and the
// dictionary syncer. It is idempotent.
func (a *Agent) Start() {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	a.carrier.Start()
	a.syncer.Start()
	a.logger.Info("agent started",
		zap.String("service", a.cfg.Agent.Service),
		zap.String("instance", a.cfg.Agent.InstanceID),
		zap.Bool("standalone", a.cfg.Standalone()),
	)
}

// Shutdown stops the syncer, then drains and stops the carrier. Segments
// produced after Shutdown are dropped. It is safe to call more than once.
func (a *Agent) Shutdown(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.syncer.Stop()
	err := a.carrier.Shutdown(ctx)

	snap := a.metrics.Snapshot()
	a.logger.Info("agent stopped",
		zap.Int64("segments_sealed", snap.SegmentsSealed),
		zap.Int64("items_consumed", snap.ItemsConsumed),
		zap.Int64("items_dropped", snap.ItemsDropped),
	)
	return err
}

// NewContext opens a tracing context for one logical thread of execution.
func (a *Agent) NewContext() *tracing.Context {
	return a.newContext("")
}

// ContinueContext opens a tracing context that joins an existing trace.
func (a *Agent) ContinueContext(traceID id.TraceID) *tracing.Context {
	return a.newContext(traceID)
}

func (a *Agent) newContext(traceID id.TraceID) *tracing.Context {
	appCode, ok := a.apps.Find(a.cfg.Agent.Service)
	if !ok {
		appCode = dictionary.NullCode
	}
	return tracing.NewContext(tracing.Options{
		Service:    a.cfg.Agent.Service,
		InstanceID: a.cfg.Agent.InstanceID,
		AppCode:    appCode,
		TraceID:    traceID,
		Dictionary: a.ops,
		Metrics:    a.metrics,
		Logger:     a.logger,
		OnSealed: func(seg *tracing.Segment) {
			a.carrier.Produce(seg)
		},
	})
}

// SyncDictionary forces one resolver round outside the background schedule.
func (a *Agent) SyncDictionary(ctx context.Context) error {
	return a.syncer.SyncNow(ctx)
}

// Logger returns the agent's root logger.
func (a *Agent) Logger() *logging.Logger {
	return a.logger
}

// Registry returns the agent's private metrics registry, for mounting a
// scrape endpoint.
func (a *Agent) Registry() *prometheus.Registry {
	return a.registry
}

// Stats reports a point-in-time view of the agent, in the same shape the
// dictionary registries and carrier use.
func (a *Agent) Stats() map[string]interface{} {
	snap := a.metrics.Snapshot()
	return map[string]interface{}{
		"service":         a.cfg.Agent.Service,
		"instance":        a.cfg.Agent.InstanceID,
		"standalone":      a.cfg.Standalone(),
		"uptime":          a.metrics.Uptime().String(),
		"spans_started":   snap.SpansStarted,
		"spans_finished":  snap.SpansFinished,
		"segments_sealed": snap.SegmentsSealed,
		"items_produced":  snap.ItemsProduced,
		"items_consumed":  snap.ItemsConsumed,
		"items_dropped":   snap.ItemsDropped,
		"reports":         snap.Reports,
		"report_errors":   snap.ReportErrors,
		"applications":    a.apps.Stats(),
		"operations":      a.ops.Stats(),
		"carrier":         a.carrier.Stats(),
	}
}
