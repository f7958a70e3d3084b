/*
Package agent assembles the tracing core into one process-wide object.

# Overview

Agent replaces the global singletons a typical in-process tracer grows: it
is constructed once at startup, started, and shut down, and every
collaborator (dictionary registries, syncer, carrier, sink, metrics,
logger) hangs off it. Instrumentation asks the agent for a tracing.Context
per logical thread of execution; sealed segments flow into the carrier
automatically.

# Modes

With a collector URL configured, names are registered against the collector
and segments are posted to it. Without one the agent runs standalone:
a local resolver assigns codes and segments are logged.

# Usage

	cfg, _ := config.LoadOrDefault()
	logger := logging.NewDefault()

	ag, err := agent.New(cfg, logger)
	if err != nil {
		// handle
	}
	ag.Start()
	defer ag.Shutdown(context.Background())

	tc := ag.NewContext()
	span := tc.CreateEntrySpan("GET /orders")
	// ... work ...
	tc.StopSpan(span)
*/
package agent
