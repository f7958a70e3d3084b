/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the tracing
agent, tracking dictionary lookups, span lifecycle, carrier throughput, and
reporter round trips.

# Features

- Dictionary metrics (lookup outcomes, interned entries, sync rounds)
- Span lifecycle metrics (starts by kind, finishes, sealed segments)
- Carrier metrics (produced, consumed, dropped, lane depth, batch size)
- Reporter metrics (attempts, latency, payload size)
- Generic component operation timing
- System metrics (uptime)

# Usage

	// Create metrics collector on an isolated registry
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	// Record domain events
	metrics.RecordFind("operation", "hit")
	metrics.RecordDrop("overflow")

	// Time operations
	timer := monitoring.NewTimer(metrics, "reporter", "send")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
*/
package monitoring
