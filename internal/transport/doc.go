/*
Package transport implements the sinks the carrier drains into.

# Overview

Two sinks cover the two deployment modes. Reporter posts JSON-encoded
segment batches to a collector endpoint (POST /v1/segments), gzipped when
configured, with transient-failure retries handled by the underlying
retryable client. LogReporter summarizes segments into the agent log and is
used when no collector URL is configured.

# Wire format

Each span ships either an interned operation code or the symbolic operation
name, never both. Segments whose names were not interned by finish time are
resolved collector-side.

# Usage

	var sink carrier.Sink
	if cfg.Standalone() {
		sink = transport.NewLogReporter(logger)
	} else {
		sink = transport.NewReporter(cfg.Reporter, cfg.Agent.CollectorURL, logger, metrics)
	}
*/
package transport
