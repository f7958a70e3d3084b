/*
Package carrier moves sealed trace segments from application goroutines to
the transport sink without ever blocking the instrumented code path beyond
the configured lane policy.

# Overview

Segments flow through three stages: a Partitioner maps each segment to one
of N lanes, the Lane buffers it under an overflow policy, and the
ConsumerPool drains lanes in batches and forwards them to a Sink. Lanes are
independent; there is no global lock across the carrier, and each lane has
exactly one drainer, so acceptance order within a lane is delivery order.

# Overflow policies

  - block: the producer waits for space. Capacity is never exceeded.
  - if_possible: a bounded number of attempts, then the segment is dropped.
  - skip: one attempt, drop immediately on a full lane.

Drops are never surfaced to the instrumented goroutine as errors; they show
up in the swagent_carrier_dropped_total counter and throttled warn logs.

# Partitioners

  - round_robin: even spread, no ordering relation between segments.
  - hash: lane chosen by trace id, keeping each trace's segments in order.
  - random: uniform random lane.

# Usage

	sink := transport.NewReporter(cfg.Reporter, url, logger, metrics)
	c := carrier.New(cfg.Carrier, sink, logger, metrics)
	c.Start()

	c.Produce(segment)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Shutdown(ctx)
*/
package carrier
