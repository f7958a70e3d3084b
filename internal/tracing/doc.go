/*
Package tracing implements the span stack engine at the core of the agent.

# Overview

Each unit of work (typically one HTTP request) gets a Context holding a
stack of spans. Instrumentation layers open entry, local, and exit spans as
execution descends and stop them as it unwinds; when the last span stops,
the finished spans leave as a sealed Segment through a callback. Span stacks
replace the original agent's thread-bound trace state with an explicit
object carried on context.Context.

# Re-entrancy

Layered frameworks instrument the same boundary more than once (an HTTP
server layer and a router layer both announce "a request arrived"). Entry
and exit spans absorb these repeats with a depth counter instead of nesting:

  - Entry spans: the deepest layer wins. Re-entering renames the span and
    resets its tags and logs.
  - Exit spans: the first layer wins. Re-entering keeps the original name
    and peer.
  - Local spans never re-enter.

A span only finishes when every layer that started it has stopped.

# Dictionary resolution

Spans record symbolic operation names. At finish, the engine asks the
dictionary for the interned code: found means the code replaces the name on
the wire, not found means the name ships symbolically and queues for a
later sync round. Either way the finish path never blocks.

# Usage

	tc := tracing.NewContext(tracing.Options{Service: "checkout", OnSealed: ship})
	ctx = tracing.WithContext(ctx, tc)

	span := tc.CreateEntrySpan("GET /api/users")
	span.SetTag("http.method", "GET")
	// ... handle request ...
	tc.StopSpan(span)

# Log correlation

tracing.TraceID(ctx) yields the active trace id or "N/A", safe anywhere a
log line needs correlating, inside a request or not.
*/
package tracing
