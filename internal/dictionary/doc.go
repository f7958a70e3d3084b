/*
Package dictionary interns application and operation names into compact
integer codes so that sealed segments ship numbers instead of strings.

# Overview

Codes are assigned by the collector, never by the agent. A lookup for an
unknown name queues it as pending and returns the null sentinel; the caller
keeps using the symbolic name until a later lookup finds the code interned.
The background Syncer pushes pending names to a Resolver and applies the
assignments it gets back.

# Contention

Lookups are lock-free. Registration takes a mutex with TryLock, so a caller
that loses the race simply walks away with the sentinel rather than waiting
behind another writer. Span finishing stays fast no matter how many
goroutines discover the same new name at once.

# Capacity

Each registry is bounded. Once interned plus pending entries reach capacity,
new names are refused and the corresponding spans continue shipping symbolic
names forever. This caps agent memory against unbounded operation-name
cardinality (ids in URLs, timestamps in task names).

# Resolvers

HTTPResolver talks to a real collector. LocalResolver assigns codes from a
process-local counter for standalone deployments and tests.
*/
package dictionary
