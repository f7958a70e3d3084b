package dictionary

import (
	"sync"
	"sync/atomic"

	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
)

// OperationRegistry interns operation names into compact codes. Lookups are
// lock-free; registration queues the name for the next sync round and never
// blocks the caller, even under contention.
type OperationRegistry struct {
	codes    sync.Map // OperationKey -> int32
	mu       sync.Mutex
	pending  map[OperationKey]struct{}
	count    atomic.Int64 // interned + pending, bounded by capacity
	interned atomic.Int64
	capacity int64
	metrics  *monitoring.Metrics
}

// NewOperationRegistry creates a registry bounded at capacity entries.
func NewOperationRegistry(capacity int, metrics *monitoring.Metrics) *OperationRegistry {
	return &OperationRegistry{
		pending:  make(map[OperationKey]struct{}),
		capacity: int64(capacity),
		metrics:  metrics,
	}
}

// Find retrieves the code for an already interned operation.
func (r *OperationRegistry) Find(appCode int32, name string) (int32, bool) {
	if v, ok := r.codes.Load(OperationKey{AppCode: appCode, Name: name}); ok {
		return v.(int32), true
	}
	return NullCode, false
}

// FindOrRegister retrieves the code for an operation, queueing the name for
// registration when it is unknown. The second return reports whether the
// code is usable; callers seeing false keep the symbolic name and retry on a
// later lookup. A full registry or a contended registration lock both yield
// the null sentinel rather than blocking.
func (r *OperationRegistry) FindOrRegister(appCode int32, name string) (int32, bool) {
	key := OperationKey{AppCode: appCode, Name: name}
	if v, ok := r.codes.Load(key); ok {
		r.record("hit")
		return v.(int32), true
	}
	if name == "" || appCode == NullCode {
		// A name with no registered application has no scope to intern
		// under; it must not occupy capacity.
		return NullCode, false
	}

	if r.count.Load() >= r.capacity {
		r.record("saturated")
		return NullCode, false
	}
	if !r.mu.TryLock() {
		// Someone else is registering. The name gets another chance on
		// the next lookup.
		r.record("contended")
		return NullCode, false
	}
	defer r.mu.Unlock()

	if v, ok := r.codes.Load(key); ok {
		r.record("hit")
		return v.(int32), true
	}
	if _, queued := r.pending[key]; !queued {
		if r.count.Load() >= r.capacity {
			r.record("saturated")
			return NullCode, false
		}
		r.pending[key] = struct{}{}
		r.count.Add(1)
	}
	r.record("pending")
	return NullCode, false
}

// Assign interns a collector-assigned code, clearing the matching pending
// entry. The first assignment for a key wins; a code never changes once
// interned. Unsolicited assignments are accepted and count against capacity.
func (r *OperationRegistry) Assign(key OperationKey, code int32) error {
	if code == NullCode {
		return ErrNullAssignment
	}
	if key.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, loaded := r.codes.LoadOrStore(key, code); loaded {
		// Two overlapping sync rounds can deliver the same key twice.
		delete(r.pending, key)
		return nil
	}
	if _, queued := r.pending[key]; queued {
		delete(r.pending, key)
	} else {
		r.count.Add(1)
	}
	r.interned.Add(1)
	if r.metrics != nil {
		r.metrics.SetDictEntries("operation", int(r.interned.Load()))
	}
	return nil
}

// PendingKeys returns a snapshot of names awaiting a code.
func (r *OperationRegistry) PendingKeys() []OperationKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]OperationKey, 0, len(r.pending))
	for k := range r.pending {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of interned operations.
func (r *OperationRegistry) Len() int {
	return int(r.interned.Load())
}

// PendingCount returns the number of names awaiting a code.
func (r *OperationRegistry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stats returns registry statistics
func (r *OperationRegistry) Stats() map[string]interface{} {
	return map[string]interface{}{
		"interned": r.Len(),
		"pending":  r.PendingCount(),
		"capacity": int(r.capacity),
	}
}

func (r *OperationRegistry) record(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordFind("operation", outcome)
	}
}
