package dictionary

import (
	"sync"
	"sync/atomic"

	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
)

// ApplicationRegistry interns application (service) names into compact
// codes. It carries the same non-blocking registration contract as
// OperationRegistry; the population is tiny but the code must exist before
// any operation under it can intern.
type ApplicationRegistry struct {
	codes    sync.Map // string -> int32
	mu       sync.Mutex
	pending  map[string]struct{}
	count    atomic.Int64
	interned atomic.Int64
	capacity int64
	metrics  *monitoring.Metrics
}

// NewApplicationRegistry creates a registry bounded at capacity entries.
func NewApplicationRegistry(capacity int, metrics *monitoring.Metrics) *ApplicationRegistry {
	return &ApplicationRegistry{
		pending:  make(map[string]struct{}),
		capacity: int64(capacity),
		metrics:  metrics,
	}
}

// Find retrieves the code for an already interned application.
func (r *ApplicationRegistry) Find(name string) (int32, bool) {
	if v, ok := r.codes.Load(name); ok {
		return v.(int32), true
	}
	return NullCode, false
}

// FindOrRegister retrieves the code for an application, queueing the name
// for registration when it is unknown.
func (r *ApplicationRegistry) FindOrRegister(name string) (int32, bool) {
	if v, ok := r.codes.Load(name); ok {
		r.record("hit")
		return v.(int32), true
	}
	if name == "" {
		return NullCode, false
	}

	if r.count.Load() >= r.capacity {
		r.record("saturated")
		return NullCode, false
	}
	if !r.mu.TryLock() {
		r.record("contended")
		return NullCode, false
	}
	defer r.mu.Unlock()

	if v, ok := r.codes.Load(name); ok {
		r.record("hit")
		return v.(int32), true
	}
	if _, queued := r.pending[name]; !queued {
		if r.count.Load() >= r.capacity {
			r.record("saturated")
			return NullCode, false
		}
		r.pending[name] = struct{}{}
		r.count.Add(1)
	}
	r.record("pending")
	return NullCode, false
}

// Assign interns a collector-assigned code for an application name. The
// first assignment wins; a code never changes once interned.
func (r *ApplicationRegistry) Assign(name string, code int32) error {
	if code == NullCode {
		return ErrNullAssignment
	}
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, loaded := r.codes.LoadOrStore(name, code); loaded {
		delete(r.pending, name)
		return nil
	}
	if _, queued := r.pending[name]; queued {
		delete(r.pending, name)
	} else {
		r.count.Add(1)
	}
	r.interned.Add(1)
	if r.metrics != nil {
		r.metrics.SetDictEntries("application", int(r.interned.Load()))
	}
	return nil
}

// PendingNames returns a snapshot of names awaiting a code.
func (r *ApplicationRegistry) PendingNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.pending))
	for n := range r.pending {
		names = append(names, n)
	}
	return names
}

// Len returns the number of interned applications.
func (r *ApplicationRegistry) Len() int {
	return int(r.interned.Load())
}

// PendingCount returns the number of names awaiting a code.
func (r *ApplicationRegistry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stats returns registry statistics
func (r *ApplicationRegistry) Stats() map[string]interface{} {
	return map[string]interface{}{
		"interned": r.Len(),
		"pending":  r.PendingCount(),
		"capacity": int(r.capacity),
	}
}

func (r *ApplicationRegistry) record(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordFind("application", outcome)
	}
}
