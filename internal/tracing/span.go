package tracing

import (
	"time"

	"github.com/ZHKGitHub1994/skywalking/internal/dictionary"
)

// Kind classifies a span's relationship to the process boundary.
type Kind int8

const (
	// KindLocal marks in-process work.
	KindLocal Kind = iota
	// KindEntry marks the span opened where a request enters the process.
	KindEntry
	// KindExit marks the span opened where a call leaves the process.
	KindExit
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEntry:
		return "entry"
	case KindExit:
		return "exit"
	default:
		return "local"
	}
}

// LogEntry represents a log within a span
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Fields    map[string]interface{}
}

// Span represents a single operation in a trace. A span is owned by the
// Context that created it until it finishes; afterwards it is inert data
// inside the segment. Spans are not safe for concurrent mutation.
type Span struct {
	SpanID       int32
	ParentSpanID int32
	Kind         Kind

	// OperationName and OperationCode are mutually exclusive: the name
	// stays symbolic until the dictionary interns it, then the code
	// replaces it on the finished span.
	OperationName string
	OperationCode int32

	// Peer is the remote address of an exit span.
	Peer string

	StartTime time.Time
	EndTime   time.Time
	Tags      map[string]string
	Logs      []LogEntry
	Error     error

	// depth counts re-entrant starts; the span truly finishes at zero.
	depth int32
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

// SetError records an error on the span
func (s *Span) SetError(err error) {
	s.Error = err
}

// SetOperationCode pins an already interned code on the span, discarding the
// symbolic name; finish then skips dictionary resolution. The null sentinel
// is ignored.
func (s *Span) SetOperationCode(code int32) {
	if code == dictionary.NullCode {
		return
	}
	s.OperationCode = code
	s.OperationName = ""
}

// Log adds a log entry to the span
func (s *Span) Log(message string, fields map[string]interface{}) {
	s.Logs = append(s.Logs, LogEntry{
		Timestamp: time.Now(),
		Message:   message,
		Fields:    fields,
	})
}

// Duration returns the span's elapsed time, zero until it finishes.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Finished reports whether every re-entrant layer has stopped.
func (s *Span) Finished() bool {
	return s.depth == 0 && !s.EndTime.IsZero()
}

// Depth returns the current re-entrancy depth.
func (s *Span) Depth() int32 {
	return s.depth
}

// reenter absorbs a nested start into this span.
func (s *Span) reenter() {
	s.depth++
}

// restart re-describes an entry span for a deeper instrumentation layer:
// the new name wins and tags and logs reset, while the ids and start time
// of the outermost layer survive.
func (s *Span) restart(name string) {
	s.depth++
	s.OperationName = name
	s.OperationCode = dictionary.NullCode
	s.Tags = nil
	s.Logs = nil
}
