package tracing

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ZHKGitHub1994/skywalking/internal/dictionary"
	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
	"github.com/ZHKGitHub1994/skywalking/internal/shared/id"
)

// ErrNotTopOfStack rejects an out-of-order stop. Spans close strictly LIFO;
// stopping anything but the active span mutates nothing.
var ErrNotTopOfStack = errors.New("span is not the top of the stack")

// Options configures a tracing context.
type Options struct {
	Service    string
	InstanceID string

	// AppCode is the interned application code, or the null sentinel while
	// the application is still registering.
	AppCode int32

	// TraceID continues an existing trace; empty starts a new one.
	TraceID id.TraceID

	Dictionary *dictionary.OperationRegistry
	Metrics    *monitoring.Metrics
	Logger     *logging.Logger

	// OnSealed receives the segment once the root span stops.
	OnSealed func(*Segment)
}

// Context drives the span stack for one unit of work. It is bound to the
// goroutine executing that work and is not safe for concurrent use; Go's
// replacement for the original agent's thread-bound trace state.
type Context struct {
	segment  *Segment
	stack    []*Span
	nextID   int32
	appCode  int32
	dict     *dictionary.OperationRegistry
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	onSealed func(*Segment)
	spent    bool
}

// NewContext creates the span stack for one unit of work.
func NewContext(opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Context{
		segment:  newSegment(opts.TraceID, opts.Service, opts.InstanceID, opts.AppCode),
		appCode:  opts.AppCode,
		dict:     opts.Dictionary,
		metrics:  opts.Metrics,
		logger:   logger,
		onSealed: opts.OnSealed,
	}
}

// CreateEntrySpan opens the span marking where work entered the process.
// When the active span is already an entry span, the deeper layer takes it
// over instead of nesting: depth increments and the new name wins, with
// tags and logs reset. One entry span per segment.
func (c *Context) CreateEntrySpan(name string) *Span {
	if top := c.peek(); top != nil && top.Kind == KindEntry {
		top.restart(name)
		return top
	}
	return c.push(name, KindEntry, "")
}

// CreateLocalSpan opens a span for in-process work. Local spans never
// re-enter; every call pushes a fresh span.
func (c *Context) CreateLocalSpan(name string) *Span {
	return c.push(name, KindLocal, "")
}

// CreateExitSpan opens the span marking where a call leaves the process.
// When the active span is already an exit span, depth increments and the
// original name and peer stick: the layer nearest the application described
// the call first.
func (c *Context) CreateExitSpan(name, peer string) *Span {
	if top := c.peek(); top != nil && top.Kind == KindExit {
		top.reenter()
		return top
	}
	return c.push(name, KindExit, peer)
}

// StopSpan closes one layer of the given span. The bool reports whether the
// span truly finished rather than just unwinding a re-entrant layer. When
// the last span finishes, the segment seals and leaves through OnSealed.
func (c *Context) StopSpan(span *Span) (bool, error) {
	if span == nil {
		return false, ErrNotTopOfStack
	}
	top := c.peek()
	if top != span {
		c.logger.Warn("stopping span out of order",
			zap.String("operation", span.OperationName),
			zap.Int32("span_id", span.SpanID))
		if c.metrics != nil {
			c.metrics.RecordOrderingViolation()
		}
		return false, ErrNotTopOfStack
	}

	span.depth--
	if span.depth > 0 {
		return false, nil
	}

	c.resolveOperation(span)
	span.EndTime = time.Now()
	c.stack = c.stack[:len(c.stack)-1]
	if c.segment.Sealed() {
		c.logger.Warn("discarding span finished after segment sealed",
			zap.String("operation", span.OperationName),
			zap.Int32("span_id", span.SpanID))
	} else {
		c.segment.archive(span)
	}
	if c.metrics != nil {
		c.metrics.RecordSpanFinish()
	}

	if len(c.stack) == 0 {
		c.sealSegment()
	}
	return true, nil
}

// ActiveSpan returns the current stack top.
func (c *Context) ActiveSpan() (*Span, bool) {
	if top := c.peek(); top != nil {
		return top, true
	}
	return nil, false
}

// Segment exposes the context's segment for inspection. It is mutable
// until sealed.
func (c *Context) Segment() *Segment {
	return c.segment
}

// TraceID returns the segment's global trace id.
func (c *Context) TraceID() id.TraceID {
	return c.segment.TraceID
}

func (c *Context) push(name string, kind Kind, peer string) *Span {
	parent := int32(-1)
	if top := c.peek(); top != nil {
		parent = top.SpanID
	}

	span := &Span{
		SpanID:        c.nextID,
		ParentSpanID:  parent,
		Kind:          kind,
		OperationName: name,
		OperationCode: dictionary.NullCode,
		Peer:          peer,
		StartTime:     time.Now(),
		depth:         1,
	}
	c.nextID++
	c.stack = append(c.stack, span)

	if c.metrics != nil {
		c.metrics.RecordSpanStart(kind.String())
	}
	return span
}

func (c *Context) peek() *Span {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// resolveOperation swaps the symbolic name for the interned code when the
// dictionary already knows it. Unknown names queue for a later sync round
// and this span ships symbolically.
func (c *Context) resolveOperation(span *Span) {
	if c.dict == nil || span.OperationCode != dictionary.NullCode {
		return
	}
	if c.appCode == dictionary.NullCode {
		// No application code yet, so the name has no scope to intern
		// under. It must not enqueue.
		return
	}
	if code, ok := c.dict.FindOrRegister(c.appCode, span.OperationName); ok {
		span.OperationCode = code
		span.OperationName = ""
	}
}

func (c *Context) sealSegment() {
	if c.spent {
		return
	}
	c.spent = true
	c.segment.seal()

	if c.metrics != nil {
		c.metrics.RecordSegmentSealed(len(c.segment.Spans))
	}
	if c.onSealed != nil {
		c.onSealed(c.segment)
	}
}
