package tracing

import (
	"time"

	"github.com/ZHKGitHub1994/skywalking/internal/shared/id"
)

// Segment is the unit shipped to the collector: every span of one trace
// that finished inside this process, in finish order (leaves first).
type Segment struct {
	TraceID    id.TraceID
	SegmentID  id.SegmentID
	Service    string
	AppCode    int32
	InstanceID string
	Spans      []*Span
	CreatedAt  time.Time

	sealed bool
}

func newSegment(traceID id.TraceID, service, instanceID string, appCode int32) *Segment {
	if traceID == "" {
		traceID = id.NewTraceID()
	}
	return &Segment{
		TraceID:    traceID,
		SegmentID:  id.NewSegmentID(),
		Service:    service,
		AppCode:    appCode,
		InstanceID: instanceID,
		CreatedAt:  time.Now(),
	}
}

// archive appends a finished span. Sealed segments ignore late arrivals.
func (s *Segment) archive(span *Span) {
	if s.sealed {
		return
	}
	s.Spans = append(s.Spans, span)
}

func (s *Segment) seal() {
	s.sealed = true
}

// Sealed reports whether the segment is immutable and ready to ship.
func (s *Segment) Sealed() bool {
	return s.sealed
}

// SpanCount returns the number of archived spans.
func (s *Segment) SpanCount() int {
	return len(s.Spans)
}
