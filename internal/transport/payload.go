package transport

import (
	"github.com/ZHKGitHub1994/skywalking/internal/dictionary"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// reportRequest is the collector wire form of a segment batch.
type reportRequest struct {
	Segments []segmentPayload `json:"segments"`
}

type segmentPayload struct {
	TraceID    string        `json:"traceId"`
	SegmentID  string        `json:"segmentId"`
	Service    string        `json:"service"`
	AppCode    int32         `json:"appCode,omitempty"`
	InstanceID string        `json:"instanceId,omitempty"`
	Spans      []spanPayload `json:"spans"`
}

// spanPayload carries either operationCode or operationName, never both.
// Uninterned names ship symbolically and the collector resolves them.
type spanPayload struct {
	SpanID        int32             `json:"spanId"`
	ParentSpanID  int32             `json:"parentSpanId"`
	Kind          string            `json:"kind"`
	OperationName string            `json:"operationName,omitempty"`
	OperationCode int32             `json:"operationCode,omitempty"`
	Peer          string            `json:"peer,omitempty"`
	StartTime     int64             `json:"startTime"`
	EndTime       int64             `json:"endTime"`
	Tags          map[string]string `json:"tags,omitempty"`
	Logs          []logPayload      `json:"logs,omitempty"`
	Error         string            `json:"error,omitempty"`
}

type logPayload struct {
	Timestamp int64                  `json:"timestamp"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func toRequest(batch []*tracing.Segment) reportRequest {
	req := reportRequest{Segments: make([]segmentPayload, 0, len(batch))}
	for _, seg := range batch {
		if seg == nil {
			continue
		}
		req.Segments = append(req.Segments, toSegmentPayload(seg))
	}
	return req
}

func toSegmentPayload(seg *tracing.Segment) segmentPayload {
	p := segmentPayload{
		TraceID:    string(seg.TraceID),
		SegmentID:  string(seg.SegmentID),
		Service:    seg.Service,
		AppCode:    seg.AppCode,
		InstanceID: seg.InstanceID,
		Spans:      make([]spanPayload, 0, len(seg.Spans)),
	}
	for _, span := range seg.Spans {
		p.Spans = append(p.Spans, toSpanPayload(span))
	}
	return p
}

func toSpanPayload(span *tracing.Span) spanPayload {
	p := spanPayload{
		SpanID:       span.SpanID,
		ParentSpanID: span.ParentSpanID,
		Kind:         span.Kind.String(),
		Peer:         span.Peer,
		StartTime:    span.StartTime.UnixMilli(),
		EndTime:      span.EndTime.UnixMilli(),
		Tags:         span.Tags,
	}
	if span.OperationCode != dictionary.NullCode {
		p.OperationCode = span.OperationCode
	} else {
		p.OperationName = span.OperationName
	}
	if span.Error != nil {
		p.Error = span.Error.Error()
	}
	for _, entry := range span.Logs {
		p.Logs = append(p.Logs, logPayload{
			Timestamp: entry.Timestamp.UnixMilli(),
			Message:   entry.Message,
			Fields:    entry.Fields,
		})
	}
	return p
}
