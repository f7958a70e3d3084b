package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// LogReporter writes segment summaries to the agent log instead of shipping
// them. It is the sink for standalone mode, where no collector is configured.
type LogReporter struct {
	logger *logging.Logger
}

// NewLogReporter creates a log-backed sink.
func NewLogReporter(logger *logging.Logger) *LogReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogReporter{logger: logger.Named("segments")}
}

// Send logs each segment in the batch. It never fails.
func (r *LogReporter) Send(_ context.Context, batch []*tracing.Segment) error {
	for _, seg := range batch {
		if seg == nil {
			continue
		}

		fields := []zap.Field{
			zap.String("trace_id", string(seg.TraceID)),
			zap.String("segment_id", string(seg.SegmentID)),
			zap.String("service", seg.Service),
			zap.Int("spans", seg.SpanCount()),
		}

		failed := false
		for _, span := range seg.Spans {
			if span.Error != nil {
				failed = true
				break
			}
		}
		if failed {
			r.logger.Warn("segment completed with errors", fields...)
		} else {
			r.logger.Info("segment completed", fields...)
		}

		for _, span := range seg.Spans {
			r.logger.Debug("span",
				zap.Int32("span_id", span.SpanID),
				zap.Int32("parent_id", span.ParentSpanID),
				zap.String("kind", span.Kind.String()),
				zap.String("operation", span.OperationName),
				zap.Int32("operation_code", span.OperationCode),
				zap.Duration("duration", span.Duration()),
			)
		}
	}
	return nil
}
