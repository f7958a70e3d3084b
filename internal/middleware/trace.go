package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZHKGitHub1994/skywalking/internal/agent"
	"github.com/ZHKGitHub1994/skywalking/internal/shared/id"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// TraceHeader propagates the trace id between services and back to callers.
const TraceHeader = "X-Trace-ID"

// Trace opens a tracing context and an entry span per request. The context
// rides the request's context.Context, so handlers reach it through
// tracing.FromContext and log lines can carry tracing.LogField. A valid
// upstream X-Trace-ID joins that trace; anything else starts a new one.
func Trace(ag *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tc *tracing.Context
		if upstream := c.GetHeader(TraceHeader); id.IsValid(upstream) {
			tc = ag.ContinueContext(id.TraceID(upstream))
		} else {
			tc = ag.NewContext()
		}

		// Route template when matched, raw path otherwise, so unmatched
		// requests do not explode the operation dictionary.
		op := c.FullPath()
		if op == "" {
			op = c.Request.URL.Path
		}
		span := tc.CreateEntrySpan(c.Request.Method + " " + op)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.url", c.Request.URL.String())
		span.SetTag("http.host", c.Request.Host)

		c.Request = c.Request.WithContext(tracing.WithContext(c.Request.Context(), tc))
		c.Header(TraceHeader, tc.TraceID().String())

		c.Next()

		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		// An unbalanced handler leaves child spans open; the engine logs
		// the violation and keeps the stack intact.
		_, _ = tc.StopSpan(span)
	}
}
