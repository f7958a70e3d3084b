package tracing

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZHKGitHub1994/skywalking/internal/dictionary"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
)

func TestSingleSpanLifecycle(t *testing.T) {
	var sealed *Segment
	tc := NewContext(Options{Service: "checkout", OnSealed: func(s *Segment) { sealed = s }})

	span := tc.CreateEntrySpan("GET /api/users")
	assert.Equal(t, int32(0), span.SpanID)
	assert.Equal(t, int32(-1), span.ParentSpanID)
	assert.Equal(t, KindEntry, span.Kind)
	assert.False(t, span.Finished())

	finished, err := tc.StopSpan(span)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.True(t, span.Finished())

	require.NotNil(t, sealed)
	assert.True(t, sealed.Sealed())
	assert.Equal(t, 1, sealed.SpanCount())
	assert.Equal(t, "checkout", sealed.Service)
}

func TestNestedSpansParentChildAndFinishOrder(t *testing.T) {
	var sealed *Segment
	tc := NewContext(Options{Service: "checkout", OnSealed: func(s *Segment) { sealed = s }})

	entry := tc.CreateEntrySpan("GET /checkout")
	local := tc.CreateLocalSpan("compute-cart")
	exit := tc.CreateExitSpan("POST /payments", "payments:443")

	assert.Equal(t, int32(0), entry.SpanID)
	assert.Equal(t, int32(1), local.SpanID)
	assert.Equal(t, int32(2), exit.SpanID)
	assert.Equal(t, int32(-1), entry.ParentSpanID)
	assert.Equal(t, int32(0), local.ParentSpanID)
	assert.Equal(t, int32(1), exit.ParentSpanID)

	for _, s := range []*Span{exit, local, entry} {
		finished, err := tc.StopSpan(s)
		require.NoError(t, err)
		assert.True(t, finished)
	}

	require.NotNil(t, sealed)
	require.Equal(t, 3, sealed.SpanCount())

	// Spans archive in finish order, leaves first.
	assert.Same(t, exit, sealed.Spans[0])
	assert.Same(t, local, sealed.Spans[1])
	assert.Same(t, entry, sealed.Spans[2])
}

func TestEntrySpanReentrancy(t *testing.T) {
	tc := NewContext(Options{})

	outer := tc.CreateEntrySpan("/servlet")
	outer.SetTag("layer", "servlet")
	outer.Log("dispatching", nil)

	inner := tc.CreateEntrySpan("UserController.list")

	// Same span, deeper layer: renamed, tags and logs reset.
	assert.Same(t, outer, inner)
	assert.Equal(t, "UserController.list", inner.OperationName)
	assert.Nil(t, inner.Tags)
	assert.Nil(t, inner.Logs)
	assert.Equal(t, int32(2), inner.Depth())

	finished, err := tc.StopSpan(inner)
	require.NoError(t, err)
	assert.False(t, finished, "inner layer must not finish the span")
	assert.False(t, tc.Segment().Sealed())

	finished, err = tc.StopSpan(outer)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.True(t, tc.Segment().Sealed())
	assert.Equal(t, 1, tc.Segment().SpanCount())
}

func TestExitSpanFirstLayerWins(t *testing.T) {
	tc := NewContext(Options{})

	root := tc.CreateEntrySpan("GET /")
	outer := tc.CreateExitSpan("query-orders", "db:5432")
	inner := tc.CreateExitSpan("tcp-send", "10.0.0.2:5432")

	assert.Same(t, outer, inner)
	assert.Equal(t, "query-orders", inner.OperationName)
	assert.Equal(t, "db:5432", inner.Peer)

	finished, err := tc.StopSpan(inner)
	require.NoError(t, err)
	assert.False(t, finished)

	finished, err = tc.StopSpan(outer)
	require.NoError(t, err)
	assert.True(t, finished)

	_, err = tc.StopSpan(root)
	require.NoError(t, err)
	assert.Equal(t, 2, tc.Segment().SpanCount())
}

func TestEntryAfterLocalPushesNewSpan(t *testing.T) {
	tc := NewContext(Options{})

	root := tc.CreateEntrySpan("GET /")
	tc.CreateLocalSpan("work")
	second := tc.CreateEntrySpan("nested-entry")

	// Merging only happens when the active span is an entry span.
	assert.NotSame(t, root, second)
	assert.Equal(t, int32(2), second.SpanID)
	assert.Equal(t, int32(1), second.ParentSpanID)
}

func TestLocalSpansNeverMerge(t *testing.T) {
	tc := NewContext(Options{})

	root := tc.CreateEntrySpan("GET /")
	a := tc.CreateLocalSpan("step")
	b := tc.CreateLocalSpan("step")

	assert.NotSame(t, a, b)

	tc.StopSpan(b)
	tc.StopSpan(a)
	tc.StopSpan(root)
	assert.Equal(t, 3, tc.Segment().SpanCount())
}

func TestStopSpanOutOfOrder(t *testing.T) {
	tc := NewContext(Options{})

	entry := tc.CreateEntrySpan("GET /")
	local := tc.CreateLocalSpan("inner")

	finished, err := tc.StopSpan(entry)
	assert.ErrorIs(t, err, ErrNotTopOfStack)
	assert.False(t, finished)

	// The stack is untouched: the local span is still active and both
	// close normally afterwards.
	active, ok := tc.ActiveSpan()
	require.True(t, ok)
	assert.Same(t, local, active)

	finished, err = tc.StopSpan(local)
	require.NoError(t, err)
	assert.True(t, finished)

	finished, err = tc.StopSpan(entry)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.True(t, tc.Segment().Sealed())
}

func TestStopSpanNil(t *testing.T) {
	tc := NewContext(Options{})
	tc.CreateEntrySpan("GET /")

	_, err := tc.StopSpan(nil)
	assert.ErrorIs(t, err, ErrNotTopOfStack)
}

func TestStopSpanOnEmptyStack(t *testing.T) {
	tc := NewContext(Options{})
	span := tc.CreateEntrySpan("GET /")

	_, err := tc.StopSpan(span)
	require.NoError(t, err)

	_, err = tc.StopSpan(span)
	assert.ErrorIs(t, err, ErrNotTopOfStack)
}

func TestSealedCallbackFiresOnce(t *testing.T) {
	calls := 0
	tc := NewContext(Options{OnSealed: func(*Segment) { calls++ }})

	span := tc.CreateEntrySpan("GET /")
	_, err := tc.StopSpan(span)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestContextReuseAfterSealDiscards(t *testing.T) {
	calls := 0
	tc := NewContext(Options{OnSealed: func(*Segment) { calls++ }})

	first := tc.CreateEntrySpan("GET /")
	_, err := tc.StopSpan(first)
	require.NoError(t, err)

	// The segment is spent; a late span unwinds cleanly but is discarded.
	late := tc.CreateEntrySpan("GET /again")
	finished, err := tc.StopSpan(late)
	require.NoError(t, err)
	assert.True(t, finished)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, tc.Segment().SpanCount())
}

func TestActiveSpanEmpty(t *testing.T) {
	tc := NewContext(Options{})

	_, ok := tc.ActiveSpan()
	assert.False(t, ok)
}

func TestContinuedTrace(t *testing.T) {
	first := NewContext(Options{Service: "gateway"})
	second := NewContext(Options{Service: "checkout", TraceID: first.TraceID()})

	assert.Equal(t, first.TraceID(), second.TraceID())
	assert.NotEqual(t, first.Segment().SegmentID, second.Segment().SegmentID)
}

func TestFinishResolvesInternedOperation(t *testing.T) {
	dict := dictionary.NewOperationRegistry(16, nil)
	key := dictionary.OperationKey{AppCode: 7, Name: "GET /api/users"}
	require.NoError(t, dict.Assign(key, 42))

	var sealed *Segment
	tc := NewContext(Options{AppCode: 7, Dictionary: dict, OnSealed: func(s *Segment) { sealed = s }})

	span := tc.CreateEntrySpan("GET /api/users")
	_, err := tc.StopSpan(span)
	require.NoError(t, err)

	require.NotNil(t, sealed)
	require.Equal(t, 1, sealed.SpanCount())
	assert.Equal(t, int32(42), sealed.Spans[0].OperationCode)
	assert.Empty(t, sealed.Spans[0].OperationName, "interned code replaces the symbolic name")
}

func TestFinishKeepsSymbolicNameAndQueues(t *testing.T) {
	dict := dictionary.NewOperationRegistry(16, nil)
	tc := NewContext(Options{AppCode: 7, Dictionary: dict})

	span := tc.CreateEntrySpan("GET /api/users")
	_, err := tc.StopSpan(span)
	require.NoError(t, err)

	assert.Equal(t, dictionary.NullCode, span.OperationCode)
	assert.Equal(t, "GET /api/users", span.OperationName)
	assert.Equal(t, 1, dict.PendingCount())
}

func TestUnregisteredApplicationNeverEnqueues(t *testing.T) {
	dict := dictionary.NewOperationRegistry(16, nil)
	tc := NewContext(Options{AppCode: dictionary.NullCode, Dictionary: dict})

	span := tc.CreateEntrySpan("GET /api/users")
	_, err := tc.StopSpan(span)
	require.NoError(t, err)

	assert.Equal(t, "GET /api/users", span.OperationName)
	assert.Equal(t, 0, dict.PendingCount())
}

func TestPreResolvedOperationCodeSkipsDictionary(t *testing.T) {
	dict := dictionary.NewOperationRegistry(16, nil)
	tc := NewContext(Options{AppCode: 7, Dictionary: dict})

	span := tc.CreateEntrySpan("GET /api/users")
	span.SetOperationCode(42)

	_, err := tc.StopSpan(span)
	require.NoError(t, err)

	assert.Equal(t, int32(42), span.OperationCode)
	assert.Empty(t, span.OperationName)
	assert.Equal(t, 0, dict.PendingCount(), "pinned code must not consult the dictionary")
}

func TestSetOperationCodeIgnoresNull(t *testing.T) {
	tc := NewContext(Options{})

	span := tc.CreateEntrySpan("GET /api/users")
	span.SetOperationCode(dictionary.NullCode)

	assert.Equal(t, dictionary.NullCode, span.OperationCode)
	assert.Equal(t, "GET /api/users", span.OperationName)
}

func TestMetricsTrackSpanLifecycle(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	tc := NewContext(Options{Metrics: m})

	entry := tc.CreateEntrySpan("GET /")
	tc.CreateEntrySpan("deeper") // re-enter, not a new start
	local := tc.CreateLocalSpan("work")

	_, err := tc.StopSpan(local)
	require.NoError(t, err)
	_, err = tc.StopSpan(entry) // unwinds the re-entered layer
	require.NoError(t, err)
	finished, err := tc.StopSpan(entry)
	require.NoError(t, err)
	require.True(t, finished)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.SpansStarted)
	assert.Equal(t, int64(2), snap.SpansFinished)
	assert.Equal(t, int64(1), snap.SegmentsSealed)
}

func TestOutOfOrderStopIsCounted(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	tc := NewContext(Options{Metrics: m})

	entry := tc.CreateEntrySpan("GET /")
	tc.CreateLocalSpan("inner")

	_, err := tc.StopSpan(entry)
	assert.ErrorIs(t, err, ErrNotTopOfStack)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderingViolations))
}

func TestSpanErrorAndTags(t *testing.T) {
	tc := NewContext(Options{})

	span := tc.CreateEntrySpan("GET /")
	span.SetTag("http.method", "GET")
	span.SetTag("http.status", "500")
	span.SetError(errors.New("boom"))
	span.Log("failing request", map[string]interface{}{"attempt": 1})

	_, err := tc.StopSpan(span)
	require.NoError(t, err)

	assert.Equal(t, "GET", span.Tags["http.method"])
	assert.Equal(t, "500", span.Tags["http.status"])
	assert.EqualError(t, span.Error, "boom")
	require.Len(t, span.Logs, 1)
	assert.Positive(t, span.Duration())
}

func TestSealedSegmentIgnoresLateSpans(t *testing.T) {
	seg := newSegment("", "svc", "inst", 0)
	seg.archive(&Span{})
	seg.seal()
	seg.archive(&Span{})

	assert.Equal(t, 1, seg.SpanCount())
}
