package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZHKGitHub1994/skywalking/internal/config"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
	"github.com/ZHKGitHub1994/skywalking/internal/shared/id"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

func testReporterConfig() config.ReporterConfig {
	return config.ReporterConfig{
		Timeout:    time.Second,
		MaxRetries: 0,
		Compress:   false,
	}
}

func sampleSegment() *tracing.Segment {
	start := time.Now().Add(-10 * time.Millisecond)
	return &tracing.Segment{
		TraceID:    id.NewTraceID(),
		SegmentID:  id.NewSegmentID(),
		Service:    "checkout",
		AppCode:    7,
		InstanceID: "inst-1",
		Spans: []*tracing.Span{
			{
				SpanID:        0,
				ParentSpanID:  -1,
				Kind:          tracing.KindEntry,
				OperationName: "GET /checkout",
				StartTime:     start,
				EndTime:       time.Now(),
				Tags:          map[string]string{"http.method": "GET"},
			},
		},
	}
}

func TestReporterSendsBatch(t *testing.T) {
	var captured reportRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/segments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	seg := sampleSegment()
	rep := NewReporter(testReporterConfig(), srv.URL, nil, nil)
	require.NoError(t, rep.Send(context.Background(), []*tracing.Segment{seg}))

	require.Len(t, captured.Segments, 1)
	got := captured.Segments[0]
	assert.Equal(t, string(seg.TraceID), got.TraceID)
	assert.Equal(t, "checkout", got.Service)
	assert.Equal(t, int32(7), got.AppCode)
	require.Len(t, got.Spans, 1)
	assert.Equal(t, "entry", got.Spans[0].Kind)
	assert.Equal(t, "GET /checkout", got.Spans[0].OperationName)
	assert.Equal(t, int32(-1), got.Spans[0].ParentSpanID)
}

func TestReporterCompresses(t *testing.T) {
	var captured reportRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))

		gz, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(gz)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testReporterConfig()
	cfg.Compress = true
	rep := NewReporter(cfg, srv.URL, nil, nil)
	require.NoError(t, rep.Send(context.Background(), []*tracing.Segment{sampleSegment()}))

	require.Len(t, captured.Segments, 1)
	assert.Equal(t, "checkout", captured.Segments[0].Service)
}

func TestReporterCollectorRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	m := monitoring.NewMetrics(prometheus.NewRegistry())
	rep := NewReporter(testReporterConfig(), srv.URL, nil, m)

	err := rep.Send(context.Background(), []*tracing.Segment{sampleSegment()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Reports)
	assert.Equal(t, int64(1), snap.ReportErrors)
}

func TestReporterEmptyBatch(t *testing.T) {
	// An unroutable endpoint proves no request is made.
	rep := NewReporter(testReporterConfig(), "http://127.0.0.1:1", nil, nil)
	assert.NoError(t, rep.Send(context.Background(), nil))
}

func TestReporterRecordsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := monitoring.NewMetrics(prometheus.NewRegistry())
	rep := NewReporter(testReporterConfig(), srv.URL, nil, m)
	require.NoError(t, rep.Send(context.Background(), []*tracing.Segment{sampleSegment()}))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Reports)
	assert.Equal(t, int64(0), snap.ReportErrors)
}

func TestSpanPayloadCodeReplacesName(t *testing.T) {
	interned := &tracing.Span{OperationCode: 42, Kind: tracing.KindLocal}
	symbolic := &tracing.Span{OperationName: "GET /x", Kind: tracing.KindExit, Peer: "db:5432"}

	p := toSpanPayload(interned)
	assert.Equal(t, int32(42), p.OperationCode)
	assert.Empty(t, p.OperationName)

	p = toSpanPayload(symbolic)
	assert.Equal(t, int32(0), p.OperationCode)
	assert.Equal(t, "GET /x", p.OperationName)
	assert.Equal(t, "db:5432", p.Peer)
}

func TestSpanPayloadErrorAndLogs(t *testing.T) {
	span := &tracing.Span{
		OperationName: "work",
		Error:         errors.New("boom"),
		Logs: []tracing.LogEntry{
			{Timestamp: time.Now(), Message: "failing", Fields: map[string]interface{}{"attempt": 1}},
		},
	}

	p := toSpanPayload(span)
	assert.Equal(t, "boom", p.Error)
	require.Len(t, p.Logs, 1)
	assert.Equal(t, "failing", p.Logs[0].Message)
}

func TestLogReporterNeverFails(t *testing.T) {
	rep := NewLogReporter(nil)

	assert.NoError(t, rep.Send(context.Background(), nil))
	assert.NoError(t, rep.Send(context.Background(), []*tracing.Segment{nil, sampleSegment()}))
}
