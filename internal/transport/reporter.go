package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"

	"github.com/ZHKGitHub1994/skywalking/internal/config"
	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/monitoring"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

// Reporter ships segment batches to the collector over HTTP. It satisfies
// carrier.Sink; the consumer pool owns batch-level retry policy, while the
// underlying client retries transient transport failures within one Send.
type Reporter struct {
	client   *retryablehttp.Client
	endpoint string
	compress bool
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewReporter creates a reporter posting to collectorURL.
func NewReporter(cfg config.ReporterConfig, collectorURL string, logger *logging.Logger, metrics *monitoring.Metrics) *Reporter {
	if logger == nil {
		logger = logging.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil // the agent's own logger covers failures

	return &Reporter{
		client:   client,
		endpoint: strings.TrimSuffix(collectorURL, "/") + "/v1/segments",
		compress: cfg.Compress,
		logger:   logger.Named("reporter"),
		metrics:  metrics,
	}
}

// Send posts a batch to the collector. An empty batch is a no-op.
func (r *Reporter) Send(ctx context.Context, batch []*tracing.Segment) error {
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()

	body, err := sonic.Marshal(toRequest(batch))
	if err != nil {
		r.record("encode_error", start, 0)
		return fmt.Errorf("failed to encode segments: %w", err)
	}

	payload := body
	if r.compress {
		if payload, err = gzipBytes(body); err != nil {
			r.record("encode_error", start, 0)
			return fmt.Errorf("failed to compress payload: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, payload)
	if err != nil {
		r.record("error", start, 0)
		return fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "swagent/1.0")
	if r.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.record("error", start, len(payload))
		return fmt.Errorf("failed to report segments: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		r.record("rejected", start, len(payload))
		return fmt.Errorf("collector rejected report: status %d", resp.StatusCode)
	}

	r.record("success", start, len(payload))
	return nil
}

func (r *Reporter) record(status string, start time.Time, payloadBytes int) {
	if r.metrics != nil {
		r.metrics.RecordReport(status, time.Since(start), payloadBytes)
	}
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
