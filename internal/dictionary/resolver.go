package dictionary

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// Resolver exchanges pending dictionary names for assigned codes. The agent
// never invents codes for collector-backed deployments; it asks and waits.
type Resolver interface {
	ResolveApplications(ctx context.Context, names []string) (map[string]int32, error)
	ResolveOperations(ctx context.Context, keys []OperationKey) (map[OperationKey]int32, error)
}

// HTTPResolver registers names against a collector over HTTP.
type HTTPResolver struct {
	client *resty.Client
}

// NewHTTPResolver creates a resolver for the collector at baseURL.
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("User-Agent", "swagent/1.0")

	return &HTTPResolver{client: client}
}

type appRegisterRequest struct {
	Applications []string `json:"applications"`
}

type appAssignment struct {
	Name string `json:"name"`
	Code int32  `json:"code"`
}

type appRegisterReply struct {
	Assignments []appAssignment `json:"assignments"`
}

type opEntry struct {
	AppCode int32  `json:"appCode"`
	Name    string `json:"name"`
}

type opRegisterRequest struct {
	Operations []opEntry `json:"operations"`
}

type opAssignment struct {
	AppCode int32  `json:"appCode"`
	Name    string `json:"name"`
	Code    int32  `json:"code"`
}

type opRegisterReply struct {
	Assignments []opAssignment `json:"assignments"`
}

// ResolveApplications posts pending application names and returns whatever
// codes the collector has assigned so far. Missing names stay pending.
func (h *HTTPResolver) ResolveApplications(ctx context.Context, names []string) (map[string]int32, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var reply appRegisterReply
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(appRegisterRequest{Applications: names}).
		SetResult(&reply).
		Post("/v1/register/applications")
	if err != nil {
		return nil, fmt.Errorf("register applications: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("register applications: collector returned %s", resp.Status())
	}

	out := make(map[string]int32, len(reply.Assignments))
	for _, a := range reply.Assignments {
		if a.Code != NullCode {
			out[a.Name] = a.Code
		}
	}
	return out, nil
}

// ResolveOperations posts pending operation names and returns assigned codes.
func (h *HTTPResolver) ResolveOperations(ctx context.Context, keys []OperationKey) (map[OperationKey]int32, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	entries := make([]opEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, opEntry{AppCode: k.AppCode, Name: k.Name})
	}

	var reply opRegisterReply
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(opRegisterRequest{Operations: entries}).
		SetResult(&reply).
		Post("/v1/register/operations")
	if err != nil {
		return nil, fmt.Errorf("register operations: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("register operations: collector returned %s", resp.Status())
	}

	out := make(map[OperationKey]int32, len(reply.Assignments))
	for _, a := range reply.Assignments {
		if a.Code != NullCode {
			out[OperationKey{AppCode: a.AppCode, Name: a.Name}] = a.Code
		}
	}
	return out, nil
}

// LocalResolver assigns codes from a process-local counter. It stands in
// for a collector when the agent runs standalone, so the full intern and
// resolve pipeline stays live without a network dependency.
type LocalResolver struct {
	next atomic.Int32
}

// NewLocalResolver creates a resolver whose first assigned code is 1.
func NewLocalResolver() *LocalResolver {
	return &LocalResolver{}
}

// ResolveApplications assigns sequential codes to every requested name.
func (l *LocalResolver) ResolveApplications(_ context.Context, names []string) (map[string]int32, error) {
	out := make(map[string]int32, len(names))
	for _, n := range names {
		out[n] = l.next.Add(1)
	}
	return out, nil
}

// ResolveOperations assigns sequential codes to every requested key.
func (l *LocalResolver) ResolveOperations(_ context.Context, keys []OperationKey) (map[OperationKey]int32, error) {
	out := make(map[OperationKey]int32, len(keys))
	for _, k := range keys {
		out[k] = l.next.Add(1)
	}
	return out, nil
}
