// Package backend is the JSON-over-HTTP transport to the analysis service.
// It returns raw response bodies; decoding them is the view package's job.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"competitive-intel/internal/payload"
)

const (
	PathMetrics    = "/api/metrics"
	PathInsights   = "/api/insights"
	PathSimulation = "/api/simulation"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Op names one of the backend calls.
type Op string

const (
	OpMetrics    Op = "metrics"
	OpInsights   Op = "insights"
	OpSimulation Op = "simulation"
)

// FailureMessage is the single human-readable message shown per flow.
func (o Op) FailureMessage() string {
	switch o {
	case OpMetrics:
		return "Failed to fetch metrics"
	case OpInsights:
		return "Failed to fetch insight"
	case OpSimulation:
		return "Simulation failed"
	default:
		return "Request failed"
	}
}

// Error is a transport failure: the request could not be sent, timed out,
// or the backend answered with a non-2xx status.
type Error struct {
	Op         Op
	StatusCode int
	Code       string
	Message    string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Client calls the analysis backend.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// NewClient creates a backend client. If baseURL is empty, defaults to
// "http://127.0.0.1:8000". timeout bounds each HTTP round trip; per-flow
// deadlines are applied through the request context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Metrics posts the company and dataset and returns the raw response.
func (c *Client) Metrics(ctx context.Context, req payload.MetricsRequest) ([]byte, error) {
	return c.post(ctx, OpMetrics, PathMetrics, req)
}

// Insights requests an AI insight for one competitor.
func (c *Client) Insights(ctx context.Context, req payload.InsightRequest) ([]byte, error) {
	return c.post(ctx, OpInsights, PathInsights, req)
}

// Simulate runs a what-if scenario.
func (c *Client) Simulate(ctx context.Context, req payload.SimulationRequest) ([]byte, error) {
	return c.post(ctx, OpSimulation, PathSimulation, req)
}

func (c *Client) post(ctx context.Context, op Op, path string, body any) ([]byte, error) {
	blob, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Op: op, Code: "ENCODE_ERROR", Message: op.FailureMessage(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(blob))
	if err != nil {
		return nil, &Error{Op: op, Code: "INVALID_REQUEST", Message: op.FailureMessage(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Printf("[Backend] Request: POST %s (op=%s, bytes=%d)", path, op, len(blob))
	start := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.Printf("[Backend] Request failed: %v (op=%s, duration: %v)", err, op, duration)
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Printf("[Backend] Error reading response: %v (op=%s)", err, op)
		return nil, transportError(op, err)
	}
	log.Printf("[Backend] Response: %d (op=%s, duration: %v, bytes=%d)", resp.StatusCode, op, duration, len(out))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Code:       "HTTP_ERROR",
			Message:    op.FailureMessage(),
			Body:       truncate(string(out), 512),
		}
	}
	return out, nil
}

func transportError(op Op, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &Error{Op: op, Code: "TIMEOUT", Message: fmt.Sprintf("%s: request timed out", op.FailureMessage()), Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Op: op, Code: "CANCELED", Message: fmt.Sprintf("%s: request canceled", op.FailureMessage()), Err: err}
	}
	return &Error{Op: op, Code: "NETWORK_ERROR", Message: op.FailureMessage(), Err: err}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
