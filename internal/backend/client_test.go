package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"competitive-intel/internal/model"
	"competitive-intel/internal/payload"
)

func TestMetricsPostsJSON(t *testing.T) {
	var gotPath, gotType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		blob, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(blob, &gotBody)
		_, _ = w.Write([]byte(`{"your_company":{},"competitors":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	out, err := c.Metrics(context.Background(), payload.Metrics(model.CompanyMetrics{Revenue: 1, Regions: 1}, nil))
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if gotPath != PathMetrics {
		t.Errorf("path=%s", gotPath)
	}
	if gotType != "application/json" {
		t.Errorf("content-type=%s", gotType)
	}
	if _, ok := gotBody["your_company"]; !ok {
		t.Errorf("body=%v", gotBody)
	}
	if string(out) != `{"your_company":{},"competitors":[]}` {
		t.Errorf("out=%s", out)
	}
}

func TestNon2xxIsFailureForEveryOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"insight":"still parseable"}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)
	comp := &model.CompetitorRecord{Name: "Globex"}
	insReq, _ := payload.Insight(model.CompanyMetrics{}, comp)
	simReq, _ := payload.Simulation(model.CompanyMetrics{}, comp, "grow")

	calls := []struct {
		op   Op
		call func() ([]byte, error)
		msg  string
	}{
		{OpMetrics, func() ([]byte, error) { return c.Metrics(context.Background(), payload.MetricsRequest{}) }, "Failed to fetch metrics"},
		{OpInsights, func() ([]byte, error) { return c.Insights(context.Background(), insReq) }, "Failed to fetch insight"},
		{OpSimulation, func() ([]byte, error) { return c.Simulate(context.Background(), simReq) }, "Simulation failed"},
	}
	for _, tc := range calls {
		_, err := tc.call()
		var be *Error
		if !errors.As(err, &be) {
			t.Fatalf("%s: err=%v", tc.op, err)
		}
		if be.StatusCode != http.StatusBadGateway || be.Code != "HTTP_ERROR" || be.Op != tc.op {
			t.Errorf("%s: %+v", tc.op, be)
		}
		if be.Error() != tc.msg {
			t.Errorf("%s: message=%q want=%q", tc.op, be.Error(), tc.msg)
		}
	}
}

func TestTimeoutSurfacesAsFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Simulate(ctx, payload.SimulationRequest{Scenario: "x"})
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("err=%v", err)
	}
	if be.Code != "TIMEOUT" {
		t.Fatalf("code=%s err=%v", be.Code, be.Err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", be.Err)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Metrics(context.Background(), payload.MetricsRequest{})
	var be *Error
	if !errors.As(err, &be) || be.Code != "NETWORK_ERROR" {
		t.Fatalf("err=%v", err)
	}
}
