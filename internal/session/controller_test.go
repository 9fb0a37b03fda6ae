package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"competitive-intel/internal/backend"
	"competitive-intel/internal/form"
)

type fakeBackend struct {
	*httptest.Server
	calls   atomic.Int32
	release chan struct{}
}

// newFakeBackend serves the three endpoints. Insight requests for Acme
// block until release is closed or the client gives up.
func newFakeBackend(t *testing.T, metrics string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{release: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc(backend.PathMetrics, func(w http.ResponseWriter, r *http.Request) {
		fb.calls.Add(1)
		var req struct {
			Dataset         string `json:"dataset"`
			DatasetFilename string `json:"dataset_filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Dataset == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(metrics))
	})
	mux.HandleFunc(backend.PathInsights, func(w http.ResponseWriter, r *http.Request) {
		fb.calls.Add(1)
		var req struct {
			Competitor struct {
				Name    string `json:"name"`
				Company string `json:"Company"`
			} `json:"competitor"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		io.Copy(io.Discard, r.Body)
		name := req.Competitor.Name + req.Competitor.Company
		if name == "Acme" {
			select {
			case <-fb.release:
			case <-r.Context().Done():
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"insight":         "about " + name,
			"recommendations": []string{"Invest in retention"},
		})
	})
	mux.HandleFunc(backend.PathSimulation, func(w http.ResponseWriter, r *http.Request) {
		fb.calls.Add(1)
		w.Write([]byte(`{"commentary":"R&D spend increased by 10% as per scenario.","your_company":{"revenue":129.14,"r_d_spend":22.55}}`))
	})
	fb.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		select {
		case <-fb.release:
		default:
			close(fb.release)
		}
		fb.Close()
	})
	return fb
}

func newTestController(t *testing.T, fb *fakeBackend) *Controller {
	t.Helper()
	c := NewController(backend.NewClient(fb.URL, 5*time.Second), form.Defaults(), DefaultTimeouts)
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, c *Controller, what string, pred func(State) bool) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := c.WaitFor(ctx, pred)
	if err != nil {
		t.Fatalf("waiting for %s: %v (phase %s)", what, err, s.Phase)
	}
	return s
}

func TestControllerNoDatasetNoRequest(t *testing.T) {
	fb := newFakeBackend(t, metricsBody)
	c := newTestController(t, fb)

	s := c.Dispatch(Submit{})
	if s.Phase != PhaseCollecting || !s.FormErrors.Has(form.FieldDataset) {
		t.Fatalf("phase = %s errors = %v", s.Phase, s.FormErrors)
	}
	if got := fb.calls.Load(); got != 0 {
		t.Errorf("backend calls = %d, want 0", got)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d, want 0", c.Pending())
	}
}

func TestControllerDashboardFlow(t *testing.T) {
	fb := newFakeBackend(t, metricsBody)
	close(fb.release)
	c := newTestController(t, fb)

	c.Dispatch(DatasetSelected{Source: csvSource()})
	s := waitFor(t, c, "preview", func(s State) bool { return !s.Dataset.PreviewLoading })
	if len(s.Dataset.Preview) != 2 || s.Dataset.Preview[0] != "name,revenue" {
		t.Errorf("preview = %q", s.Dataset.Preview)
	}

	c.Dispatch(Submit{})
	s = waitFor(t, c, "insight", func(s State) bool { return s.Insight.Status == FlowReady })
	if s.Phase != PhaseDashboard {
		t.Fatalf("phase = %s", s.Phase)
	}
	if s.Insight.Result.Text != "about Acme" {
		t.Errorf("insight = %q", s.Insight.Result.Text)
	}

	c.Dispatch(Simulate{Scenario: "Increase R&D by 10%"})
	s = waitFor(t, c, "simulation", func(s State) bool { return s.Simulation.Status == FlowReady })
	scr := Render(s, 0)
	if scr.Simulation.View == nil || len(scr.Simulation.View.Rows) == 0 {
		t.Fatalf("simulation view = %+v", scr.Simulation)
	}
	if scr.Insight.View == nil || !scr.Insight.View.HasRecommendations {
		t.Errorf("insight view = %+v", scr.Insight)
	}
	if n := c.inflightCount(); n != 0 {
		t.Errorf("%d finished request(s) still hold a context", n)
	}
}

func TestControllerInsightTimeout(t *testing.T) {
	fb := newFakeBackend(t, metricsBody)
	timeouts := DefaultTimeouts
	timeouts.Insight = 200 * time.Millisecond
	c := NewController(backend.NewClient(fb.URL, 5*time.Second), form.Defaults(), timeouts)
	t.Cleanup(c.Close)

	c.Dispatch(DatasetSelected{Source: csvSource()})
	c.Dispatch(Submit{})
	// The Acme insight never answers; the flow must fail rather than spin.
	s := waitFor(t, c, "insight failure", func(s State) bool { return s.Insight.Status == FlowFailed })
	if s.Insight.Error != "Failed to fetch insight: request timed out" {
		t.Errorf("insight error = %q", s.Insight.Error)
	}
	if s.Phase != PhaseDashboard {
		t.Errorf("phase = %s, want DASHBOARD", s.Phase)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d, want 0", c.Pending())
	}
}

func TestControllerStaleInsightIgnored(t *testing.T) {
	fb := newFakeBackend(t, metricsBody)
	c := newTestController(t, fb)

	c.Dispatch(DatasetSelected{Source: csvSource()})
	c.Dispatch(Submit{})
	waitFor(t, c, "dashboard", func(s State) bool { return s.Phase == PhaseDashboard })

	// The Acme insight is still blocked; switching to Globex supersedes it.
	c.Dispatch(SelectCompetitor{Index: 1})
	s := waitFor(t, c, "insight", func(s State) bool { return s.Insight.Status == FlowReady })
	if s.Insight.Result.Text != "about Globex" {
		t.Fatalf("insight = %q, want about Globex", s.Insight.Result.Text)
	}

	close(fb.release)
	c.Dispatch(RefreshInsight{})
	// Refresh for Globex does not block either way.
	s = waitFor(t, c, "refresh", func(s State) bool { return s.Insight.Status == FlowReady })
	if s.Insight.Result.Text != "about Globex" || s.Selected != 1 {
		t.Errorf("insight = %q selected = %d", s.Insight.Result.Text, s.Selected)
	}
}

func TestControllerEmptyCompetitors(t *testing.T) {
	fb := newFakeBackend(t, `{"your_company":{"revenue":129.14},"competitors":[]}`)
	c := newTestController(t, fb)

	c.Dispatch(DatasetSelected{Source: csvSource()})
	c.Dispatch(Submit{})
	s := waitFor(t, c, "submit error", func(s State) bool { return s.SubmitError != "" })
	if s.Phase != PhaseCollecting {
		t.Errorf("phase = %s, want COLLECTING", s.Phase)
	}
	if s.SubmitError != "No competitors were found in the uploaded dataset." {
		t.Errorf("submit error = %q", s.SubmitError)
	}
}

func TestControllerBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewController(backend.NewClient(srv.URL, 5*time.Second), form.Defaults(), DefaultTimeouts)
	defer c.Close()

	c.Dispatch(DatasetSelected{Source: csvSource()})
	c.Dispatch(Submit{})
	s := waitFor(t, c, "submit error", func(s State) bool { return s.SubmitError != "" })
	if s.SubmitError != "Failed to fetch metrics" {
		t.Errorf("submit error = %q", s.SubmitError)
	}
	if s.Form != form.Defaults() {
		t.Errorf("form changed: %+v", s.Form)
	}
}

func TestControllerCloseIgnoresEvents(t *testing.T) {
	fb := newFakeBackend(t, metricsBody)
	c := newTestController(t, fb)
	c.Close()
	s := c.Dispatch(DatasetSelected{Source: csvSource()})
	if s.Dataset != nil {
		t.Errorf("event applied after Close")
	}
}
