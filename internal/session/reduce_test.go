package session

import (
	"errors"
	"testing"

	"competitive-intel/internal/backend"
	"competitive-intel/internal/dataset"
	"competitive-intel/internal/form"
	"competitive-intel/internal/view"
)

const metricsBody = `{"your_company":{"revenue":129.14,"nps":60,"r_d_spend":20.5,"regions":17,"retention_rate":85},
"competitors":[{"name":"Acme","revenue":150,"nps":40},{"Company":"Globex","revenue":90}]}`

func csvSource() dataset.Source {
	return dataset.BytesSource{Filename: "competitors.csv", Data: []byte("name,revenue\nAcme,150\n")}
}

// dashboardState drives a fresh state to the dashboard with two competitors.
func dashboardState(t *testing.T) State {
	t.Helper()
	s := Initial(form.Defaults())
	s, _ = Reduce(s, DatasetSelected{Source: csvSource()})
	s, effects := Reduce(s, Submit{})
	fm, ok := only[FetchMetrics](effects)
	if !ok {
		t.Fatalf("Submit effects = %#v, want one FetchMetrics", effects)
	}
	s, _ = Reduce(s, MetricsReceived{Seq: fm.Seq, Raw: []byte(metricsBody)})
	if s.Phase != PhaseDashboard {
		t.Fatalf("phase = %s, want DASHBOARD", s.Phase)
	}
	return s
}

func only[T Effect](effects []Effect) (T, bool) {
	var zero T
	var found []T
	for _, e := range effects {
		if v, ok := e.(T); ok {
			found = append(found, v)
		}
	}
	if len(found) != 1 {
		return zero, false
	}
	return found[0], true
}

func TestSubmitRequiresDataset(t *testing.T) {
	s := Initial(form.Defaults())
	next, effects := Reduce(s, Submit{})
	if next.Phase != PhaseCollecting {
		t.Errorf("phase = %s, want COLLECTING", next.Phase)
	}
	if len(effects) != 0 {
		t.Errorf("effects = %#v, want none", effects)
	}
	if !next.FormErrors.Has(form.FieldDataset) {
		t.Errorf("missing dataset error: %v", next.FormErrors)
	}
}

func TestSubmitReportsAllFieldErrors(t *testing.T) {
	s := Initial(form.Defaults())
	s, _ = Reduce(s, DatasetSelected{Source: csvSource()})
	s, _ = Reduce(s, FieldChanged{Name: form.FieldRevenue, Value: "0"})
	s, _ = Reduce(s, FieldChanged{Name: form.FieldNPS, Value: "150"})
	s, effects := Reduce(s, Submit{})
	if s.Phase != PhaseCollecting || len(effects) != 0 {
		t.Fatalf("phase = %s effects = %d, want COLLECTING with no effects", s.Phase, len(effects))
	}
	for _, f := range []string{form.FieldRevenue, form.FieldNPS} {
		if !s.FormErrors.Has(f) {
			t.Errorf("missing error for %s", f)
		}
	}
	if s.FormErrors.Has(form.FieldDataset) {
		t.Errorf("unexpected dataset error")
	}
}

func TestUnsupportedDatasetRejected(t *testing.T) {
	s := Initial(form.Defaults())
	s, effects := Reduce(s, DatasetSelected{Source: dataset.BytesSource{Filename: "notes.txt"}})
	if s.Dataset != nil {
		t.Errorf("dataset kept for unsupported file")
	}
	if len(effects) != 0 {
		t.Errorf("effects = %#v, want none", effects)
	}
	if !s.FormErrors.Has(form.FieldDataset) {
		t.Errorf("missing dataset error")
	}

	// A valid selection clears the error.
	s, effects = Reduce(s, DatasetSelected{Source: csvSource()})
	if s.FormErrors.Has(form.FieldDataset) {
		t.Errorf("dataset error not cleared")
	}
	if _, ok := only[LoadPreview](effects); !ok {
		t.Errorf("effects = %#v, want LoadPreview", effects)
	}
}

func TestStalePreviewIgnored(t *testing.T) {
	s := Initial(form.Defaults())
	s, first := Reduce(s, DatasetSelected{Source: csvSource()})
	s, second := Reduce(s, DatasetSelected{Source: dataset.BytesSource{Filename: "b.xlsx"}})
	lpOld, _ := only[LoadPreview](first)
	lpNew, _ := only[LoadPreview](second)

	s, _ = Reduce(s, DatasetPreviewed{Seq: lpOld.Seq, Lines: []string{"stale"}})
	if !s.Dataset.PreviewLoading || len(s.Dataset.Preview) != 0 {
		t.Fatalf("stale preview applied: %+v", s.Dataset)
	}
	s, _ = Reduce(s, DatasetPreviewed{Seq: lpNew.Seq, Lines: []string{"Excel file uploaded: b.xlsx"}})
	if s.Dataset.PreviewLoading || s.Dataset.Preview[0] != "Excel file uploaded: b.xlsx" {
		t.Errorf("preview = %+v", s.Dataset)
	}
}

func TestDashboardStartsInsight(t *testing.T) {
	s := Initial(form.Defaults())
	s, _ = Reduce(s, DatasetSelected{Source: csvSource()})
	s, effects := Reduce(s, Submit{})
	if s.Phase != PhaseSubmitting || !s.MetricsLoading() {
		t.Fatalf("phase = %s, want SUBMITTING", s.Phase)
	}
	fm, _ := only[FetchMetrics](effects)
	if fm.Company.Revenue != 129.14 || fm.Company.NPS != 60 {
		t.Errorf("submitted company = %+v", fm.Company)
	}

	s, effects = Reduce(s, MetricsReceived{Seq: fm.Seq, Raw: []byte(metricsBody)})
	if s.Phase != PhaseDashboard {
		t.Fatalf("phase = %s, want DASHBOARD", s.Phase)
	}
	if len(s.Competitors) != 2 || s.Selected != 0 {
		t.Fatalf("competitors = %d selected = %d", len(s.Competitors), s.Selected)
	}
	fi, ok := only[FetchInsight](effects)
	if !ok {
		t.Fatalf("effects = %#v, want FetchInsight", effects)
	}
	if fi.Request.Competitor.Name != "Acme" {
		t.Errorf("insight competitor = %q, want Acme", fi.Request.Competitor.Name)
	}
	if s.Insight.Status != FlowFetching || !s.InsightLoading() {
		t.Errorf("insight status = %s", s.Insight.Status)
	}
}

func TestEmptyCompetitorsReturnToForm(t *testing.T) {
	s := Initial(form.Defaults())
	s, _ = Reduce(s, DatasetSelected{Source: csvSource()})
	s, effects := Reduce(s, Submit{})
	fm, _ := only[FetchMetrics](effects)

	s, effects = Reduce(s, MetricsReceived{Seq: fm.Seq, Raw: []byte(`{"competitors":[]}`)})
	if s.Phase != PhaseCollecting {
		t.Fatalf("phase = %s, want COLLECTING", s.Phase)
	}
	if s.SubmitError != msgNoCompetitors {
		t.Errorf("submit error = %q", s.SubmitError)
	}
	if len(effects) != 0 {
		t.Errorf("effects = %#v, want none", effects)
	}
	if s.Form != form.Defaults() {
		t.Errorf("form not preserved: %+v", s.Form)
	}
}

func TestMetricsFailureKeepsForm(t *testing.T) {
	s := Initial(form.Defaults())
	s, _ = Reduce(s, DatasetSelected{Source: csvSource()})
	s, _ = Reduce(s, FieldChanged{Name: form.FieldRevenue, Value: "200"})
	s, effects := Reduce(s, Submit{})
	fm, _ := only[FetchMetrics](effects)

	err := &backend.Error{Op: backend.OpMetrics, StatusCode: 500, Code: "HTTP_ERROR", Message: "Failed to fetch metrics"}
	s, _ = Reduce(s, MetricsFailed{Seq: fm.Seq, Err: err})
	if s.Phase != PhaseCollecting {
		t.Fatalf("phase = %s", s.Phase)
	}
	if s.SubmitError != "Failed to fetch metrics" {
		t.Errorf("submit error = %q", s.SubmitError)
	}
	if s.Form.Revenue != "200" || s.Dataset == nil {
		t.Errorf("form or dataset lost: %+v", s)
	}

	// Resubmitting clears the old error.
	s, _ = Reduce(s, Submit{})
	if s.Phase != PhaseSubmitting || s.SubmitError != "" {
		t.Errorf("resubmit: phase = %s error = %q", s.Phase, s.SubmitError)
	}
}

func TestMalformedMetrics(t *testing.T) {
	s := Initial(form.Defaults())
	s, _ = Reduce(s, DatasetSelected{Source: csvSource()})
	s, effects := Reduce(s, Submit{})
	fm, _ := only[FetchMetrics](effects)
	s, _ = Reduce(s, MetricsReceived{Seq: fm.Seq, Raw: []byte("<html>")})
	if s.Phase != PhaseCollecting {
		t.Fatalf("phase = %s", s.Phase)
	}
	if s.SubmitError != "Failed to fetch metrics: malformed response" {
		t.Errorf("submit error = %q", s.SubmitError)
	}
}

func TestFieldChangesIgnoredOutsideForm(t *testing.T) {
	s := dashboardState(t)
	next, _ := Reduce(s, FieldChanged{Name: form.FieldRevenue, Value: "1"})
	if next.Form.Revenue != s.Form.Revenue {
		t.Errorf("form changed on dashboard")
	}
	next, effects := Reduce(s, Submit{})
	if next.Phase != PhaseDashboard || len(effects) != 0 {
		t.Errorf("Submit on dashboard: phase = %s effects = %d", next.Phase, len(effects))
	}
}

func TestStaleInsightIgnored(t *testing.T) {
	s := dashboardState(t)
	firstSeq := s.Insight.Seq

	s, effects := Reduce(s, SelectCompetitor{Index: 1})
	fi, ok := only[FetchInsight](effects)
	if !ok {
		t.Fatalf("effects = %#v, want FetchInsight", effects)
	}
	if fi.Request.Competitor.Name != "Globex" {
		t.Errorf("competitor = %q, want Globex", fi.Request.Competitor.Name)
	}

	s, _ = Reduce(s, InsightReceived{Seq: firstSeq, Raw: []byte(`{"insight":"about Acme"}`)})
	if s.Insight.Status != FlowFetching || s.Insight.Result != nil {
		t.Fatalf("stale insight applied: %+v", s.Insight)
	}
	s, _ = Reduce(s, InsightReceived{Seq: fi.Seq, Raw: []byte(`{"insight":"about Globex","recommendations":["Expand"]}`)})
	if s.Insight.Status != FlowReady || s.Insight.Result.Text != "about Globex" {
		t.Errorf("insight = %+v", s.Insight)
	}
}

func TestInsightFailure(t *testing.T) {
	s := dashboardState(t)
	err := &backend.Error{Op: backend.OpInsights, Code: "TIMEOUT", Message: "Failed to fetch insight: request timed out"}
	s, _ = Reduce(s, InsightFailed{Seq: s.Insight.Seq, Err: err})
	if s.Insight.Status != FlowFailed || s.Insight.Error != err.Message {
		t.Errorf("insight = %+v", s.Insight)
	}

	s, effects := Reduce(s, RefreshInsight{})
	if _, ok := only[FetchInsight](effects); !ok || s.Insight.Status != FlowFetching {
		t.Errorf("refresh: status = %s effects = %#v", s.Insight.Status, effects)
	}
}

func TestSelectSameCompetitorIsNoop(t *testing.T) {
	s := dashboardState(t)
	next, effects := Reduce(s, SelectCompetitor{Index: 0})
	if len(effects) != 0 || next.Insight.Seq != s.Insight.Seq {
		t.Errorf("re-selecting the same competitor started a fetch")
	}
	next, effects = Reduce(s, SelectCompetitor{Index: 5})
	if len(effects) != 0 || next.Selected != 0 {
		t.Errorf("out-of-range selection applied")
	}
}

func TestSimulation(t *testing.T) {
	s := dashboardState(t)

	s, effects := Reduce(s, Simulate{Scenario: "   "})
	if len(effects) != 0 || s.Simulation.Status != FlowIdle {
		t.Fatalf("blank scenario started a run")
	}
	if s.Simulation.Error != MsgScenarioRequired {
		t.Errorf("error = %q", s.Simulation.Error)
	}

	s, effects = Reduce(s, Simulate{Scenario: "Increase R&D by 10%"})
	rs, ok := only[RunSimulation](effects)
	if !ok || !s.SimulationLoading() {
		t.Fatalf("effects = %#v status = %s", effects, s.Simulation.Status)
	}
	if rs.Request.Scenario != "Increase R&D by 10%" {
		t.Errorf("scenario = %q", rs.Request.Scenario)
	}
	// The insight flow is independent.
	if !s.InsightLoading() {
		t.Errorf("insight loading flag cleared by simulation")
	}

	s, _ = Reduce(s, SimulationReceived{Seq: rs.Seq, Raw: []byte(`{"commentary":"R&D up","your_company":{"r_d_spend":22.55}}`)})
	if s.Simulation.Status != FlowReady || *s.Simulation.Result.YourCompany.RDSpend != 22.55 {
		t.Errorf("simulation = %+v", s.Simulation)
	}
	if s.Simulation.Result.YourCompany.Revenue != nil {
		t.Errorf("missing revenue should stay nil")
	}
}

func TestBlankScenarioWhileRunning(t *testing.T) {
	s := dashboardState(t)
	s, effects := Reduce(s, Simulate{Scenario: "Increase R&D by 10%"})
	rs, ok := only[RunSimulation](effects)
	if !ok {
		t.Fatalf("effects = %#v, want RunSimulation", effects)
	}

	s, effects = Reduce(s, Simulate{Scenario: "   "})
	if len(effects) != 0 {
		t.Errorf("blank scenario produced effects %#v", effects)
	}
	if s.Simulation.Status != FlowRunning || s.Simulation.Seq != rs.Seq {
		t.Errorf("running simulation disturbed: %+v", s.Simulation)
	}
	if s.Simulation.Scenario != "Increase R&D by 10%" {
		t.Errorf("scenario = %q, want the running one", s.Simulation.Scenario)
	}
	if s.Simulation.Error != MsgScenarioRequired {
		t.Errorf("error = %q", s.Simulation.Error)
	}

	s, _ = Reduce(s, SimulationReceived{Seq: rs.Seq, Raw: []byte(`{"commentary":"R&D up"}`)})
	if s.Simulation.Status != FlowReady || s.Simulation.Result == nil {
		t.Fatalf("simulation = %+v, want READY", s.Simulation)
	}
	if s.Simulation.Error != "" {
		t.Errorf("stale error kept next to a result: %q", s.Simulation.Error)
	}
	if s.Simulation.Scenario != "Increase R&D by 10%" {
		t.Errorf("result labelled with scenario %q", s.Simulation.Scenario)
	}
}

func TestSelectionClearsSimulation(t *testing.T) {
	s := dashboardState(t)
	s, effects := Reduce(s, Simulate{Scenario: "Increase R&D by 10%"})
	rs, _ := only[RunSimulation](effects)

	s, effects = Reduce(s, SelectCompetitor{Index: 1})
	c, ok := only[Cancel](effects)
	if !ok || len(c.Flows) != 1 || c.Flows[0] != FlowSimulation {
		t.Errorf("effects = %#v, want simulation cancel", effects)
	}
	if s.Simulation.Status != FlowIdle || s.Simulation.Result != nil {
		t.Errorf("simulation not cleared: %+v", s.Simulation)
	}
	if s.Simulation.Scenario != "Increase R&D by 10%" {
		t.Errorf("scenario text lost")
	}

	s, _ = Reduce(s, SimulationReceived{Seq: rs.Seq, Raw: []byte(`{"commentary":"late"}`)})
	if s.Simulation.Status != FlowIdle || s.Simulation.Result != nil {
		t.Errorf("abandoned simulation applied: %+v", s.Simulation)
	}
}

func TestResetCancelsEverything(t *testing.T) {
	s := dashboardState(t)
	oldSeq := s.Insight.Seq
	s, effects := Reduce(s, Reset{})
	c, ok := only[Cancel](effects)
	if !ok || len(c.Flows) != 3 {
		t.Errorf("effects = %#v, want cancel of all flows", effects)
	}
	if s.Phase != PhaseCollecting || s.Dataset != nil || len(s.Competitors) != 0 {
		t.Errorf("state not reset: %+v", s)
	}
	if s.Form != form.Defaults() {
		t.Errorf("form = %+v, want defaults", s.Form)
	}

	// Results of requests issued before the reset are ignored.
	s, _ = Reduce(s, InsightReceived{Seq: oldSeq, Raw: []byte(`"x"`)})
	if s.Insight.Status != FlowIdle {
		t.Errorf("pre-reset insight applied")
	}
	s, _ = Reduce(s, DatasetSelected{Source: csvSource()})
	if s.Dataset.Seq <= oldSeq {
		t.Errorf("sequence numbers reused after reset")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoCompetitors, msgNoCompetitors},
		{&backend.Error{Message: "Simulation failed"}, "Simulation failed"},
		{view.ErrMalformed, "malformed response"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := message(tt.err); got != tt.want {
			t.Errorf("message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
