package session

import (
	"competitive-intel/internal/form"
	"competitive-intel/internal/model"
	"competitive-intel/internal/view"
)

// Screen is the JSON view-model of one session, as served by the dashboard
// API. Everything a client needs to draw the page is here; it holds no
// references into State.
type Screen struct {
	Phase       Phase             `json:"phase"`
	Form        form.Fields       `json:"form"`
	FormErrors  map[string]string `json:"form_errors"`
	SubmitError string            `json:"submit_error,omitempty"`
	Dataset     *DatasetView      `json:"dataset,omitempty"`

	Loading    Loading           `json:"loading"`
	Pending    int               `json:"pending_requests"`
	Dashboard  *view.Dashboard   `json:"dashboard,omitempty"`
	Insight    *InsightScreen    `json:"insight,omitempty"`
	Simulation *SimulationScreen `json:"simulation,omitempty"`
}

type DatasetView struct {
	Filename       string   `json:"filename"`
	Preview        []string `json:"preview"`
	PreviewLoading bool     `json:"preview_loading"`
	PreviewError   string   `json:"preview_error,omitempty"`
}

// Loading holds one flag per flow so that, for example, a running
// simulation does not grey out the insight panel.
type Loading struct {
	Metrics    bool `json:"metrics"`
	Insight    bool `json:"insight"`
	Simulation bool `json:"simulation"`
}

type InsightScreen struct {
	Status FlowStatus        `json:"status"`
	Error  string            `json:"error,omitempty"`
	View   *view.InsightView `json:"view,omitempty"`
}

type SimulationScreen struct {
	Status   FlowStatus           `json:"status"`
	Scenario string               `json:"scenario"`
	Error    string               `json:"error,omitempty"`
	View     *view.SimulationView `json:"view,omitempty"`
}

// Render builds the screen for s. pending is the number of backend
// requests in flight.
func Render(s State, pending int) Screen {
	scr := Screen{
		Phase:       s.Phase,
		Form:        s.Form,
		FormErrors:  make(map[string]string, len(s.FormErrors)),
		SubmitError: s.SubmitError,
		Pending:     pending,
		Loading: Loading{
			Metrics:    s.MetricsLoading(),
			Insight:    s.InsightLoading(),
			Simulation: s.SimulationLoading(),
		},
	}
	for k, v := range s.FormErrors {
		scr.FormErrors[k] = v
	}
	if ds := s.Dataset; ds != nil {
		scr.Dataset = &DatasetView{
			Filename:       ds.Filename,
			Preview:        append([]string{}, ds.Preview...),
			PreviewLoading: ds.PreviewLoading,
			PreviewError:   ds.PreviewError,
		}
	}
	if s.Phase != PhaseDashboard {
		return scr
	}

	d := view.BuildDashboard(s.Company, s.Competitors, s.Selected)
	scr.Dashboard = &d
	scr.Insight = renderInsight(s.Insight)
	scr.Simulation = renderSimulation(s.Simulation)
	return scr
}

func renderInsight(f InsightFlow) *InsightScreen {
	out := &InsightScreen{Status: f.Status, Error: f.Error}
	if f.Status == FlowReady {
		var ins model.Insight
		if f.Result != nil {
			ins = *f.Result
		}
		v := view.NewInsightView(ins)
		out.View = &v
	}
	return out
}

func renderSimulation(f SimulationFlow) *SimulationScreen {
	out := &SimulationScreen{Status: f.Status, Scenario: f.Scenario, Error: f.Error}
	if f.Status == FlowReady && f.Result != nil {
		v := view.NewSimulationView(*f.Result)
		out.View = &v
	}
	return out
}
