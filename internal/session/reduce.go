package session

import (
	"errors"
	"fmt"

	"competitive-intel/internal/backend"
	"competitive-intel/internal/dataset"
	"competitive-intel/internal/form"
	"competitive-intel/internal/payload"
	"competitive-intel/internal/view"
)

// ErrNoCompetitors is returned when a metrics response succeeds but lists
// no competitors; the dashboard cannot be shown without one.
var ErrNoCompetitors = errors.New("no competitors in metrics response")

// MsgScenarioRequired is the simulation error recorded for a blank scenario.
const MsgScenarioRequired = "Describe a scenario to simulate."

const (
	msgNoCompetitors   = "No competitors were found in the uploaded dataset."
	msgUnsupportedFile = "Unsupported file type. Upload a .csv, .xlsx or .xls file."
)

// Reduce computes the next state for ev. It never performs I/O; work to be
// done is returned as effects. Events that do not apply to the current
// phase, and results of superseded requests, leave the state unchanged.
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case FieldChanged:
		if s.Phase != PhaseCollecting {
			return s, nil
		}
		s.Form.Set(e.Name, e.Value)
		return s, nil

	case DatasetSelected:
		return selectDataset(s, e)

	case DatasetPreviewed:
		if s.Dataset == nil || s.Dataset.Seq != e.Seq {
			return s, nil
		}
		ds := *s.Dataset
		ds.PreviewLoading = false
		if e.Err != nil {
			ds.Preview = nil
			ds.PreviewError = e.Err.Error()
		} else {
			ds.Preview = e.Lines
		}
		s.Dataset = &ds
		return s, nil

	case Submit:
		return submit(s)

	case MetricsReceived:
		if s.Phase != PhaseSubmitting || e.Seq != s.MetricsSeq {
			return s, nil
		}
		res, err := view.NormalizeMetrics(e.Raw, s.Submitted)
		if err != nil {
			s = failSubmit(s, err)
			s.SubmitError = malformed(backend.OpMetrics)
			return s, nil
		}
		if len(res.Competitors) == 0 {
			return failSubmit(s, ErrNoCompetitors), nil
		}
		s.Phase = PhaseDashboard
		s.Company = res.YourCompany
		s.Competitors = res.Competitors
		s.Selected = 0
		s.Simulation = SimulationFlow{Status: FlowIdle}
		return startInsight(s)

	case MetricsFailed:
		if s.Phase != PhaseSubmitting || e.Seq != s.MetricsSeq {
			return s, nil
		}
		return failSubmit(s, e.Err), nil

	case SelectCompetitor:
		if s.Phase != PhaseDashboard || e.Index < 0 || e.Index >= len(s.Competitors) || e.Index == s.Selected {
			return s, nil
		}
		var effects []Effect
		if s.Simulation.Status == FlowRunning {
			effects = append(effects, Cancel{Flows: []Flow{FlowSimulation}})
		}
		s.Selected = e.Index
		s.Simulation = SimulationFlow{Status: FlowIdle, Scenario: s.Simulation.Scenario}
		var more []Effect
		s, more = startInsight(s)
		return s, append(effects, more...)

	case RefreshInsight:
		if s.Phase != PhaseDashboard {
			return s, nil
		}
		return startInsight(s)

	case InsightReceived:
		if s.Phase != PhaseDashboard || e.Seq != s.Insight.Seq {
			return s, nil
		}
		ins, err := view.NormalizeInsight(e.Raw)
		if err != nil {
			s.Insight = InsightFlow{Status: FlowFailed, Seq: e.Seq, Error: malformed(backend.OpInsights)}
			return s, nil
		}
		s.Insight = InsightFlow{Status: FlowReady, Seq: e.Seq, Result: &ins}
		return s, nil

	case InsightFailed:
		if s.Phase != PhaseDashboard || e.Seq != s.Insight.Seq {
			return s, nil
		}
		s.Insight = InsightFlow{Status: FlowFailed, Seq: e.Seq, Error: message(e.Err)}
		return s, nil

	case Simulate:
		return simulate(s, e)

	case SimulationReceived:
		if s.Phase != PhaseDashboard || e.Seq != s.Simulation.Seq || s.Simulation.Status != FlowRunning {
			return s, nil
		}
		res, err := view.NormalizeSimulation(e.Raw)
		if err != nil {
			s.Simulation.Status = FlowFailed
			s.Simulation.Error = malformed(backend.OpSimulation)
			return s, nil
		}
		s.Simulation.Status = FlowReady
		s.Simulation.Error = ""
		s.Simulation.Result = &res
		return s, nil

	case SimulationFailed:
		if s.Phase != PhaseDashboard || e.Seq != s.Simulation.Seq || s.Simulation.Status != FlowRunning {
			return s, nil
		}
		s.Simulation.Status = FlowFailed
		s.Simulation.Error = message(e.Err)
		return s, nil

	case Reset:
		next := Initial(s.defaults)
		next.seq = s.seq
		return next, []Effect{Cancel{Flows: []Flow{FlowMetrics, FlowInsight, FlowSimulation}}}
	}
	return s, nil
}

func selectDataset(s State, e DatasetSelected) (State, []Effect) {
	if s.Phase != PhaseCollecting || e.Source == nil {
		return s, nil
	}
	errs := copyErrors(s.FormErrors)
	if dataset.KindOf(e.Source.Name()) == dataset.KindUnsupported {
		s.Dataset = nil
		errs[form.FieldDataset] = msgUnsupportedFile
		s.FormErrors = errs
		return s, nil
	}
	delete(errs, form.FieldDataset)
	s.FormErrors = errs
	seq := s.nextSeq()
	s.Dataset = &DatasetState{
		Source:         e.Source,
		Filename:       e.Source.Name(),
		PreviewLoading: true,
		Seq:            seq,
	}
	return s, []Effect{LoadPreview{Seq: seq, Source: e.Source}}
}

func submit(s State) (State, []Effect) {
	if s.Phase != PhaseCollecting {
		return s, nil
	}
	s.SubmitError = ""
	company, errs := form.Validate(s.Form, s.Dataset != nil)
	s.FormErrors = errs
	if len(errs) > 0 {
		return s, nil
	}
	seq := s.nextSeq()
	s.Phase = PhaseSubmitting
	s.MetricsSeq = seq
	s.Submitted = company
	return s, []Effect{FetchMetrics{Seq: seq, Company: company, Source: s.Dataset.Source}}
}

// failSubmit returns to the form with the failure surfaced; the user can
// correct the input or simply resubmit.
func failSubmit(s State, err error) State {
	s.Phase = PhaseCollecting
	s.SubmitError = message(err)
	s.Company = s.Submitted
	s.Competitors = nil
	s.Selected = 0
	return s
}

func startInsight(s State) (State, []Effect) {
	seq := s.nextSeq()
	req, err := payload.Insight(s.Company, s.SelectedCompetitor())
	if err != nil {
		s.Insight = InsightFlow{Status: FlowFailed, Seq: seq, Error: message(err)}
		return s, nil
	}
	s.Insight = InsightFlow{Status: FlowFetching, Seq: seq}
	return s, []Effect{FetchInsight{Seq: seq, Request: req}}
}

func simulate(s State, e Simulate) (State, []Effect) {
	if s.Phase != PhaseDashboard {
		return s, nil
	}
	req, err := payload.Simulation(s.Company, s.SelectedCompetitor(), e.Scenario)
	if err != nil {
		// A rejected request leaves the scenario and any run in flight alone.
		if errors.Is(err, payload.ErrEmptyScenario) {
			s.Simulation.Error = MsgScenarioRequired
		} else {
			s.Simulation.Error = message(err)
		}
		return s, nil
	}
	seq := s.nextSeq()
	s.Simulation = SimulationFlow{Status: FlowRunning, Seq: seq, Scenario: e.Scenario}
	return s, []Effect{RunSimulation{Seq: seq, Request: req}}
}

// message turns an error into the single line shown for a flow.
func message(err error) string {
	if err == nil {
		return ""
	}
	var be *backend.Error
	switch {
	case errors.As(err, &be):
		return be.Message
	case errors.Is(err, ErrNoCompetitors):
		return msgNoCompetitors
	case errors.Is(err, view.ErrMalformed):
		return "malformed response"
	default:
		return err.Error()
	}
}

// malformed is the flow message for a response body that is not JSON.
func malformed(op backend.Op) string {
	return fmt.Sprintf("%s: malformed response", op.FailureMessage())
}

func copyErrors(in form.Errors) form.Errors {
	out := make(form.Errors, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
