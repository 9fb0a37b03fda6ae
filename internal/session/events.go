package session

import (
	"competitive-intel/internal/dataset"
	"competitive-intel/internal/model"
	"competitive-intel/internal/payload"
)

// Event is anything that can change the screen state: user actions and
// completions of effects.
type Event interface{ isEvent() }

type (
	// FieldChanged edits one raw form field.
	FieldChanged struct{ Name, Value string }
	// DatasetSelected replaces the selected competitor file.
	DatasetSelected struct{ Source dataset.Source }
	// DatasetPreviewed completes the preview read for selection Seq.
	DatasetPreviewed struct {
		Seq   uint64
		Lines []string
		Err   error
	}
	// Submit validates the form and, if clean, sends the metrics request.
	Submit struct{}
	// MetricsReceived carries the raw metrics response for request Seq.
	MetricsReceived struct {
		Seq uint64
		Raw []byte
	}
	MetricsFailed struct {
		Seq uint64
		Err error
	}
	// SelectCompetitor changes the compared competitor.
	SelectCompetitor struct{ Index int }
	// RefreshInsight re-requests the insight for the current selection.
	RefreshInsight  struct{}
	InsightReceived struct {
		Seq uint64
		Raw []byte
	}
	InsightFailed struct {
		Seq uint64
		Err error
	}
	// Simulate runs the given what-if scenario.
	Simulate           struct{ Scenario string }
	SimulationReceived struct {
		Seq uint64
		Raw []byte
	}
	SimulationFailed struct {
		Seq uint64
		Err error
	}
	// Reset returns to the initial state.
	Reset struct{}
)

func (FieldChanged) isEvent()       {}
func (DatasetSelected) isEvent()    {}
func (DatasetPreviewed) isEvent()   {}
func (Submit) isEvent()             {}
func (MetricsReceived) isEvent()    {}
func (MetricsFailed) isEvent()      {}
func (SelectCompetitor) isEvent()   {}
func (RefreshInsight) isEvent()     {}
func (InsightReceived) isEvent()    {}
func (InsightFailed) isEvent()      {}
func (Simulate) isEvent()           {}
func (SimulationReceived) isEvent() {}
func (SimulationFailed) isEvent()   {}
func (Reset) isEvent()              {}

// Effect is work the reducer asks the Controller to perform.
type Effect interface{ isEffect() }

// Flow identifies the request flows that can be cancelled.
type Flow string

const (
	FlowMetrics    Flow = "metrics"
	FlowInsight    Flow = "insight"
	FlowSimulation Flow = "simulation"
)

type (
	// LoadPreview reads the first lines of a newly selected file.
	LoadPreview struct {
		Seq    uint64
		Source dataset.Source
	}
	// FetchMetrics reads the dataset in full and posts it with the company.
	FetchMetrics struct {
		Seq     uint64
		Company model.CompanyMetrics
		Source  dataset.Source
	}
	// FetchInsight supersedes any insight request still in flight.
	FetchInsight struct {
		Seq     uint64
		Request payload.InsightRequest
	}
	// RunSimulation supersedes any simulation still in flight.
	RunSimulation struct {
		Seq     uint64
		Request payload.SimulationRequest
	}
	// Cancel abandons in-flight requests of the listed flows.
	Cancel struct{ Flows []Flow }
)

func (LoadPreview) isEffect()   {}
func (FetchMetrics) isEffect()  {}
func (FetchInsight) isEffect()  {}
func (RunSimulation) isEffect() {}
func (Cancel) isEffect()        {}
