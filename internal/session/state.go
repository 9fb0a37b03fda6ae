// Package session owns the dashboard screen's lifecycle. State changes go
// through the pure Reduce function; the Controller runs the side effects it
// asks for and feeds their results back as events.
package session

import (
	"competitive-intel/internal/dataset"
	"competitive-intel/internal/form"
	"competitive-intel/internal/model"
)

// Phase is the screen-level state. Keep these values stable; they are part
// of the dashboard API.
type Phase string

const (
	PhaseCollecting Phase = "COLLECTING"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseDashboard  Phase = "DASHBOARD"
)

// FlowStatus is the state of one nested request flow on the dashboard.
type FlowStatus string

const (
	FlowIdle     FlowStatus = "IDLE"
	FlowFetching FlowStatus = "FETCHING"
	FlowRunning  FlowStatus = "RUNNING"
	FlowReady    FlowStatus = "READY"
	FlowFailed   FlowStatus = "FAILED"
)

// DatasetState is the currently selected file. A new selection replaces it
// wholesale, discarding any earlier preview.
type DatasetState struct {
	Source         dataset.Source
	Filename       string
	Preview        []string
	PreviewLoading bool
	PreviewError   string
	Seq            uint64
}

// InsightFlow tracks the AI insight for the selected competitor.
type InsightFlow struct {
	Status FlowStatus
	Seq    uint64
	Result *model.Insight
	Error  string
}

// SimulationFlow tracks the what-if simulation.
type SimulationFlow struct {
	Status   FlowStatus
	Seq      uint64
	Scenario string
	Result   *model.SimulationResult
	Error    string
}

// State is the single aggregate for one screen. Treat values as immutable:
// Reduce always returns a fresh copy and never edits shared maps or slices.
type State struct {
	Phase       Phase
	Form        form.Fields
	FormErrors  form.Errors
	SubmitError string
	Dataset     *DatasetState

	MetricsSeq  uint64
	Submitted   model.CompanyMetrics
	Company     model.CompanyMetrics
	Competitors []model.CompetitorRecord
	Selected    int

	Insight    InsightFlow
	Simulation SimulationFlow

	// seq issues request sequence numbers. It survives Reset so results of
	// requests started before a reset are recognised as stale.
	seq      uint64
	defaults form.Fields
}

// Initial returns the state of a fresh screen with the form pre-filled.
func Initial(fields form.Fields) State {
	return State{
		Phase:      PhaseCollecting,
		Form:       fields,
		FormErrors: form.Errors{},
		Insight:    InsightFlow{Status: FlowIdle},
		Simulation: SimulationFlow{Status: FlowIdle},
		defaults:   fields,
	}
}

// SelectedCompetitor returns the competitor being compared, or nil when
// there is none.
func (s State) SelectedCompetitor() *model.CompetitorRecord {
	if s.Selected < 0 || s.Selected >= len(s.Competitors) {
		return nil
	}
	c := s.Competitors[s.Selected]
	return &c
}

func (s State) MetricsLoading() bool    { return s.Phase == PhaseSubmitting }
func (s State) InsightLoading() bool    { return s.Insight.Status == FlowFetching }
func (s State) SimulationLoading() bool { return s.Simulation.Status == FlowRunning }

func (s *State) nextSeq() uint64 {
	s.seq++
	return s.seq
}
