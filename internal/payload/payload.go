// Package payload shapes the JSON request bodies for the backend endpoints.
// It performs no I/O.
package payload

import (
	"errors"
	"strings"

	"competitive-intel/internal/dataset"
	"competitive-intel/internal/model"
)

var (
	ErrNoCompetitor  = errors.New("no competitor selected")
	ErrEmptyScenario = errors.New("scenario is required")
)

// MetricsRequest is the body of POST /api/metrics.
type MetricsRequest struct {
	YourCompany     model.CompanyMetrics `json:"your_company"`
	Dataset         string               `json:"dataset,omitempty"`
	DatasetFilename string               `json:"dataset_filename,omitempty"`
}

// InsightRequest is the body of POST /api/insights.
type InsightRequest struct {
	YourCompany model.CompanyMetrics   `json:"your_company"`
	Competitor  model.CompetitorRecord `json:"competitor"`
}

// SimulationRequest is the body of POST /api/simulation.
type SimulationRequest struct {
	YourCompany model.CompanyMetrics   `json:"your_company"`
	Competitor  model.CompetitorRecord `json:"competitor"`
	Scenario    string                 `json:"scenario"`
}

// Metrics builds the metrics request. ds may be nil.
func Metrics(company model.CompanyMetrics, ds *dataset.Payload) MetricsRequest {
	req := MetricsRequest{YourCompany: company}
	if ds != nil {
		req.Dataset = ds.Content
		req.DatasetFilename = ds.Filename
	}
	return req
}

// Insight builds the insights request for the selected competitor.
func Insight(company model.CompanyMetrics, competitor *model.CompetitorRecord) (InsightRequest, error) {
	if competitor == nil {
		return InsightRequest{}, ErrNoCompetitor
	}
	return InsightRequest{YourCompany: company, Competitor: *competitor}, nil
}

// Simulation builds the simulation request. The scenario is sent as typed,
// but a blank one is rejected.
func Simulation(company model.CompanyMetrics, competitor *model.CompetitorRecord, scenario string) (SimulationRequest, error) {
	if competitor == nil {
		return SimulationRequest{}, ErrNoCompetitor
	}
	if strings.TrimSpace(scenario) == "" {
		return SimulationRequest{}, ErrEmptyScenario
	}
	return SimulationRequest{YourCompany: company, Competitor: *competitor, Scenario: scenario}, nil
}
