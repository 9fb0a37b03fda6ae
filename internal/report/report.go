// Package report exports a completed comparison as CSV, markdown or HTML.
package report

import (
	"competitive-intel/internal/analysis"
	"competitive-intel/internal/model"
	"competitive-intel/internal/view"
)

// Report is everything known about one comparison. Insight and Simulation
// are nil when those flows have not produced a result.
type Report struct {
	Company     model.CompanyMetrics
	Competitors []model.CompetitorRecord
	Selected    int
	Insight     *model.Insight
	Simulation  *model.SimulationResult

	Dashboard view.Dashboard
	Benchmark []analysis.KPIStats
	Rankings  []analysis.RankedCompetitor
}

// New assembles a report and computes the derived tables.
func New(company model.CompanyMetrics, competitors []model.CompetitorRecord, selected int, insight *model.Insight, sim *model.SimulationResult) Report {
	return Report{
		Company:     company,
		Competitors: competitors,
		Selected:    selected,
		Insight:     insight,
		Simulation:  sim,
		Dashboard:   view.BuildDashboard(company, competitors, selected),
		Benchmark:   analysis.ComputeBenchmark(company, competitors),
		Rankings:    analysis.RankCompetitors(competitors, model.KPIRevenue),
	}
}

// SelectedName is the display name of the compared competitor, or "" if none.
func (r Report) SelectedName() string {
	if r.Selected < 0 || r.Selected >= len(r.Competitors) {
		return ""
	}
	return r.Competitors[r.Selected].DisplayName(r.Selected)
}
