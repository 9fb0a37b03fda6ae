package model

// Insight is the backend's analysis of the company against one competitor.
// Every part may be missing.
type Insight struct {
	Text            string
	Recommendations []string
	Weaknesses      []string
}

// SimulationResult is the projected outcome of a what-if scenario.
type SimulationResult struct {
	Commentary  string
	YourCompany *PartialMetrics
}
