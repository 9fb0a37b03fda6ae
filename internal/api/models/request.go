package models

// FormUpdateRequest sets raw form fields by name, e.g. {"revenue": "140"}.
// Values are kept as typed; validation happens on submit.
type FormUpdateRequest map[string]string

// SelectCompetitorRequest represents the body of PUT /sessions/:id/competitor
type SelectCompetitorRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SimulationRequest represents the body of POST /sessions/:id/simulation
type SimulationRequest struct {
	Scenario string `json:"scenario"`
}

// ReportQuery selects the export format for GET /sessions/:id/report
type ReportQuery struct {
	Format string `form:"format,omitempty"` // "csv", "markdown", "html"; default: "markdown"
}
