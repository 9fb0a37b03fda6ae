package models

import (
	"time"

	"competitive-intel/internal/analysis"
	"competitive-intel/internal/session"
)

// SessionResponse represents a session and its current screen
type SessionResponse struct {
	ID        string         `json:"id"`
	ExpiresAt time.Time      `json:"expires_at"`
	Screen    session.Screen `json:"screen"`
}

// FieldInfo describes one form input
type FieldInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "float", "int", "file"
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
}

// DatasetKindInfo describes an accepted competitor dataset format
type DatasetKindInfo struct {
	Kind       string   `json:"kind"`
	Extensions []string `json:"extensions"`
	Encoding   string   `json:"encoding"` // how the file is sent to the backend
}

// BenchmarkResponse represents the KPI benchmark of the submitted company
type BenchmarkResponse struct {
	KPIs     []analysis.KPIStats         `json:"kpis"`
	Rankings []analysis.RankedCompetitor `json:"rankings"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
