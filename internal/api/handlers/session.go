package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"competitive-intel/internal/analysis"
	"competitive-intel/internal/api/models"
	"competitive-intel/internal/dataset"
	"competitive-intel/internal/form"
	"competitive-intel/internal/model"
	"competitive-intel/internal/report"
	"competitive-intel/internal/session"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds a competitor dataset upload.
const maxUploadBytes = 20 << 20

// SessionHandler serves the dashboard screen of each session.
type SessionHandler struct {
	store    *SessionStore
	backend  session.Backend
	defaults form.Fields
	timeouts session.Timeouts
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *SessionStore, b session.Backend, defaults form.Fields, t session.Timeouts) *SessionHandler {
	return &SessionHandler{store: store, backend: b, defaults: defaults, timeouts: t}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	ctrl := session.NewController(h.backend, h.defaults, h.timeouts)
	id, expires := h.store.Add(ctrl)
	log.Printf("[Session] created %s", id)
	c.JSON(http.StatusCreated, models.SessionResponse{ID: id, ExpiresAt: expires, Screen: ctrl.Screen()})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, ctrl, expires)
}

// UpdateForm handles PUT /api/v1/sessions/:id/form
func (h *SessionHandler) UpdateForm(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	var req models.FormUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	var probe form.Fields
	for name := range req {
		if !probe.Set(name, "") {
			errorJSON(c, http.StatusBadRequest, "UNKNOWN_FIELD", fmt.Sprintf("unknown form field %q", name), nil)
			return
		}
	}
	if !h.requirePhase(c, ctrl, session.PhaseCollecting) {
		return
	}
	for name, value := range req {
		ctrl.Dispatch(session.FieldChanged{Name: name, Value: value})
	}
	h.respond(c, http.StatusOK, ctrl, expires)
}

// UploadDataset handles POST /api/v1/sessions/:id/dataset
func (h *SessionHandler) UploadDataset(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	if !h.requirePhase(c, ctrl, session.PhaseCollecting) {
		return
	}
	fh, err := c.FormFile(form.FieldDataset)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "MISSING_FILE", "multipart field \"dataset\" is required", nil)
		return
	}
	if fh.Size > maxUploadBytes {
		errorJSON(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", fmt.Sprintf("dataset exceeds %d bytes", maxUploadBytes), nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_FILE", err.Error(), nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_FILE", err.Error(), nil)
		return
	}

	s := ctrl.Dispatch(session.DatasetSelected{Source: dataset.BytesSource{Filename: fh.Filename, Data: data}})
	if msg, bad := s.FormErrors[form.FieldDataset]; bad {
		errorJSON(c, http.StatusUnprocessableEntity, "INVALID_DATASET", msg, map[string]interface{}{"filename": fh.Filename})
		return
	}
	h.wait(c, ctrl, func(s session.State) bool { return s.Dataset == nil || !s.Dataset.PreviewLoading })
	h.respond(c, http.StatusAccepted, ctrl, expires)
}

// Submit handles POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	if !h.requirePhase(c, ctrl, session.PhaseCollecting) {
		return
	}
	s := ctrl.Dispatch(session.Submit{})
	if len(s.FormErrors) > 0 {
		details := make(map[string]interface{}, len(s.FormErrors))
		for k, v := range s.FormErrors {
			details[k] = v
		}
		errorJSON(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "The form has invalid fields", details)
		return
	}
	h.wait(c, ctrl, func(s session.State) bool { return !s.MetricsLoading() })
	h.respond(c, http.StatusAccepted, ctrl, expires)
}

// SelectCompetitor handles PUT /api/v1/sessions/:id/competitor
func (h *SessionHandler) SelectCompetitor(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	var req models.SelectCompetitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	if !h.requirePhase(c, ctrl, session.PhaseDashboard) {
		return
	}
	if n := len(ctrl.State().Competitors); *req.Index < 0 || *req.Index >= n {
		errorJSON(c, http.StatusBadRequest, "INVALID_INDEX",
			fmt.Sprintf("competitor index %d out of range [0, %d)", *req.Index, n), nil)
		return
	}
	ctrl.Dispatch(session.SelectCompetitor{Index: *req.Index})
	h.wait(c, ctrl, func(s session.State) bool { return !s.InsightLoading() })
	h.respond(c, http.StatusOK, ctrl, expires)
}

// RefreshInsight handles POST /api/v1/sessions/:id/insight/refresh
func (h *SessionHandler) RefreshInsight(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	if !h.requirePhase(c, ctrl, session.PhaseDashboard) {
		return
	}
	ctrl.Dispatch(session.RefreshInsight{})
	h.wait(c, ctrl, func(s session.State) bool { return !s.InsightLoading() })
	h.respond(c, http.StatusAccepted, ctrl, expires)
}

// Simulate handles POST /api/v1/sessions/:id/simulation
func (h *SessionHandler) Simulate(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	var req models.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	if !h.requirePhase(c, ctrl, session.PhaseDashboard) {
		return
	}
	s := ctrl.Dispatch(session.Simulate{Scenario: req.Scenario})
	if s.Simulation.Error == session.MsgScenarioRequired || s.Simulation.Status != session.FlowRunning {
		errorJSON(c, http.StatusUnprocessableEntity, "INVALID_SCENARIO", s.Simulation.Error, nil)
		return
	}
	h.wait(c, ctrl, func(s session.State) bool { return !s.SimulationLoading() })
	h.respond(c, http.StatusAccepted, ctrl, expires)
}

// Reset handles POST /api/v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	ctrl, expires, ok := h.lookup(c)
	if !ok {
		return
	}
	ctrl.Dispatch(session.Reset{})
	h.respond(c, http.StatusOK, ctrl, expires)
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// Benchmark handles GET /api/v1/sessions/:id/benchmark
func (h *SessionHandler) Benchmark(c *gin.Context) {
	ctrl, _, ok := h.lookup(c)
	if !ok {
		return
	}
	if !h.requirePhase(c, ctrl, session.PhaseDashboard) {
		return
	}
	s := ctrl.State()
	kpi := c.DefaultQuery("kpi", model.KPIRevenue)
	if !knownKPI(kpi) {
		errorJSON(c, http.StatusBadRequest, "INVALID_KPI", fmt.Sprintf("unknown kpi %q", kpi), nil)
		return
	}
	c.JSON(http.StatusOK, models.BenchmarkResponse{
		KPIs:     analysis.ComputeBenchmark(s.Company, s.Competitors),
		Rankings: analysis.RankCompetitors(s.Competitors, kpi),
	})
}

// Report handles GET /api/v1/sessions/:id/report
func (h *SessionHandler) Report(c *gin.Context) {
	ctrl, _, ok := h.lookup(c)
	if !ok {
		return
	}
	var q models.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	if !h.requirePhase(c, ctrl, session.PhaseDashboard) {
		return
	}
	s := ctrl.State()
	r := report.New(s.Company, s.Competitors, s.Selected, s.Insight.Result, s.Simulation.Result)

	switch q.Format {
	case "", "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown(r)))
	case "html":
		out, err := report.HTML(r)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "REPORT_ERROR", err.Error(), nil)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", out)
	case "csv":
		c.Header("Content-Disposition", `attachment; filename="comparison.csv"`)
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.WriteCSV(c.Writer, r); err != nil {
			c.Error(err)
		}
	default:
		errorJSON(c, http.StatusBadRequest, "INVALID_FORMAT", fmt.Sprintf("unsupported report format %q", q.Format), nil)
	}
}

// Helper methods

func (h *SessionHandler) lookup(c *gin.Context) (*session.Controller, time.Time, bool) {
	ctrl, expires, ok := h.store.Get(c.Param("id"))
	if !ok {
		notFound(c)
	}
	return ctrl, expires, ok
}

func (h *SessionHandler) requirePhase(c *gin.Context, ctrl *session.Controller, want session.Phase) bool {
	if got := ctrl.State().Phase; got != want {
		errorJSON(c, http.StatusConflict, "INVALID_PHASE",
			fmt.Sprintf("session is in phase %s, this action needs %s", got, want),
			map[string]interface{}{"phase": got})
		return false
	}
	return true
}

// wait blocks until pred holds when the request asks for it with ?wait=<duration>
// (or ?wait=true, bounded by the request context).
func (h *SessionHandler) wait(c *gin.Context, ctrl *session.Controller, pred func(session.State) bool) {
	raw := c.Query("wait")
	if raw == "" {
		return
	}
	ctx := c.Request.Context()
	if d, err := time.ParseDuration(raw); err == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	} else if b, err := strconv.ParseBool(raw); err != nil || !b {
		return
	}
	if _, err := ctrl.WaitFor(ctx, pred); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Printf("[Session] wait aborted: %v", err)
	}
}

func (h *SessionHandler) respond(c *gin.Context, status int, ctrl *session.Controller, expires time.Time) {
	c.JSON(status, models.SessionResponse{ID: c.Param("id"), ExpiresAt: expires, Screen: ctrl.Screen()})
}

func knownKPI(kpi string) bool {
	for _, k := range model.KPIs {
		if k == kpi {
			return true
		}
	}
	return false
}

func notFound(c *gin.Context) {
	errorJSON(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or expired", nil)
}

func errorJSON(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
