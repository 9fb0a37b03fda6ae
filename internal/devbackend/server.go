package devbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"competitive-intel/internal/api/middleware"
	"competitive-intel/internal/api/models"
	"competitive-intel/internal/backend"

	"github.com/gin-gonic/gin"
)

const insightPrompt = `
You are a world-class business analyst AI. Compare the following company to its competitor and generate:
- A strategic insight paragraph
- 3 actionable recommendations
- Highlight the biggest weaknesses and suggest AI-powered moves

Your Company: %s
Competitor: %s

Respond in this format:
Insight: <paragraph>
Recommendations: <list>
Weaknesses: <list>
`

// Server implements the analysis backend endpoints for local development.
type Server struct {
	// Analyst may be nil, in which case AI text is replaced by an error note
	// and insights fall back to FallbackInsight.
	Analyst Analyst
}

func NewServer(a Analyst) *Server {
	return &Server{Analyst: a}
}

// Router builds the gin engine with CORS for origins.
func (s *Server) Router(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS(origins))
	r.Use(middleware.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST(backend.PathMetrics, s.Metrics)
	r.POST(backend.PathInsights, s.Insights)
	r.POST(backend.PathSimulation, s.Simulation)
	return r
}

type metricsBody struct {
	YourCompany     json.RawMessage `json:"your_company"`
	Dataset         string          `json:"dataset"`
	DatasetFilename string          `json:"dataset_filename"`
}

// Metrics handles POST /api/metrics
func (s *Server) Metrics(c *gin.Context) {
	var req metricsBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var rows []Row
	if req.Dataset != "" && req.DatasetFilename != "" {
		parsed, err := ParseDataset(req.Dataset, req.DatasetFilename)
		if err != nil {
			log.Printf("[DevBackend] Could not parse %s: %v", req.DatasetFilename, err)
		}
		rows = parsed
	}
	if len(rows) == 0 {
		rows = []Row{DefaultCompetitor()}
	}
	competitors := make([]Row, 0, len(rows))
	for _, r := range rows {
		competitors = append(competitors, FillDefaults(r))
	}
	log.Printf("[DevBackend] Metrics: %d competitors from %q", len(competitors), req.DatasetFilename)

	company, err := decodeCompany(req.YourCompany)
	if err != nil {
		log.Printf("[DevBackend] Metrics: bad your_company: %v", err)
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, Sanitize(map[string]any{
		"your_company": company,
		"competitors":  competitors,
	}))
}

type insightBody struct {
	YourCompany json.RawMessage `json:"your_company"`
	Competitor  json.RawMessage `json:"competitor"`
}

// Insights handles POST /api/insights
func (s *Server) Insights(c *gin.Context) {
	var req insightBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prompt := fmt.Sprintf(insightPrompt, compact(req.YourCompany), compact(req.Competitor))
	text := s.analyze(c.Request.Context(), prompt, 400)

	ins := ParseInsight(text)
	if emptyInsight(ins) {
		ins = FallbackInsight()
	}
	c.JSON(http.StatusOK, gin.H{
		"insight":         ins.Text,
		"recommendations": ins.Recommendations,
		"weaknesses":      ins.Weaknesses,
	})
}

type simulationBody struct {
	YourCompany map[string]any  `json:"your_company"`
	Competitor  json.RawMessage `json:"competitor"`
	Scenario    string          `json:"scenario"`
}

// Simulation handles POST /api/simulation
func (s *Server) Simulation(c *gin.Context) {
	var req simulationBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	company, commentary := ApplyScenario(req.YourCompany, req.Scenario)
	prompt, err := scenarioPrompt(req.Scenario, company, req.Competitor)
	if err != nil {
		log.Printf("[DevBackend] Simulation: %v", err)
		badRequest(c, err)
		return
	}
	ai := s.analyze(c.Request.Context(), prompt, 200)

	c.JSON(http.StatusOK, Sanitize(map[string]any{
		"your_company": company,
		"commentary":   commentary + "\n\nAI: " + ai,
	}))
}

// decodeCompany decodes the optional your_company object of a metrics request.
func decodeCompany(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var company any
	if err := json.Unmarshal(raw, &company); err != nil {
		return nil, fmt.Errorf("invalid your_company: %w", err)
	}
	return company, nil
}

func scenarioPrompt(scenario string, company map[string]any, competitor json.RawMessage) (string, error) {
	blob, err := json.Marshal(company)
	if err != nil {
		return "", fmt.Errorf("encode scenario metrics: %w", err)
	}
	return fmt.Sprintf("Given this scenario: '%s', here are the new company metrics: %s. Compare to competitor: %s. What is the likely impact?",
		scenario, blob, compact(competitor)), nil
}

// ApplyScenario applies the supported what-if rules to a copy of company and
// describes what changed. Currently a scenario mentioning both "R&D" and
// "10%" raises r_d_spend by 10%.
func ApplyScenario(company map[string]any, scenario string) (map[string]any, string) {
	out := make(map[string]any, len(company))
	for k, v := range company {
		out[k] = v
	}
	if strings.Contains(strings.ToLower(scenario), "r&d") && strings.Contains(scenario, "10%") {
		if v, ok := toFloat(company["r_d_spend"]); ok {
			out["r_d_spend"] = math.Round(v*1.10*100) / 100
			return out, "R&D spend increased by 10% as per scenario."
		}
	}
	return out, "No change applied."
}

func (s *Server) analyze(ctx context.Context, prompt string, maxTokens int64) string {
	if s.Analyst == nil {
		return "[AI error: ANTHROPIC_API_KEY not configured]"
	}
	text, err := s.Analyst.Analyze(ctx, prompt, maxTokens)
	if err != nil {
		log.Printf("[DevBackend] Analyst error: %v", err)
		return fmt.Sprintf("[AI error: %v]", err)
	}
	return text
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func compact(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}
