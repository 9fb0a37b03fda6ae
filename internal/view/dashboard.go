package view

import (
	"fmt"
	"math"
	"strings"

	"competitive-intel/internal/model"
)

// NoInsightPlaceholder is shown when an insight has no content at all.
const NoInsightPlaceholder = "No AI insight available. Try refreshing or check your backend logs."

// NoCommentaryPlaceholder is shown when a simulation carries no commentary.
const NoCommentaryPlaceholder = "[AI commentary will appear here]"

// Card is one executive-summary KPI card.
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CompetitorOption is one entry in the competitor picker.
type CompetitorOption struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// ComparisonRow is one KPI line of the company-vs-competitor table.
type ComparisonRow struct {
	KPI         string `json:"kpi"`
	YourCompany string `json:"your_company"`
	Competitor  string `json:"competitor"`
}

// Gap summarises how far the company trails the competitor on one KPI.
type Gap struct {
	Label   string `json:"label"`
	Percent string `json:"percent"`
	Summary string `json:"summary"`
	Advice  string `json:"advice"`
}

// Dashboard is the comparison part of the screen.
type Dashboard struct {
	Cards       []Card             `json:"cards"`
	Competitors []CompetitorOption `json:"competitors"`
	Selected    int                `json:"selected"`
	Comparison  []ComparisonRow    `json:"comparison"`
	Gaps        []Gap              `json:"gaps"`
}

// BuildDashboard assembles the comparison view. It tolerates an empty
// competitor list and an out-of-range selection, rendering "-" for the
// competitor column in both cases.
func BuildDashboard(company model.CompanyMetrics, competitors []model.CompetitorRecord, selected int) Dashboard {
	you := company.Partial()
	var them model.PartialMetrics
	if selected >= 0 && selected < len(competitors) {
		them = competitors[selected].PartialMetrics
	}

	d := Dashboard{
		Cards:       make([]Card, 0, len(metrics)),
		Competitors: make([]CompetitorOption, 0, len(competitors)),
		Selected:    selected,
		Comparison:  make([]ComparisonRow, 0, len(metrics)),
	}
	for _, m := range metrics {
		d.Cards = append(d.Cards, Card{Label: m.label, Value: m.format(m.value(you))})
		d.Comparison = append(d.Comparison, ComparisonRow{
			KPI:         m.label,
			YourCompany: m.format(m.value(you)),
			Competitor:  m.format(m.value(them)),
		})
	}
	for i, c := range competitors {
		d.Competitors = append(d.Competitors, CompetitorOption{Index: i, Name: c.DisplayName(i), Selected: i == selected})
	}
	d.Gaps = []Gap{
		buildGap("Revenue Gap", you.Revenue, them.Revenue, "Focus on new market expansion."),
		buildGap("NPS Gap", you.NPS, them.NPS, "Improve customer support and product UX."),
		buildGap("Retention Gap", you.RetentionRate, them.RetentionRate, "Launch loyalty programs."),
	}
	return d
}

func buildGap(label string, you, them *float64, advice string) Gap {
	g := Gap{Label: label, Percent: Missing, Advice: advice}
	if you == nil || them == nil || *them == 0 {
		g.Summary = "Not enough data to compare with competitor."
		return g
	}
	pct := math.Round((*them - *you) / math.Abs(*them) * 100)
	if pct == 0 {
		pct = 0 // normalise -0
	}
	g.Percent = fmt.Sprintf("%.0f%%", pct)
	switch {
	case pct > 0:
		g.Summary = fmt.Sprintf("You are %.0f%% behind competitor.", pct)
	case pct < 0:
		g.Summary = fmt.Sprintf("You are %.0f%% ahead of competitor.", -pct)
	default:
		g.Summary = "You are level with competitor."
	}
	return g
}

// InsightView is an insight with its conditional-rendering flags.
type InsightView struct {
	Text               string   `json:"text"`
	Recommendations    []string `json:"recommendations"`
	Weaknesses         []string `json:"weaknesses"`
	HasInsight         bool     `json:"has_insight"`
	HasRecommendations bool     `json:"has_recommendations"`
	HasWeaknesses      bool     `json:"has_weaknesses"`
	Placeholder        string   `json:"placeholder,omitempty"`
}

// NewInsightView computes the "has content" flags for ins.
func NewInsightView(ins model.Insight) InsightView {
	v := InsightView{
		Text:            strings.TrimSpace(ins.Text),
		Recommendations: nonNil(ins.Recommendations),
		Weaknesses:      nonNil(ins.Weaknesses),
	}
	v.HasInsight = v.Text != ""
	v.HasRecommendations = len(v.Recommendations) > 0
	v.HasWeaknesses = len(v.Weaknesses) > 0
	if !v.HasInsight && !v.HasRecommendations && !v.HasWeaknesses {
		v.Placeholder = NoInsightPlaceholder
	}
	return v
}

// SimulationRow is one KPI of the simulated company.
type SimulationRow struct {
	KPI   string `json:"kpi"`
	Value string `json:"value"`
}

// SimulationView is a simulation result ready for display.
type SimulationView struct {
	Commentary    string          `json:"commentary"`
	HasCommentary bool            `json:"has_commentary"`
	Rows          []SimulationRow `json:"rows"`
}

// NewSimulationView renders every metric, using "-" for anything missing.
func NewSimulationView(res model.SimulationResult) SimulationView {
	v := SimulationView{Commentary: strings.TrimSpace(res.Commentary)}
	v.HasCommentary = v.Commentary != ""
	if !v.HasCommentary {
		v.Commentary = NoCommentaryPlaceholder
	}
	var pm model.PartialMetrics
	if res.YourCompany != nil {
		pm = *res.YourCompany
	}
	v.Rows = make([]SimulationRow, 0, len(metrics))
	for _, m := range metrics {
		v.Rows = append(v.Rows, SimulationRow{KPI: m.label, Value: m.format(m.value(pm))})
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
