package report

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"competitive-intel/internal/model"
	"competitive-intel/internal/view"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders the report as GitHub-flavoured markdown.
func Markdown(r Report) string {
	var b strings.Builder

	title := "Competitive Intelligence Report"
	if r.Company.Name != "" {
		title += ": " + r.Company.Name
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Your Company\n\n")
	for _, c := range r.Dashboard.Cards {
		fmt.Fprintf(&b, "- **%s:** %s\n", c.Label, c.Value)
	}
	b.WriteString("\n")

	competitor := r.SelectedName()
	if competitor == "" {
		b.WriteString("No competitors were found in the uploaded dataset.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "## Comparison with %s\n\n", escape(competitor))
	b.WriteString("| KPI | Your Company | Competitor |\n|---|---|---|\n")
	for _, row := range r.Dashboard.Comparison {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escape(row.KPI), row.YourCompany, row.Competitor)
	}
	b.WriteString("\n### Growth Gaps\n\n")
	for _, g := range r.Dashboard.Gaps {
		fmt.Fprintf(&b, "- **%s (%s):** %s %s\n", g.Label, g.Percent, g.Summary, g.Advice)
	}

	b.WriteString("\n## Benchmark\n\n")
	b.WriteString("| KPI | You | Competitors | Median | Min | Max | Percentile |\n|---|---|---|---|---|---|---|\n")
	for _, s := range r.Benchmark {
		if s.Count == 0 {
			fmt.Fprintf(&b, "| %s | %s | 0 | - | - | - | - |\n", s.KPI, num(s.YourValue))
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s | %s%% |\n",
			s.KPI, num(s.YourValue), s.Count, num(s.Median), num(s.Min), num(s.Max), num(s.PercentileRank))
	}

	b.WriteString("\n### Revenue Ranking\n\n")
	for _, rc := range r.Rankings {
		fmt.Fprintf(&b, "%d. %s (%s)\n", rc.Rank, escape(rc.Name), view.FormatMillions(rc.Value))
	}

	b.WriteString("\n## AI Insight\n\n")
	writeInsight(&b, r.Insight)

	if r.Simulation != nil {
		sim := view.NewSimulationView(*r.Simulation)
		b.WriteString("\n## What-if Simulation\n\n")
		b.WriteString(sim.Commentary + "\n\n")
		b.WriteString("| KPI | Simulated |\n|---|---|\n")
		for _, row := range sim.Rows {
			fmt.Fprintf(&b, "| %s | %s |\n", escape(row.KPI), row.Value)
		}
	}
	return b.String()
}

func writeInsight(b *strings.Builder, ins *model.Insight) {
	var v view.InsightView
	if ins != nil {
		v = view.NewInsightView(*ins)
	} else {
		v = view.NewInsightView(model.Insight{})
	}
	if v.Placeholder != "" {
		b.WriteString(v.Placeholder + "\n")
		return
	}
	if v.HasInsight {
		b.WriteString(v.Text + "\n")
	}
	list := func(heading string, items []string) {
		fmt.Fprintf(b, "\n### %s\n\n", heading)
		for _, it := range items {
			fmt.Fprintf(b, "- %s\n", it)
		}
	}
	if v.HasRecommendations {
		list("Recommendations", v.Recommendations)
	}
	if v.HasWeaknesses {
		list("Weaknesses", v.Weaknesses)
	}
}

// HTML renders the markdown report as a standalone HTML page.
func HTML(r Report) ([]byte, error) {
	var body bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(r)), &body); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>Competitive Intelligence Report</title>")
	out.WriteString("<style>body{font-family:sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;} " +
		"table{border-collapse:collapse;width:100%;} th,td{border:1px solid #ccc;padding:0.35rem 0.5rem;text-align:left;} " +
		"thead th{background:#f1f5f9;}</style></head><body>")
	out.Write(body.Bytes())
	out.WriteString("</body></html>")
	return out.Bytes(), nil
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// escape keeps names from breaking table cells.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
