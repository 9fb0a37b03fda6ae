package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"competitive-intel/internal/analysis"
	"competitive-intel/internal/backend"
	"competitive-intel/internal/config"
	"competitive-intel/internal/dataset"
	"competitive-intel/internal/form"
	"competitive-intel/internal/model"
	"competitive-intel/internal/report"
	"competitive-intel/internal/session"
	"competitive-intel/internal/view"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "analyze":
		cmdAnalyze(os.Args[2:])
	case "rank":
		cmdRank(os.Args[2:])
	case "preview":
		cmdPreview(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli analyze --dataset competitors.csv [--config config.yaml] [--competitor 1] [--scenario \"Increase R&D by 10%\"] [--out results/comparison.csv] [--report results/report.html]")
	fmt.Println("  cli rank --dataset competitors.xlsx [--kpi revenue]")
	fmt.Println("  cli preview --dataset competitors.csv")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - company metrics default to the config's company section; override with --revenue, --nps, --rd, --regions, --retention")
	fmt.Println("  - the analysis backend URL comes from backend.base_url or BACKEND_URL")
}

// companyFlags registers the form overrides on fs.
type companyFlags struct {
	revenue, nps, rd, regions, retention, name *string
}

func addCompanyFlags(fs *flag.FlagSet) companyFlags {
	return companyFlags{
		revenue:   fs.String("revenue", "", "Revenue in millions"),
		nps:       fs.String("nps", "", "Net Promoter Score (-100..100)"),
		rd:        fs.String("rd", "", "R&D spend in millions"),
		regions:   fs.String("regions", "", "Number of regions"),
		retention: fs.String("retention", "", "Retention rate in percent"),
		name:      fs.String("name", "", "Company name"),
	}
}

func (f companyFlags) events() []session.Event {
	var out []session.Event
	for field, v := range map[string]*string{
		form.FieldRevenue:       f.revenue,
		form.FieldNPS:           f.nps,
		form.FieldRDSpend:       f.rd,
		form.FieldRegions:       f.regions,
		form.FieldRetentionRate: f.retention,
		"name":                  f.name,
	} {
		if *v != "" {
			out = append(out, session.FieldChanged{Name: field, Value: *v})
		}
	}
	return out
}

// runToDashboard drives a headless session through the form and the
// metrics request.
func runToDashboard(ctx context.Context, cfg *config.Config, path string, cf companyFlags) *session.Controller {
	client := backend.NewClient(cfg.Backend.BaseURL, 0)
	ctrl := session.NewController(client, cfg.Company, cfg.Timeouts())

	for _, ev := range cf.events() {
		ctrl.Dispatch(ev)
	}
	ctrl.Dispatch(session.DatasetSelected{Source: dataset.FileSource(path)})
	s := ctrl.Dispatch(session.Submit{})
	if len(s.FormErrors) > 0 {
		for _, f := range s.FormErrors.Fields() {
			fmt.Printf("%s: %s\n", f, s.FormErrors[f])
		}
		os.Exit(1)
	}

	s, err := ctrl.WaitFor(ctx, func(s session.State) bool { return !s.MetricsLoading() })
	if err != nil {
		panic(err)
	}
	if s.Phase != session.PhaseDashboard {
		fmt.Println(s.SubmitError)
		os.Exit(1)
	}
	return ctrl
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config (optional)")
	dataPath := fs.String("dataset", "", "Competitor dataset (.csv, .xlsx, .xls)")
	competitor := fs.Int("competitor", 1, "Competitor to compare with (1-based)")
	scenario := fs.String("scenario", "", "Optional what-if scenario")
	outPath := fs.String("out", "", "Optional: write the comparison CSV here")
	reportPath := fs.String("report", "", "Optional: write a report (.md or .html)")
	timeout := fs.Duration("timeout", 3*time.Minute, "Overall timeout")
	cf := addCompanyFlags(fs)
	_ = fs.Parse(args)

	if *dataPath == "" {
		fmt.Println("--dataset is required")
		os.Exit(2)
	}
	cfg := loadConfig(*cfgPath)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ctrl := runToDashboard(ctx, cfg, *dataPath, cf)
	defer ctrl.Close()

	idx := *competitor - 1
	if n := len(ctrl.State().Competitors); idx < 0 || idx >= n {
		fmt.Printf("--competitor must be between 1 and %d\n", n)
		os.Exit(2)
	}
	ctrl.Dispatch(session.SelectCompetitor{Index: idx})
	s, err := ctrl.WaitFor(ctx, func(s session.State) bool { return !s.InsightLoading() })
	if err != nil {
		panic(err)
	}

	if strings.TrimSpace(*scenario) != "" {
		ctrl.Dispatch(session.Simulate{Scenario: *scenario})
		if s, err = ctrl.WaitFor(ctx, func(s session.State) bool { return !s.SimulationLoading() }); err != nil {
			panic(err)
		}
	}

	printScreen(session.Render(s, 0))

	r := report.New(s.Company, s.Competitors, s.Selected, s.Insight.Result, s.Simulation.Result)
	if *outPath != "" {
		mkdirFor(*outPath)
		if err := report.WriteCSVFile(*outPath, r); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote %d rows to %s\n", len(s.Competitors)+1, *outPath)
	}
	if *reportPath != "" {
		mkdirFor(*reportPath)
		var out []byte
		if strings.EqualFold(filepath.Ext(*reportPath), ".html") {
			if out, err = report.HTML(r); err != nil {
				panic(err)
			}
		} else {
			out = []byte(report.Markdown(r))
		}
		if err := os.WriteFile(*reportPath, out, 0o644); err != nil {
			panic(err)
		}
		fmt.Printf("Wrote report to %s\n", *reportPath)
	}
}

func printScreen(scr session.Screen) {
	d := scr.Dashboard
	name := d.Competitors[d.Selected].Name
	fmt.Printf("%-16s %-14s %-14s\n", "kpi", "your company", name)
	for _, row := range d.Comparison {
		fmt.Printf("%-16s %-14s %-14s\n", row.KPI, row.YourCompany, row.Competitor)
	}
	fmt.Println()
	for _, g := range d.Gaps {
		fmt.Printf("%s: %s %s\n", g.Label, g.Summary, g.Advice)
	}

	fmt.Println("\nAI insight:")
	switch ins := scr.Insight; {
	case ins.Status == session.FlowFailed:
		fmt.Println("  " + ins.Error)
	case ins.View == nil || ins.View.Placeholder != "":
		fmt.Println("  " + view.NoInsightPlaceholder)
	default:
		if ins.View.HasInsight {
			fmt.Println("  " + ins.View.Text)
		}
		for _, r := range ins.View.Recommendations {
			fmt.Println("  - " + r)
		}
		if ins.View.HasWeaknesses {
			fmt.Println("  weaknesses:")
			for _, w := range ins.View.Weaknesses {
				fmt.Println("  - " + w)
			}
		}
	}

	sim := scr.Simulation
	switch {
	case sim.Status == session.FlowFailed:
		fmt.Println("\nSimulation: " + sim.Error)
	case sim.View != nil:
		fmt.Printf("\nSimulation (%s):\n  %s\n", sim.Scenario, sim.View.Commentary)
		for _, row := range sim.View.Rows {
			fmt.Printf("  %-16s %s\n", row.KPI, row.Value)
		}
	}
}

func cmdRank(args []string) {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config (optional)")
	dataPath := fs.String("dataset", "", "Competitor dataset (.csv, .xlsx, .xls)")
	kpi := fs.String("kpi", model.KPIRevenue, "KPI to rank by: "+strings.Join(model.KPIs, ", "))
	cf := addCompanyFlags(fs)
	_ = fs.Parse(args)

	if *dataPath == "" {
		fmt.Println("--dataset is required")
		os.Exit(2)
	}
	cfg := loadConfig(*cfgPath)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeouts.Metrics+5*time.Second)
	defer cancel()

	ctrl := runToDashboard(ctx, cfg, *dataPath, cf)
	// Insight results are not needed here.
	defer ctrl.Close()
	s := ctrl.State()

	fmt.Printf("%-4s %-24s %-12s\n", "rank", "competitor", *kpi)
	for _, r := range analysis.RankCompetitors(s.Competitors, *kpi) {
		fmt.Printf("%-4d %-24s %-12s\n", r.Rank, r.Name, view.FormatNumber(r.Value))
	}

	fmt.Printf("\n%-16s %-10s %-6s %-10s %-10s %-10s %-10s\n", "kpi", "you", "count", "median", "p25/p75", "gap", "pctile")
	for _, b := range analysis.ComputeBenchmark(s.Company, s.Competitors) {
		if b.Count == 0 {
			fmt.Printf("%-16s %-10.2f %-6d %s\n", b.KPI, b.YourValue, 0, view.Missing)
			continue
		}
		fmt.Printf("%-16s %-10.2f %-6d %-10.2f %-4.1f/%-5.1f %-10.2f %-10.0f\n",
			b.KPI, b.YourValue, b.Count, b.Median, b.P25, b.P75, b.GapToMedian, b.PercentileRank)
	}
}

func cmdPreview(args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	dataPath := fs.String("dataset", "", "Competitor dataset (.csv, .xlsx, .xls)")
	_ = fs.Parse(args)

	if *dataPath == "" {
		fmt.Println("--dataset is required")
		os.Exit(2)
	}
	lines, err := dataset.Preview(dataset.FileSource(*dataPath))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, l := range lines {
		fmt.Println(l)
	}
}

func mkdirFor(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
}
