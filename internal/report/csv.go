package report

import (
	"encoding/csv"
	"io"
	"os"

	"competitive-intel/internal/model"
	"competitive-intel/internal/view"
)

// WriteCSV writes one row for the company followed by one row per
// competitor. Missing values are written as "-".
func WriteCSV(out io.Writer, r Report) error {
	w := csv.NewWriter(out)

	header := append([]string{"name", "role"}, model.KPIs...)
	if err := w.Write(header); err != nil {
		return err
	}

	name := r.Company.Name
	if name == "" {
		name = "Your Company"
	}
	if err := w.Write(row(name, "company", r.Company.Partial())); err != nil {
		return err
	}
	for i, c := range r.Competitors {
		role := "competitor"
		if i == r.Selected {
			role = "selected"
		}
		if err := w.Write(row(c.DisplayName(i), role, c.PartialMetrics)); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteCSVFile writes the CSV report to path.
func WriteCSVFile(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func row(name, role string, pm model.PartialMetrics) []string {
	out := []string{name, role}
	for _, kpi := range model.KPIs {
		out = append(out, view.FormatNumber(pm.Value(kpi)))
	}
	return out
}
