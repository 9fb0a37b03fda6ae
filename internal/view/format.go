package view

import (
	"strconv"

	"competitive-intel/internal/model"
)

// Missing is rendered in place of any unknown value.
const Missing = "-"

// FormatNumber renders v in its shortest form, or "-" when unknown.
func FormatNumber(v *float64) string {
	if v == nil {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatMillions renders a money amount in millions: "129.14M", "-M".
func FormatMillions(v *float64) string { return FormatNumber(v) + "M" }

// FormatPercent renders a percentage: "85%", "-%".
func FormatPercent(v *float64) string { return FormatNumber(v) + "%" }

// metric describes one KPI row shared by cards, tables and the simulation.
type metric struct {
	label  string
	value  func(model.PartialMetrics) *float64
	format func(*float64) string
}

var metrics = []metric{
	{"Revenue", func(p model.PartialMetrics) *float64 { return p.Revenue }, FormatMillions},
	{"NPS", func(p model.PartialMetrics) *float64 { return p.NPS }, FormatNumber},
	{"R&D Spend", func(p model.PartialMetrics) *float64 { return p.RDSpend }, FormatMillions},
	{"Regions", func(p model.PartialMetrics) *float64 { return p.Regions }, FormatNumber},
	{"Retention Rate", func(p model.PartialMetrics) *float64 { return p.RetentionRate }, FormatPercent},
}
