// Package form turns raw, string-typed company form fields into validated
// metrics or a set of per-field error messages.
package form

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"competitive-intel/internal/model"
)

// Field names. Keep these stable; they are used as error keys and in the
// dashboard API's form payload.
const (
	FieldRevenue       = "revenue"
	FieldNPS           = "nps"
	FieldRDSpend       = "r_d_spend"
	FieldRegions       = "regions"
	FieldRetentionRate = "retention_rate"
	FieldDataset       = "dataset"
)

// Fields is the raw form state as typed by the user.
type Fields struct {
	Revenue       string `json:"revenue" yaml:"revenue"`
	NPS           string `json:"nps" yaml:"nps"`
	RDSpend       string `json:"r_d_spend" yaml:"r_d_spend"`
	Regions       string `json:"regions" yaml:"regions"`
	RetentionRate string `json:"retention_rate" yaml:"retention_rate"`

	Name     string `json:"name,omitempty" yaml:"name"`
	Industry string `json:"industry,omitempty" yaml:"industry"`
	Region   string `json:"region,omitempty" yaml:"region"`
}

// Defaults returns the values the form is pre-filled with.
func Defaults() Fields {
	return Fields{
		Revenue:       "129.14",
		NPS:           "60",
		RDSpend:       "20.5",
		Regions:       "17",
		RetentionRate: "85.0",
	}
}

// Set updates one field by name. Unknown names are ignored and reported.
func (f *Fields) Set(name, value string) bool {
	switch name {
	case FieldRevenue:
		f.Revenue = value
	case FieldNPS:
		f.NPS = value
	case FieldRDSpend:
		f.RDSpend = value
	case FieldRegions:
		f.Regions = value
	case FieldRetentionRate:
		f.RetentionRate = value
	case "name":
		f.Name = value
	case "industry":
		f.Industry = value
	case "region":
		f.Region = value
	default:
		return false
	}
	return true
}

// Errors maps a field name to a human-readable message. Only invalid
// fields have keys.
type Errors map[string]string

// Has reports whether field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields returns the invalid field names in sorted order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

const (
	msgRevenue       = "Enter a valid revenue (in millions)"
	msgNPS           = "NPS must be between -100 and 100"
	msgRDSpend       = "Enter a valid R&D spend (in millions)"
	msgRegions       = "Enter the number of regions (at least 1)"
	msgRetentionRate = "Retention rate must be 0-100%"
	msgDataset       = "Please upload a competitor dataset (CSV, XLSX, XLS)"
)

// Validate checks every field independently and collects all errors.
// The returned metrics are only meaningful when the error map is empty.
func Validate(f Fields, hasDataset bool) (model.CompanyMetrics, Errors) {
	errs := Errors{}
	var out model.CompanyMetrics

	if v, ok := parseNumber(f.Revenue); ok && v > 0 {
		out.Revenue = v
	} else {
		errs[FieldRevenue] = msgRevenue
	}

	if v, ok := parseInt(f.NPS); ok && v >= -100 && v <= 100 {
		out.NPS = v
	} else {
		errs[FieldNPS] = msgNPS
	}

	if v, ok := parseNumber(f.RDSpend); ok && v >= 0 {
		out.RDSpend = v
	} else {
		errs[FieldRDSpend] = msgRDSpend
	}

	if v, ok := parseInt(f.Regions); ok && v >= 1 {
		out.Regions = v
	} else {
		errs[FieldRegions] = msgRegions
	}

	if v, ok := parseNumber(f.RetentionRate); ok && v >= 0 && v <= 100 {
		out.RetentionRate = v
	} else {
		errs[FieldRetentionRate] = msgRetentionRate
	}

	if !hasDataset {
		errs[FieldDataset] = msgDataset
	}

	out.Name = strings.TrimSpace(f.Name)
	out.Industry = strings.TrimSpace(f.Industry)
	out.Region = strings.TrimSpace(f.Region)
	return out, errs
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseInt accepts integers, including ones written with a zero fraction ("60.0").
func parseInt(raw string) (int, bool) {
	v, ok := parseNumber(raw)
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
