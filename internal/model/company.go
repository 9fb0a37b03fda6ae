package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CompanyMetrics is the validated company profile sent to the backend.
// Units:
// - Revenue, RDSpend: millions
// - NPS: -100..100
// - Regions: count, at least 1
// - RetentionRate: percent 0..100
//
// Values are immutable once a metrics request has been sent.
type CompanyMetrics struct {
	Revenue       float64 `json:"revenue"`
	NPS           int     `json:"nps"`
	RDSpend       float64 `json:"r_d_spend"`
	Regions       int     `json:"regions"`
	RetentionRate float64 `json:"retention_rate"`

	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
	Region   string `json:"region,omitempty"`
}

// Partial converts the metrics into the nullable shape used for display.
func (c CompanyMetrics) Partial() PartialMetrics {
	nps := float64(c.NPS)
	regions := float64(c.Regions)
	return PartialMetrics{
		Revenue:       Float(c.Revenue),
		NPS:           &nps,
		RDSpend:       Float(c.RDSpend),
		Regions:       &regions,
		RetentionRate: Float(c.RetentionRate),
	}
}

// PartialMetrics carries metrics as returned by the backend, where any field
// may be absent. A nil field means "unknown", never zero.
type PartialMetrics struct {
	Revenue       *float64
	NPS           *float64
	RDSpend       *float64
	Regions       *float64
	RetentionRate *float64
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// CompetitorRecord is one peer company extracted by the backend from the
// uploaded dataset. The client never builds these from dataset rows.
//
// Raw holds the JSON object the record was decoded from; it is what gets
// forwarded back to the backend in insight and simulation requests.
type CompetitorRecord struct {
	Name string
	PartialMetrics
	Raw json.RawMessage
}

// DisplayName returns the label used in competitor pickers.
// idx is the record's zero-based position in the competitor list.
func (c CompetitorRecord) DisplayName(idx int) string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return fmt.Sprintf("Competitor %d", idx+1)
}

func (c CompetitorRecord) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	out := map[string]any{}
	if c.Name != "" {
		out["name"] = c.Name
	}
	put := func(key string, v *float64) {
		if v != nil {
			out[key] = *v
		}
	}
	put("revenue", c.Revenue)
	put("nps", c.NPS)
	put("r_d_spend", c.RDSpend)
	put("regions", c.Regions)
	put("retention_rate", c.RetentionRate)
	return json.Marshal(out)
}

// KPI keys, in display order. They match the JSON field names.
const (
	KPIRevenue       = "revenue"
	KPINPS           = "nps"
	KPIRDSpend       = "r_d_spend"
	KPIRegions       = "regions"
	KPIRetentionRate = "retention_rate"
)

var KPIs = []string{KPIRevenue, KPINPS, KPIRDSpend, KPIRegions, KPIRetentionRate}

// Value returns the metric named by a KPI key, or nil if unknown.
func (p PartialMetrics) Value(kpi string) *float64 {
	switch kpi {
	case KPIRevenue:
		return p.Revenue
	case KPINPS:
		return p.NPS
	case KPIRDSpend:
		return p.RDSpend
	case KPIRegions:
		return p.Regions
	case KPIRetentionRate:
		return p.RetentionRate
	}
	return nil
}
