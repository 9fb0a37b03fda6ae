package analysis

import (
	"math"
	"sort"

	"competitive-intel/internal/model"
)

// KPIStats positions the company against the competitor distribution of one
// KPI. Competitors without a value for the KPI are left out; when none has
// one, Count is 0 and the distribution fields are zero.
type KPIStats struct {
	KPI   string `json:"kpi"`
	Count int    `json:"count"`

	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`

	YourValue float64 `json:"your_value"`
	// PercentileRank is the share of competitors (0-100) whose value is at
	// or below YourValue.
	PercentileRank float64 `json:"percentile_rank"`
	// GapToMedian is YourValue - Median.
	GapToMedian float64 `json:"gap_to_median"`
}

// ComputeBenchmark returns one KPIStats per KPI, in model.KPIs order.
func ComputeBenchmark(company model.CompanyMetrics, competitors []model.CompetitorRecord) []KPIStats {
	you := company.Partial()
	out := make([]KPIStats, 0, len(model.KPIs))
	for _, kpi := range model.KPIs {
		vals := make([]float64, 0, len(competitors))
		for _, c := range competitors {
			if v := c.Value(kpi); v != nil {
				vals = append(vals, *v)
			}
		}
		out = append(out, computeStats(kpi, *you.Value(kpi), vals))
	}
	return out
}

func computeStats(kpi string, yours float64, vals []float64) KPIStats {
	s := KPIStats{KPI: kpi, YourValue: yours, Count: len(vals)}
	if len(vals) == 0 {
		return s
	}

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	atOrBelow := 0
	for _, v := range vals {
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
		if v <= yours {
			atOrBelow++
		}
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	s.Min = minv
	s.Max = maxv
	s.Mean = sum / float64(len(vals))
	s.P25 = percentileSorted(sorted, 0.25)
	s.Median = percentileSorted(sorted, 0.5)
	s.P75 = percentileSorted(sorted, 0.75)
	s.PercentileRank = 100 * float64(atOrBelow) / float64(len(vals))
	s.GapToMedian = yours - s.Median
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
