package analysis

import (
	"sort"

	"competitive-intel/internal/model"
)

type RankedCompetitor struct {
	Rank  int      `json:"rank"`
	Index int      `json:"index"`
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// RankCompetitors sorts competitors descending by kpi. Competitors without
// the KPI rank last, in dataset order. Index refers to the input slice.
func RankCompetitors(competitors []model.CompetitorRecord, kpi string) []RankedCompetitor {
	out := make([]RankedCompetitor, 0, len(competitors))
	for i, c := range competitors {
		out = append(out, RankedCompetitor{Index: i, Name: c.DisplayName(i), Value: c.Value(kpi)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value, out[j].Value
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
