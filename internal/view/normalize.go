// Package view is the single boundary that reads raw backend JSON. It turns
// loosely shaped responses into stable, render-ready values.
package view

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"competitive-intel/internal/model"
)

// ErrMalformed is returned when a response body is not JSON at all.
// Missing or oddly typed fields are never an error.
var ErrMalformed = errors.New("malformed response body")

// MetricsResult is the normalized metrics response.
type MetricsResult struct {
	YourCompany model.CompanyMetrics
	Competitors []model.CompetitorRecord
}

// NormalizeMetrics reads {your_company, competitors}. Fields missing from
// your_company keep the submitted values; a missing competitors array is empty.
func NormalizeMetrics(raw []byte, submitted model.CompanyMetrics) (MetricsResult, error) {
	if !gjson.ValidBytes(raw) {
		return MetricsResult{}, ErrMalformed
	}
	root := gjson.ParseBytes(raw)

	out := MetricsResult{
		YourCompany: mergeCompany(submitted, root.Get("your_company")),
		Competitors: []model.CompetitorRecord{},
	}
	for _, item := range root.Get("competitors").Array() {
		if !item.IsObject() {
			continue
		}
		out.Competitors = append(out.Competitors, competitorFrom(item))
	}
	return out, nil
}

// NormalizeInsight accepts a bare string, {insight: "..."}, {insight: {...}},
// or an insight object carrying insight/text, recommendations and weaknesses.
func NormalizeInsight(raw []byte) (model.Insight, error) {
	if !gjson.ValidBytes(raw) {
		return model.Insight{}, ErrMalformed
	}
	return insightFrom(gjson.ParseBytes(raw), 0), nil
}

// NormalizeSimulation reads {commentary?, your_company?}.
func NormalizeSimulation(raw []byte) (model.SimulationResult, error) {
	if !gjson.ValidBytes(raw) {
		return model.SimulationResult{}, ErrMalformed
	}
	root := gjson.ParseBytes(raw)
	var out model.SimulationResult
	if c := root.Get("commentary"); c.Type == gjson.String {
		out.Commentary = c.String()
	}
	if yc := root.Get("your_company"); yc.IsObject() {
		pm := partialFrom(yc)
		out.YourCompany = &pm
	}
	return out, nil
}

func insightFrom(r gjson.Result, depth int) model.Insight {
	ins := model.Insight{Recommendations: []string{}, Weaknesses: []string{}}
	switch {
	case r.Type == gjson.String:
		ins.Text = r.String()
	case r.IsObject():
		inner := r.Get("insight")
		if inner.IsObject() && depth < 2 {
			ins = insightFrom(inner, depth+1)
		} else if inner.Type == gjson.String {
			ins.Text = inner.String()
		} else if t := r.Get("text"); t.Type == gjson.String {
			ins.Text = t.String()
		}
		if len(ins.Recommendations) == 0 {
			ins.Recommendations = stringList(r.Get("recommendations"))
		}
		if len(ins.Weaknesses) == 0 {
			ins.Weaknesses = stringList(r.Get("weaknesses"))
		}
	}
	return ins
}

func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	for _, item := range r.Array() {
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var nameKeys = []string{"name", "Company", "company"}

func competitorFrom(r gjson.Result) model.CompetitorRecord {
	rec := model.CompetitorRecord{
		PartialMetrics: partialFrom(r),
		Raw:            []byte(r.Raw),
	}
	for _, k := range nameKeys {
		if v := r.Get(k); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			rec.Name = strings.TrimSpace(v.String())
			break
		}
	}
	return rec
}

func partialFrom(r gjson.Result) model.PartialMetrics {
	return model.PartialMetrics{
		Revenue:       number(r.Get("revenue")),
		NPS:           number(r.Get("nps")),
		RDSpend:       number(r.Get("r_d_spend")),
		Regions:       number(r.Get("regions")),
		RetentionRate: number(r.Get("retention_rate")),
	}
}

func mergeCompany(base model.CompanyMetrics, r gjson.Result) model.CompanyMetrics {
	if !r.IsObject() {
		return base
	}
	out := base
	pm := partialFrom(r)
	if pm.Revenue != nil {
		out.Revenue = *pm.Revenue
	}
	if pm.NPS != nil {
		out.NPS = int(math.Round(*pm.NPS))
	}
	if pm.RDSpend != nil {
		out.RDSpend = *pm.RDSpend
	}
	if pm.Regions != nil {
		out.Regions = int(math.Round(*pm.Regions))
	}
	if pm.RetentionRate != nil {
		out.RetentionRate = *pm.RetentionRate
	}
	for key, dst := range map[string]*string{"name": &out.Name, "industry": &out.Industry, "region": &out.Region} {
		if v := r.Get(key); v.Type == gjson.String {
			*dst = v.String()
		}
	}
	return out
}

// number accepts JSON numbers and numeric strings; everything else is unknown.
func number(r gjson.Result) *float64 {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.String()), 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
