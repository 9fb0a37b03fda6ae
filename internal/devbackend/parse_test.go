package devbackend

import (
	"strings"
	"testing"
)

func TestParseInsight(t *testing.T) {
	text := strings.Join([]string{
		"**Insight:** Acme outgrows you",
		"on revenue and retention.",
		"",
		"Recommendations:",
		"1. Expand to APAC",
		"- Invest in support",
		"* Launch loyalty program",
		"not a bullet",
		"**Weaknesses:**",
		"- Low NPS",
	}, "\n")

	got := ParseInsight(text)
	if got.Text != "Acme outgrows you on revenue and retention." {
		t.Errorf("text = %q", got.Text)
	}
	wantRecs := []string{"Expand to APAC", "Invest in support", "Launch loyalty program"}
	if strings.Join(got.Recommendations, "|") != strings.Join(wantRecs, "|") {
		t.Errorf("recommendations = %q", got.Recommendations)
	}
	if len(got.Weaknesses) != 1 || got.Weaknesses[0] != "Low NPS" {
		t.Errorf("weaknesses = %q", got.Weaknesses)
	}
}

func TestParseInsightUnstructured(t *testing.T) {
	got := ParseInsight("[AI error: quota exceeded]")
	if !emptyInsight(got) {
		t.Errorf("got %+v, want empty", got)
	}
	if got.Recommendations == nil || got.Weaknesses == nil {
		t.Errorf("lists should be non-nil")
	}
}
