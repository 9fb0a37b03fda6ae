package devbackend

import (
	"regexp"
	"strings"

	"competitive-intel/internal/model"
)

// FallbackInsight is returned when the model produced nothing usable.
func FallbackInsight() model.Insight {
	return model.Insight{
		Text: "No AI insight could be generated. Please check your API key, quota, or try again later.",
		Recommendations: []string{
			"Try refreshing the insight.",
			"Check backend logs for errors.",
			"Ensure your ANTHROPIC_API_KEY is set correctly.",
		},
		Weaknesses: []string{},
	}
}

var (
	insightHeading = regexp.MustCompile(`(?i)^(\*\*)?insight(\*\*)?:`)
	recsHeading    = regexp.MustCompile(`(?i)^(\*\*)?recommendations(\*\*)?:`)
	weakHeading    = regexp.MustCompile(`(?i)^(\*\*)?weaknesses(\*\*)?:`)
	bullet         = regexp.MustCompile(`^([-*]|\d+\.) `)
	bulletPrefix   = regexp.MustCompile(`^([-*]|\d+\.)\s*`)
)

// ParseInsight splits model output written as
//
//	Insight: <paragraph>
//	Recommendations:
//	- ...
//	Weaknesses:
//	- ...
//
// into its sections. Headings may be bold. Lines outside a section are dropped.
func ParseInsight(text string) model.Insight {
	out := model.Insight{Recommendations: []string{}, Weaknesses: []string{}}
	var section string
	var insight []string
	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(line)
		switch {
		case insightHeading.MatchString(l):
			section = "insight"
			insight = insight[:0]
			if rest := strings.TrimSpace(insightHeading.ReplaceAllString(l, "")); rest != "" {
				insight = append(insight, rest)
			}
		case recsHeading.MatchString(l):
			section = "recommendations"
		case weakHeading.MatchString(l):
			section = "weaknesses"
		case section == "recommendations" && bullet.MatchString(l):
			out.Recommendations = append(out.Recommendations, bulletPrefix.ReplaceAllString(l, ""))
		case section == "weaknesses" && bullet.MatchString(l):
			out.Weaknesses = append(out.Weaknesses, bulletPrefix.ReplaceAllString(l, ""))
		case section == "insight" && l != "":
			insight = append(insight, l)
		}
	}
	out.Text = strings.TrimSpace(strings.Join(insight, " "))
	return out
}

func emptyInsight(ins model.Insight) bool {
	return ins.Text == "" && len(ins.Recommendations) == 0 && len(ins.Weaknesses) == 0
}
