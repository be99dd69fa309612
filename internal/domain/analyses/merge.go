package analyses

import (
	"math"
	"strings"
	"time"
)

// MaxRecommendations caps the recommendation list.
const MaxRecommendations = 5

// Category of violation surfaced to the UI.
type Category string

const (
	CategoryContrast Category = "contrast"
	CategoryFontSize Category = "fontSize"
	CategoryLabels   Category = "labels"
)

// categoryMarkers maps a substring of a violation id to its category.
// Several markers may point at the same category.
var categoryMarkers = []struct {
	Marker   string
	Category Category
}{
	{"color-contrast", CategoryContrast},
	{"font-size", CategoryFontSize},
	{"label", CategoryLabels},
	{"aria", CategoryLabels},
}

// IssueCounts per category
type IssueCounts struct {
	Contrast int `json:"contrast"`
	FontSize int `json:"fontSize"`
	Labels   int `json:"labels"`
}

func (c *IssueCounts) add(cat Category) {
	switch cat {
	case CategoryContrast:
		c.Contrast++
	case CategoryFontSize:
		c.FontSize++
	case CategoryLabels:
		c.Labels++
	}
}

// Merged is the outcome of Merge: the record to persist plus the derived
// metrics reported to the caller.
type Merged struct {
	Analysis        *Analysis
	Issues          IssueCounts
	PassedChecks    int
	Recommendations []string
}

// Merge combines auditor and rule engine output into one Analysis. The
// fractional auditor score is converted to a percentage here and nowhere else.
// Merge performs no I/O and does not reorder or deduplicate rule results.
func Merge(target string, at time.Time, audit AuditResult, rules RuleEngineResult) Merged {
	score := ScorePercent(audit.Score)

	a := &Analysis{
		URL:       target,
		Timestamp: at,
		Summary: Summary{
			Score:           score,
			TotalViolations: len(rules.Violations),
		},
		Details: Details{
			Auditor: AuditorDetails{
				Score:  score,
				Audits: audit.Audits,
			},
			RuleEngine: rules,
		},
	}

	return Merged{
		Analysis:        a,
		Issues:          CountIssues(rules.Violations),
		PassedChecks:    len(rules.Passes),
		Recommendations: Recommendations(rules.Violations),
	}
}

// ScorePercent turns a 0..1 score into a rounded 0..100 percentage.
func ScorePercent(fraction float64) float64 {
	return math.Round(fraction * 100)
}

// CountIssues counts each violation once in every category it matches.
func CountIssues(violations []RuleResult) IssueCounts {
	var c IssueCounts
	for _, v := range violations {
		seen := make(map[Category]bool, len(categoryMarkers))
		for _, m := range categoryMarkers {
			if seen[m.Category] || !strings.Contains(v.ID, m.Marker) {
				continue
			}
			seen[m.Category] = true
			c.add(m.Category)
		}
	}
	return c
}

// Recommendations returns the first MaxRecommendations non-empty help texts
// in violation order.
func Recommendations(violations []RuleResult) []string {
	out := make([]string, 0, MaxRecommendations)
	for _, v := range violations {
		if len(out) == MaxRecommendations {
			break
		}
		if v.Help == "" {
			continue
		}
		out = append(out, v.Help)
	}
	return out
}
