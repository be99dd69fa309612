package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// Item is one prioritized remediation entry.
type Item struct {
	Rule      string   `json:"rule"`
	Priority  string   `json:"priority"`
	Summary   string   `json:"summary"`
	Selectors []string `json:"selectors"`
	Fix       string   `json:"fix"`
	HelpURL   string   `json:"helpUrl,omitempty"`
}

// Counts per priority. Total is the sum of the four buckets.
type Counts struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

// Advice is the JSON document both advisors produce.
type Advice struct {
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
	Counts Counts  `json:"counts"`
	Items  []Item  `json:"items"`
	Advice string  `json:"advice"`
}

// maxItems keeps the heuristic output compact.
const maxItems = 20

var priorityRank = map[string]int{
	analyses.ImpactCritical: 0,
	analyses.ImpactSerious:  1,
	analyses.ImpactModerate: 2,
	analyses.ImpactMinor:    3,
}

// fixes maps rule id fragments to a concrete remediation.
var fixes = []struct {
	marker string
	fix    string
}{
	{"color-contrast", "Raise the contrast ratio to at least 4.5:1 for body text and 3:1 for large text."},
	{"image-alt", "Give every meaningful <img> an alt attribute; use alt=\"\" for decorative images."},
	{"label", "Associate each form control with a <label for> or an aria-label."},
	{"aria", "Use valid ARIA roles and attributes, and prefer native elements where possible."},
	{"font-size", "Use relative font sizes (rem/em) so text can scale to 200% without loss."},
	{"heading", "Keep a logical heading outline without skipped levels."},
	{"html-has-lang", "Set a lang attribute on the <html> element."},
	{"document-title", "Give the document a descriptive <title>."},
	{"link-name", "Give every link discernible text."},
	{"button-name", "Give every button discernible text."},
}

// Heuristic builds advice from the violation list without calling a model.
type Heuristic struct{}

func (Heuristic) Advise(_ context.Context, a *analyses.Analysis) (string, error) {
	return AnalyzeViolations(a)
}

// AnalyzeViolations orders violations by impact and attaches a fix to each.
func AnalyzeViolations(a *analyses.Analysis) (string, error) {
	if a == nil {
		return "", fmt.Errorf("analysis is nil")
	}
	out := Advice{URL: a.URL, Score: a.Summary.Score}
	items := make([]Item, 0, len(a.Details.RuleEngine.Violations))

	for _, v := range a.Details.RuleEngine.Violations {
		priority := analyses.ImpactMinor
		if v.Impact != nil {
			if _, ok := priorityRank[*v.Impact]; ok {
				priority = *v.Impact
			}
		}
		switch priority {
		case analyses.ImpactCritical:
			out.Counts.Critical++
		case analyses.ImpactSerious:
			out.Counts.Serious++
		case analyses.ImpactModerate:
			out.Counts.Moderate++
		default:
			out.Counts.Minor++
		}
		items = append(items, Item{
			Rule:      v.ID,
			Priority:  priority,
			Summary:   v.Help,
			Selectors: selectors(v.Nodes, 5),
			Fix:       fixFor(v),
			HelpURL:   v.HelpURL,
		})
	}

	// rule order is kept within a priority bucket
	sort.SliceStable(items, func(i, j int) bool {
		return priorityRank[items[i].Priority] < priorityRank[items[j].Priority]
	})
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	out.Items = items
	out.Counts.Total = out.Counts.Critical + out.Counts.Serious + out.Counts.Moderate + out.Counts.Minor

	switch {
	case out.Counts.Critical > 0:
		out.Advice = "Fix critical issues first: they block assistive technology users from completing tasks. Re-run the analysis after each batch."
	case out.Counts.Serious+out.Counts.Moderate > 0:
		out.Advice = "Address serious and moderate issues, starting with contrast and form labelling, then re-test with a screen reader."
	case out.Counts.Total > 0:
		out.Advice = "Only minor issues remain. Clean them up and add accessibility checks to CI."
	default:
		out.Advice = "No violations detected. Keep automated checks in CI and complement them with manual keyboard and screen reader testing."
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal advice: %w", err)
	}
	return string(b), nil
}

func fixFor(v analyses.RuleResult) string {
	for _, f := range fixes {
		if strings.Contains(v.ID, f.marker) {
			return f.fix
		}
	}
	if v.Help != "" {
		return v.Help
	}
	return "See the rule documentation for remediation steps."
}
