package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// maxPromptViolations caps how many violations are sent to the model.
const maxPromptViolations = 25

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior web accessibility consultant (WCAG 2.1 AA). You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase priority values: critical, serious, moderate, minor.
- counts.total must equal counts.critical + counts.serious + counts.moderate + counts.minor.
- items is an array ordered by priority, most urgent first; one item per rule id.
- Each item names the rule, the affected selectors (at most 5) and a concrete fix.
- Base every item on the violations provided. Do not invent rules that are not listed.

Schema (example with empty values):
{
  "url": "<string>",
  "score": 0,
  "counts": {"critical": 0, "serious": 0, "moderate": 0, "minor": 0, "total": 0},
  "items": [
    {
      "rule": "<string>",
      "priority": "<critical|serious|moderate|minor>",
      "summary": "<string>",
      "selectors": ["<string>"],
      "fix": "<string>",
      "helpUrl": "<string>"
    }
  ],
  "advice": "<string>"
}`
}

type promptViolation struct {
	Rule      string   `json:"rule"`
	Impact    string   `json:"impact,omitempty"`
	Help      string   `json:"help"`
	HelpURL   string   `json:"helpUrl,omitempty"`
	Selectors []string `json:"selectors,omitempty"`
}

// GetUserPrompt builds a compact user message around one analysis.
func GetUserPrompt(a *analyses.Analysis) string {
	vs := a.Details.RuleEngine.Violations
	if len(vs) > maxPromptViolations {
		vs = vs[:maxPromptViolations]
	}
	list := make([]promptViolation, 0, len(vs))
	for _, v := range vs {
		pv := promptViolation{Rule: v.ID, Help: v.Help, HelpURL: v.HelpURL, Selectors: selectors(v.Nodes, 5)}
		if v.Impact != nil {
			pv.Impact = *v.Impact
		}
		list = append(list, pv)
	}
	b, _ := json.Marshal(list)
	return fmt.Sprintf("Prioritize remediation for %s (accessibility score %v/100, %d violations). Respond with the JSON per schema. Violations: %s",
		a.URL, a.Summary.Score, a.Summary.TotalViolations, b)
}

func selectors(nodes []analyses.Node, n int) []string {
	out := make([]string, 0, n)
	for _, node := range nodes {
		if len(out) == n {
			break
		}
		out = append(out, strings.Join(node.Target, " "))
	}
	return out
}
