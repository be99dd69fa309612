package prompt

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

func impact(s string) *string { return &s }

func sampleAnalysis() *analyses.Analysis {
	return &analyses.Analysis{
		URL:     "https://example.com",
		Summary: analyses.Summary{Score: 71, TotalViolations: 3},
		Details: analyses.Details{RuleEngine: analyses.RuleEngineResult{Violations: []analyses.RuleResult{
			{ID: "region", Impact: impact("moderate"), Help: "All page content should be contained by landmarks"},
			{ID: "color-contrast", Impact: impact("serious"), Help: "Elements must have sufficient color contrast",
				Nodes: []analyses.Node{{Target: []string{"#hero", "p"}}}},
			{ID: "label", Impact: impact("critical"), Help: "Form elements must have labels"},
			{ID: "odd", Impact: nil, Help: "Unknown impact"},
		}}},
	}
}

func TestHeuristicAdvice(t *testing.T) {
	raw, err := Heuristic{}.Advise(context.Background(), sampleAnalysis())
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	var out Advice
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("advice is not JSON: %v", err)
	}
	got := []string{}
	for _, it := range out.Items {
		got = append(got, it.Rule)
	}
	if strings.Join(got, ",") != "label,color-contrast,region,odd" {
		t.Fatalf("unexpected order: %v", got)
	}
	if out.Counts.Total != 4 || out.Counts.Critical != 1 || out.Counts.Minor != 1 {
		t.Fatalf("counts: %+v", out.Counts)
	}
	if out.Items[1].Selectors[0] != "#hero p" || !strings.Contains(out.Items[1].Fix, "4.5:1") {
		t.Fatalf("contrast item: %+v", out.Items[1])
	}
	if !strings.HasPrefix(out.Advice, "Fix critical") {
		t.Fatalf("advice: %q", out.Advice)
	}
}

func TestHeuristicNoViolations(t *testing.T) {
	raw, err := AnalyzeViolations(&analyses.Analysis{URL: "https://example.com", Summary: analyses.Summary{Score: 100}})
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if !strings.Contains(raw, `"items":[]`) || !strings.Contains(raw, "No violations detected") {
		t.Fatalf("unexpected advice: %s", raw)
	}
}

func TestUserPromptCarriesViolations(t *testing.T) {
	p := GetUserPrompt(sampleAnalysis())
	for _, want := range []string{"https://example.com", "71/100", `"rule":"label"`, `"impact":"critical"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q: %s", want, p)
		}
	}
}
