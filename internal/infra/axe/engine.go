package axe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// ErrSessionReleased is returned when evaluation is attempted on a torn down session.
var ErrSessionReleased = errors.New("render session already released")

// Engine runs axe-core inside the page of a render session.
type Engine struct {
	// Script is the axe-core source injected before every run.
	Script string
	// RunOnly restricts evaluation to the given tags (e.g. "wcag2a"). Empty means all rules.
	RunOnly []string
}

func (e *Engine) Evaluate(ctx context.Context, s domain.Session) (domain.RuleEngineResult, error) {
	if s == nil || s.Released() || s.Page() == nil {
		return domain.RuleEngineResult{}, domain.E(domain.KindRuleEngine, "axe evaluate", ErrSessionReleased)
	}
	if strings.TrimSpace(e.Script) == "" {
		return domain.RuleEngineResult{}, domain.Errorf(domain.KindRuleEngine, "axe evaluate", "axe-core script not loaded")
	}
	page := s.Page()

	var injected bool
	if err := page.Evaluate(ctx, e.Script+"\n;true", &injected); err != nil {
		return domain.RuleEngineResult{}, domain.E(domain.KindRuleEngine, "inject axe-core", err)
	}

	expr, err := e.runExpression()
	if err != nil {
		return domain.RuleEngineResult{}, domain.E(domain.KindRuleEngine, "axe options", err)
	}
	var payload string
	if err := page.Evaluate(ctx, expr, &payload); err != nil {
		return domain.RuleEngineResult{}, domain.E(domain.KindRuleEngine, "axe.run", err)
	}

	res, err := Decode([]byte(payload))
	if err != nil {
		return domain.RuleEngineResult{}, domain.E(domain.KindRuleEngine, "decode axe results", err)
	}
	return res, nil
}

// runExpression builds the script that runs axe and returns its buckets as a JSON string.
func (e *Engine) runExpression() (string, error) {
	opts := map[string]any{}
	if len(e.RunOnly) > 0 {
		opts["runOnly"] = map[string]any{"type": "tag", "values": e.RunOnly}
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`axe.run(document, %s).then(r => JSON.stringify({
  violations: r.violations,
  passes: r.passes,
  incomplete: r.incomplete,
  inapplicable: r.inapplicable
}))`, b), nil
}

type rawResults struct {
	Violations   []rawRule `json:"violations"`
	Passes       []rawRule `json:"passes"`
	Incomplete   []rawRule `json:"incomplete"`
	Inapplicable []rawRule `json:"inapplicable"`
}

type rawRule struct {
	ID          string    `json:"id"`
	Impact      *string   `json:"impact"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
	Help        string    `json:"help"`
	HelpURL     string    `json:"helpUrl"`
	Nodes       []rawNode `json:"nodes"`
}

type rawNode struct {
	Target         []json.RawMessage `json:"target"`
	HTML           string            `json:"html"`
	FailureSummary string            `json:"failureSummary"`
}

// Decode converts the raw axe-core JSON into the stable internal shape.
// Missing buckets stay nil; present but empty buckets become empty slices.
func Decode(data []byte) (domain.RuleEngineResult, error) {
	var raw rawResults
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.RuleEngineResult{}, err
	}
	violations, err := convertRules(raw.Violations)
	if err != nil {
		return domain.RuleEngineResult{}, err
	}
	passes, err := convertRules(raw.Passes)
	if err != nil {
		return domain.RuleEngineResult{}, err
	}
	incomplete, err := convertRules(raw.Incomplete)
	if err != nil {
		return domain.RuleEngineResult{}, err
	}
	inapplicable, err := convertRules(raw.Inapplicable)
	if err != nil {
		return domain.RuleEngineResult{}, err
	}
	return domain.RuleEngineResult{
		Violations:   violations,
		Passes:       passes,
		Incomplete:   incomplete,
		Inapplicable: inapplicable,
	}, nil
}

func convertRules(in []rawRule) ([]domain.RuleResult, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]domain.RuleResult, 0, len(in))
	for _, r := range in {
		nodes := make([]domain.Node, 0, len(r.Nodes))
		for _, n := range r.Nodes {
			target, err := flattenTarget(n.Target)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.ID, err)
			}
			nodes = append(nodes, domain.Node{Target: target, HTML: n.HTML, FailureSummary: n.FailureSummary})
		}
		out = append(out, domain.RuleResult{
			ID:          r.ID,
			Impact:      r.Impact,
			Tags:        r.Tags,
			Description: r.Description,
			Help:        r.Help,
			HelpURL:     r.HelpURL,
			Nodes:       nodes,
		})
	}
	return out, nil
}

// flattenTarget accepts axe selectors, which are strings or, for elements
// inside shadow roots, arrays of strings walked from the host inwards.
func flattenTarget(parts []json.RawMessage) ([]string, error) {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		var s string
		if err := json.Unmarshal(p, &s); err == nil {
			out = append(out, s)
			continue
		}
		var chain []string
		if err := json.Unmarshal(p, &chain); err != nil {
			return nil, fmt.Errorf("unsupported target selector %s", string(p))
		}
		out = append(out, strings.Join(chain, " >>> "))
	}
	return out, nil
}
