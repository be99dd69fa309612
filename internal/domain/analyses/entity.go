package analyses

import (
	"time"
)

// ID of a stored Analysis
type ID string

// Impact enum reported by the rule engine
const (
	ImpactMinor    = "minor"
	ImpactModerate = "moderate"
	ImpactSerious  = "serious"
	ImpactCritical = "critical"
)

// Node is one DOM location matched by a rule.
type Node struct {
	Target         []string `json:"target"`
	HTML           string   `json:"html,omitempty"`
	FailureSummary string   `json:"failureSummary,omitempty"`
}

// RuleResult is one rule-engine finding.
type RuleResult struct {
	ID          string   `json:"id"`
	Impact      *string  `json:"impact"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description"`
	Help        string   `json:"help"`
	HelpURL     string   `json:"helpUrl"`
	Nodes       []Node   `json:"nodes"`
}

// RuleEngineResult holds the four outcome buckets in engine order.
// A nil bucket means the engine did not report that collection at all.
type RuleEngineResult struct {
	Violations   []RuleResult `json:"violations"`
	Passes       []RuleResult `json:"passes"`
	Incomplete   []RuleResult `json:"incomplete"`
	Inapplicable []RuleResult `json:"inapplicable"`
}

// AuditDetail is the stable shape of a single auditor check.
type AuditDetail struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode,omitempty"`
	DisplayValue     string   `json:"displayValue,omitempty"`
}

// AuditResult is what the auditor returns. Score is fractional (0..1).
type AuditResult struct {
	Score  float64
	Audits map[string]AuditDetail

	// ReportPath points to the raw report on local disk, if the auditor kept one.
	ReportPath string
}

// Summary value object
type Summary struct {
	Score           float64 `json:"score"`
	TotalViolations int     `json:"totalViolations"`
}

// AuditorDetails is the persisted auditor section. Score is a percentage.
type AuditorDetails struct {
	Score  float64                `json:"score"`
	Audits map[string]AuditDetail `json:"audits"`
}

type Details struct {
	Auditor    AuditorDetails   `json:"auditor"`
	RuleEngine RuleEngineResult `json:"ruleEngine"`
}

// Aggregate Root: Analysis
type Analysis struct {
	ID        ID        `json:"id"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Summary   Summary   `json:"summary"`
	Details   Details   `json:"details"`
	ReportURL string    `json:"reportUrl,omitempty"`
}
