package failures

import "time"

// Phase of the analysis pipeline in which a failure happened.
const (
	PhaseValidate = "validate"
	PhaseAudit    = "audit"
	PhaseRules    = "rules"
	PhaseStore    = "store"
)

// Failure represents a persisted analysis failure entry
type Failure struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	Phase     string    `json:"phase,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
