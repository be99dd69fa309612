package lighthouse

import (
	"encoding/json"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

type report struct {
	RuntimeError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"runtimeError"`
	Categories map[string]struct {
		Score *float64 `json:"score"`
	} `json:"categories"`
	Audits map[string]struct {
		ID               string   `json:"id"`
		Title            string   `json:"title"`
		Description      string   `json:"description"`
		Score            *float64 `json:"score"`
		ScoreDisplayMode string   `json:"scoreDisplayMode"`
		DisplayValue     string   `json:"displayValue"`
	} `json:"audits"`
}

// ParseReport extracts the accessibility score and audit details from a
// Lighthouse JSON report. The score stays fractional.
func ParseReport(data []byte) (domain.AuditResult, error) {
	var rep report
	if err := json.Unmarshal(data, &rep); err != nil {
		return domain.AuditResult{}, domain.E(domain.KindAuditEngine, "parse lighthouse report", err)
	}
	if rep.RuntimeError != nil && rep.RuntimeError.Code != "" {
		return domain.AuditResult{}, domain.Errorf(domain.KindAuditEngine, "lighthouse", "%s: %s", rep.RuntimeError.Code, rep.RuntimeError.Message)
	}
	cat, ok := rep.Categories["accessibility"]
	if !ok {
		return domain.AuditResult{}, domain.Errorf(domain.KindAuditEngine, "lighthouse", "no accessibility category in result")
	}
	if cat.Score == nil {
		return domain.AuditResult{}, domain.Errorf(domain.KindAuditEngine, "lighthouse", "accessibility category has no score")
	}
	score := *cat.Score
	if score < 0 || score > 1 {
		return domain.AuditResult{}, domain.Errorf(domain.KindAuditEngine, "lighthouse", "accessibility score %v out of range", score)
	}

	audits := make(map[string]domain.AuditDetail, len(rep.Audits))
	for key, a := range rep.Audits {
		id := a.ID
		if id == "" {
			id = key
		}
		audits[key] = domain.AuditDetail{
			ID:               id,
			Title:            a.Title,
			Description:      a.Description,
			Score:            a.Score,
			ScoreDisplayMode: a.ScoreDisplayMode,
			DisplayValue:     a.DisplayValue,
		}
	}
	return domain.AuditResult{Score: score, Audits: audits}, nil
}
