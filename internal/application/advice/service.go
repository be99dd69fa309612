package advice

import (
	"context"
	"errors"

	"github.com/KAMLESH7939/backend-inclusight/internal/application/analyses"
	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/advice"
	danalyses "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// Service produces remediation advice for a stored analysis.
type Service struct {
	analyses *analyses.Service
	advisor  domain.Advisor
}

func NewService(a *analyses.Service, advisor domain.Advisor) *Service {
	return &Service{analyses: a, advisor: advisor}
}

// Advise returns a JSON advice document for the analysis.
func (s *Service) Advise(ctx context.Context, id danalyses.ID) (string, error) {
	if s.advisor == nil {
		return "", errors.New("no advisor configured")
	}
	a, err := s.analyses.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.advisor.Advise(ctx, a)
}

// Advisor returns the configured advisor.
func (s *Service) Advisor() domain.Advisor { return s.advisor }
