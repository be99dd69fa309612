package advice

import (
	"context"

	"github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// Advisor turns a stored analysis into remediation advice. The returned
// string is a JSON object.
type Advisor interface {
	Advise(ctx context.Context, a *analyses.Analysis) (string, error)
}
