package analyses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/KAMLESH7939/backend-inclusight/internal/application"
	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
	"github.com/KAMLESH7939/backend-inclusight/internal/domain/failures"
	"github.com/KAMLESH7939/backend-inclusight/internal/reporting"
)

// DefaultTimeout bounds one whole analysis (both engines).
const DefaultTimeout = 2 * time.Minute

// Service implements the analysis use-cases.
// Service holds no per-request state and is safe for concurrent use.
type Service struct {
	Repo      domain.Repository
	Sessions  domain.SessionFactory
	Auditor   domain.Auditor
	Rules     domain.RuleEngine
	Failures  failures.Repository  // optional
	Artifacts domain.ArtifactStore // optional
	Encoder   reporting.CSVEncoder
	Clock     application.Clock
	Logger    *slog.Logger

	// Timeout is one deadline shared by both engines.
	Timeout time.Duration
	// Sequential runs the auditor first and the rule engine after it, instead of in parallel.
	Sequential bool
}

// AnalyzeResult is returned to the caller of Analyze.
type AnalyzeResult struct {
	AnalysisID      domain.ID           `json:"analysisId"`
	Score           float64             `json:"score"`
	Issues          domain.IssueCounts  `json:"issues"`
	PassedChecks    int                 `json:"passedChecks"`
	Recommendations []string            `json:"recommendations"`
	Violations      []domain.RuleResult `json:"violations"`
}

// Analyze runs both engines against target, merges and persists the result.
// Nothing is persisted unless both engines succeed.
func (s *Service) Analyze(ctx context.Context, target string) (AnalyzeResult, error) {
	// the parsed URL is only for validation; the record keeps the input as given
	if _, err := domain.ParseTarget(target); err != nil {
		s.recordFailure(target, failures.PhaseValidate, err)
		return AnalyzeResult{}, err
	}
	target = strings.TrimSpace(target)
	start := time.Now()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		audit domain.AuditResult
		rules domain.RuleEngineResult
		first firstFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.Sequential {
		g.SetLimit(1)
	}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return first.set(failures.PhaseAudit, domain.E(domain.KindAuditEngine, "audit", err))
		}
		res, err := s.Auditor.Audit(gctx, target)
		if err != nil {
			return first.set(failures.PhaseAudit, domain.E(domain.KindAuditEngine, "audit", err))
		}
		audit = res
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return first.set(failures.PhaseRules, domain.E(domain.KindRuleEngine, "rules", err))
		}
		res, err := s.evaluateRules(gctx, target)
		if err != nil {
			return first.set(failures.PhaseRules, err)
		}
		rules = res
		return nil
	})

	if err := g.Wait(); err != nil {
		s.discardReport(audit.ReportPath)
		s.recordFailure(target, first.phase, err)
		return AnalyzeResult{}, err
	}

	merged := domain.Merge(target, s.now(), audit, rules)
	a := merged.Analysis
	a.ID = domain.ID(uuid.New().String())
	a.ReportURL = s.archiveReport(ctx, a.ID, audit.ReportPath)

	id, err := s.Repo.Create(ctx, a)
	if err != nil {
		err = domain.E(domain.KindStore, "create analysis", err)
		s.recordFailure(target, failures.PhaseStore, err)
		return AnalyzeResult{}, err
	}

	s.log().Info("analysis finished",
		"id", id,
		"url", target,
		"score", a.Summary.Score,
		"violations", a.Summary.TotalViolations,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	violations := rules.Violations
	if violations == nil {
		violations = []domain.RuleResult{}
	}
	return AnalyzeResult{
		AnalysisID:      id,
		Score:           a.Summary.Score,
		Issues:          merged.Issues,
		PassedChecks:    merged.PassedChecks,
		Recommendations: merged.Recommendations,
		Violations:      violations,
	}, nil
}

// evaluateRules owns the render session: it is released before returning on every path.
func (s *Service) evaluateRules(ctx context.Context, target string) (domain.RuleEngineResult, error) {
	sess, err := s.Sessions.Acquire(ctx, target)
	if err != nil {
		return domain.RuleEngineResult{}, err
	}
	defer func() {
		if rerr := sess.Release(); rerr != nil {
			s.log().Warn("render session release failed", "url", target, "error", rerr)
		}
	}()

	res, err := s.Rules.Evaluate(ctx, sess)
	if err != nil {
		return domain.RuleEngineResult{}, domain.E(domain.KindRuleEngine, "rules", err)
	}
	return res, nil
}

// Get returns a stored analysis or a NotFound error. A record that cannot be
// decoded is an EncodingFailure.
func (s *Service) Get(ctx context.Context, id domain.ID) (*domain.Analysis, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return nil, domain.Errorf(domain.KindNotFound, "get analysis", "analysis %s not found", id)
	}
	a, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrMalformedRecord) {
		return nil, domain.E(domain.KindEncoding, "get analysis", err)
	}
	if err != nil {
		return nil, domain.E(domain.KindStore, "get analysis", err)
	}
	if a == nil {
		return nil, domain.Errorf(domain.KindNotFound, "get analysis", "analysis %s not found", id)
	}
	return a, nil
}

// Latest returns the most recent analyses, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	list, err := s.Repo.Latest(ctx, limit)
	if err != nil {
		return nil, domain.E(domain.KindStore, "latest analyses", err)
	}
	return list, nil
}

// Report is an encoded CSV export.
type Report struct {
	Filename string
	Body     []byte
}

// ExportCSV encodes a stored analysis as CSV.
func (s *Service) ExportCSV(ctx context.Context, id domain.ID) (Report, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	text, err := s.Encoder.Encode(a)
	if err != nil {
		return Report{}, domain.E(domain.KindEncoding, "export csv", err)
	}
	rep := Report{Filename: reporting.Filename(a.ID), Body: []byte(text)}

	if s.Artifacts != nil {
		key := fmt.Sprintf("reports/%s", rep.Filename)
		if _, err := s.Artifacts.Put(ctx, key, "text/csv", rep.Body); err != nil {
			s.log().Warn("csv archive failed", "id", a.ID, "error", err)
		}
	}
	return rep, nil
}

// RecentFailures returns the most recent failure journal entries.
func (s *Service) RecentFailures(ctx context.Context, limit int) ([]*failures.Failure, error) {
	if s.Failures == nil {
		return []*failures.Failure{}, nil
	}
	return s.Failures.Latest(ctx, limit)
}

func (s *Service) archiveReport(ctx context.Context, id domain.ID, path string) string {
	if path == "" {
		return ""
	}
	if s.Artifacts == nil {
		s.discardReport(path)
		return ""
	}
	key := fmt.Sprintf("lighthouse/%s%s", id, filepath.Ext(path))
	url, err := s.Artifacts.UploadAndCleanup(ctx, path, key)
	if err != nil {
		s.discardReport(path)
		s.log().Warn("lighthouse report upload failed", "id", id, "error", err)
		return ""
	}
	return url
}

func (s *Service) discardReport(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log().Warn("failed to remove lighthouse report", "path", path, "error", err)
	}
}

// recordFailure writes to the failure journal with its own short deadline,
// so a cancelled request still leaves a trace.
func (s *Service) recordFailure(target, phase string, err error) {
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "Unknown"
	}
	s.log().Error("analysis failed", "url", target, "phase", phase, "kind", kind, "error", err)

	if s.Failures == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := &failures.Failure{
		URL:       target,
		Kind:      kind,
		Phase:     phase,
		Message:   err.Error(),
		CreatedAt: s.now(),
	}
	if ferr := s.Failures.Save(ctx, f); ferr != nil {
		s.log().Warn("failure journal write failed", "error", ferr)
	}
}

// firstFailure remembers which phase failed first; the sibling's
// cancellation error is not the cause.
type firstFailure struct {
	mu    sync.Mutex
	phase string
}

func (f *firstFailure) set(phase string, err error) error {
	f.mu.Lock()
	if f.phase == "" {
		f.phase = phase
	}
	f.mu.Unlock()
	return err
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
