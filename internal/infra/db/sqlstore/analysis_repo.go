package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// AnalysisRepository stores analyses. Summary fields are columns; the engine
// details are one JSON document so rule order and absent buckets survive.
type AnalysisRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAnalysisRepository(db *sql.DB, d Dialect) *AnalysisRepository {
	return &AnalysisRepository{db: db, d: d}
}

// Create inserts a new analysis. The record is never updated afterwards.
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) (domain.ID, error) {
	if a.ID == "" {
		return "", errors.New("analysis id is required")
	}
	details, err := json.Marshal(a.Details)
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	q := r.d.Rebind(`
INSERT INTO analyses
  (id, url, created_at, score, total_violations, details_json, report_url)
VALUES (?,?,?,?,?,?,?)`)
	_, err = r.db.ExecContext(ctx, q,
		string(a.ID), a.URL, r.d.timeArg(a.Timestamp),
		a.Summary.Score, a.Summary.TotalViolations,
		string(details), a.ReportURL,
	)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

const analysisColumns = `id, url, created_at, score, total_violations, details_json, report_url`

func (r *AnalysisRepository) FindByID(ctx context.Context, id domain.ID) (*domain.Analysis, error) {
	q := r.d.Rebind(`SELECT ` + analysisColumns + ` FROM analyses WHERE id = ? LIMIT 1`)
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Latest analyses, newest first.
func (r *AnalysisRepository) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	q := r.d.Rebind(`SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*domain.Analysis, error) {
	var (
		a         domain.Analysis
		id        string
		details   []byte
		reportURL sql.NullString
	)
	if err := row.Scan(&id, &a.URL, timeCol{&a.Timestamp}, &a.Summary.Score, &a.Summary.TotalViolations, &details, &reportURL); err != nil {
		return nil, err
	}
	a.ID = domain.ID(id)
	a.ReportURL = reportURL.String
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("%w: decode details of %s: %w", domain.ErrMalformedRecord, id, err)
		}
	}
	return &a, nil
}
