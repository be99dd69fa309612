package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/failures"
)

// FailureRepository is the failure journal.
type FailureRepository struct {
	db *sql.DB
	d  Dialect
}

func NewFailureRepository(db *sql.DB, d Dialect) *FailureRepository {
	return &FailureRepository{db: db, d: d}
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const base = `INSERT INTO analysis_failures (url, kind, phase, message, created_at) VALUES (?,?,?,?,?)`
	msg := f.Message
	if len(msg) > 4000 {
		msg = msg[:4000]
	}
	args := []any{stringOrDash(f.URL), stringOrDash(f.Kind), stringOrDash(f.Phase), stringOrDash(strings.TrimSpace(msg)), r.d.timeArg(f.CreatedAt)}

	if r.d.Returning {
		return r.db.QueryRowContext(ctx, r.d.Rebind(base+` RETURNING id`), args...).Scan(&f.ID)
	}
	res, err := r.db.ExecContext(ctx, r.d.Rebind(base), args...)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

// Latest journal entries, newest first.
func (r *FailureRepository) Latest(ctx context.Context, limit int) ([]*domain.Failure, error) {
	q := r.d.Rebind(`
SELECT id, url, kind, phase, message, created_at
FROM analysis_failures
ORDER BY created_at DESC, id DESC
LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.URL, &f.Kind, &f.Phase, &f.Message, timeCol{&f.CreatedAt}); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
