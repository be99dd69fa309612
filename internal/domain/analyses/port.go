package analyses

import (
	"context"
	"errors"
)

// ErrMalformedRecord is wrapped by repositories when a stored analysis
// cannot be decoded.
var ErrMalformedRecord = errors.New("malformed analysis record")

// Repository port (persistence for analyses). FindByID returns (nil, nil)
// when no record exists.
type Repository interface {
	Create(ctx context.Context, a *Analysis) (ID, error)
	FindByID(ctx context.Context, id ID) (*Analysis, error)
	Latest(ctx context.Context, limit int) ([]*Analysis, error)
}

// Page is a navigated browser tab. Evaluate awaits promises and decodes the
// JSON value of the expression into res (res may be nil).
type Page interface {
	Evaluate(ctx context.Context, expression string, res any) error
}

// Session is a scoped render session. Release must be called on every exit
// path; calling it more than once is safe.
type Session interface {
	URL() string
	Page() Page
	Release() error
	Released() bool
}

// SessionFactory acquires render sessions.
type SessionFactory interface {
	Acquire(ctx context.Context, target string) (Session, error)
}

// Auditor port: whole-page audit in its own browser process.
type Auditor interface {
	Audit(ctx context.Context, target string) (AuditResult, error)
}

// RuleEngine port: DOM rule evaluation against a live session.
type RuleEngine interface {
	Evaluate(ctx context.Context, s Session) (RuleEngineResult, error)
}

// ArtifactStore port (object storage for raw reports and exports)
type ArtifactStore interface {
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}
