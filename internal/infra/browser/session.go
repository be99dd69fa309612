package browser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// Browser is one launched browser process.
type Browser interface {
	// Open navigates a new page to target and waits until idle is reached.
	Open(ctx context.Context, target string, idle IdleCondition) (domain.Page, error)
	Close() error
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// IdleCondition describes when a page counts as settled: no more than
// MaxInflight requests in flight for at least Quiet.
type IdleCondition struct {
	MaxInflight int
	Quiet       time.Duration
}

// NetworkIdle0 matches the usual "networkidle0" definition.
var NetworkIdle0 = IdleCondition{MaxInflight: 0, Quiet: 500 * time.Millisecond}

// Session owns one browser and one navigated page. It implements domain.Session.
type Session struct {
	target  string
	browser Browser
	page    domain.Page
	logger  *slog.Logger

	once     sync.Once
	mu       sync.Mutex
	released bool
	closeErr error
}

func (s *Session) URL() string { return s.target }

func (s *Session) Page() domain.Page { return s.page }

// Release closes the browser. Only the first call does any work.
func (s *Session) Release() error {
	s.once.Do(func() {
		err := s.browser.Close()
		s.mu.Lock()
		s.released = true
		s.closeErr = err
		s.mu.Unlock()
		if err != nil && s.logger != nil {
			s.logger.Warn("browser close failed", "url", s.target, "error", err)
		}
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

func (s *Session) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Factory acquires render sessions. It implements domain.SessionFactory.
type Factory struct {
	Launcher          Launcher
	NavigationTimeout time.Duration
	Idle              IdleCondition
	Logger            *slog.Logger
}

// Acquire validates target, launches a browser and navigates a page to it.
// On any failure after launch the browser is closed before returning.
func (f *Factory) Acquire(ctx context.Context, target string) (domain.Session, error) {
	if _, err := domain.ParseTarget(target); err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)

	b, err := f.Launcher.Launch(ctx)
	if err != nil {
		return nil, domain.E(domain.KindResourceAcquisition, "launch browser", err)
	}
	s := &Session{target: target, browser: b, logger: f.Logger}

	timeout := f.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := b.Open(navCtx, target, f.Idle)
	if err != nil {
		_ = s.Release()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return nil, domain.E(domain.KindNavigationTimeout, "navigate", err)
		}
		return nil, domain.E(domain.KindResourceAcquisition, "navigate", err)
	}
	s.page = page

	if f.Logger != nil {
		f.Logger.Debug("render session ready", "url", target)
	}
	return s, nil
}
