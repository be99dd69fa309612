package browser

import (
	"context"
	"errors"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// ChromeLauncher starts a dedicated headless Chrome per Launch call.
type ChromeLauncher struct {
	ExecPath     string
	NoSandbox    bool
	Headful      bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	if l.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if l.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.UserAgent))
	}
	if l.WindowWidth > 0 && l.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(l.WindowWidth, l.WindowHeight))
	}

	// The browser lives until Close, not until the caller's context ends.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	b := &chromeBrowser{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}

	// First Run on the tab context allocates the browser; it must not carry a deadline.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			_ = b.Close()
			return nil, err
		}
	case <-ctx.Done():
		_ = b.Close()
		return nil, ctx.Err()
	}
	return b, nil
}

type chromeBrowser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func (b *chromeBrowser) Open(ctx context.Context, target string, idle IdleCondition) (domain.Page, error) {
	tracker := newIdleTracker()
	chromedp.ListenTarget(b.ctx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			tracker.started(string(e.RequestID))
		case *network.EventLoadingFinished:
			tracker.finished(string(e.RequestID))
		case *network.EventLoadingFailed:
			tracker.finished(string(e.RequestID))
		}
	})

	if err := b.run(ctx, network.Enable(), chromedp.Navigate(target)); err != nil {
		return nil, err
	}
	if err := tracker.wait(ctx, idle); err != nil {
		return nil, err
	}
	return &chromePage{b: b}, nil
}

// Close shuts the tab and kills the browser process.
func (b *chromeBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancelTab()
	b.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run executes actions on the tab while honouring the caller's context.
func (b *chromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

type chromePage struct {
	b *chromeBrowser
}

func (p *chromePage) Evaluate(ctx context.Context, expression string, res any) error {
	return p.b.run(ctx, chromedp.Evaluate(expression, res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}
