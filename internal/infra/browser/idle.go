package browser

import (
	"context"
	"sync"
	"time"
)

// idleTracker counts in-flight requests by id and remembers when that count
// last changed.
type idleTracker struct {
	mu         sync.Mutex
	inflight   map[string]struct{}
	lastChange time.Time
	now        func() time.Time
}

func newIdleTracker() *idleTracker {
	return &idleTracker{inflight: make(map[string]struct{}), lastChange: time.Now(), now: time.Now}
}

// started records a request. Redirects reuse the id and are not double counted.
func (t *idleTracker) started(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; ok {
		return
	}
	t.inflight[id] = struct{}{}
	t.lastChange = t.now()
}

func (t *idleTracker) finished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.lastChange = t.now()
}

func (t *idleTracker) idle(cond IdleCondition) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) <= cond.MaxInflight && t.now().Sub(t.lastChange) >= cond.Quiet
}

// wait blocks until cond holds or ctx is done.
func (t *idleTracker) wait(ctx context.Context, cond IdleCondition) error {
	tick := cond.Quiet / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if t.idle(cond) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
