// internal/browser/idle.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
)

// idleTracker counts in-flight network requests for one tab so navigation
// can wait for the equivalent of "networkidle0": no request outstanding for
// a whole quiet period.
type idleTracker struct {
	logger *zap.Logger
	now    func() time.Time

	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

func newIdleTracker(logger *zap.Logger) *idleTracker {
	t := &idleTracker{
		logger:   logger,
		now:      time.Now,
		inflight: make(map[network.RequestID]struct{}),
	}
	t.lastActivity = t.now()
	return t
}

// handleEvent is registered with chromedp.ListenTarget. It must not block.
func (t *idleTracker) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		// A redirect reuses the request ID; the entry simply stays in flight.
		t.begin(e.RequestID)
	case *network.EventLoadingFinished:
		t.end(e.RequestID)
	case *network.EventLoadingFailed:
		t.end(e.RequestID)
	}
}

func (t *idleTracker) begin(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.lastActivity = t.now()
}

func (t *idleTracker) end(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.lastActivity = t.now()
}

// reset forgets requests from a previous document. Called before each
// navigation.
func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight = make(map[network.RequestID]struct{})
	t.lastActivity = t.now()
}

func (t *idleTracker) snapshot() (int, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight), t.lastActivity
}

// Wait blocks until nothing has been in flight for quietPeriod, or ctx ends.
func (t *idleTracker) Wait(ctx context.Context, quietPeriod time.Duration) error {
	if quietPeriod <= 0 {
		quietPeriod = 500 * time.Millisecond
	}
	ticker := time.NewTicker(quietPeriod / 4)
	defer ticker.Stop()

	for {
		inflight, last := t.snapshot()
		if inflight == 0 && t.now().Sub(last) >= quietPeriod {
			return nil
		}

		select {
		case <-ctx.Done():
			t.logger.Debug("Gave up waiting for network idle.", zap.Int("inflight_requests", inflight), zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
