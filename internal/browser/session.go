// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultNavigationTimeout = 5 * time.Second

type pageConfig struct {
	navigationTimeout time.Duration
	idleQuietPeriod   time.Duration
}

// chromeSession owns one browser process.
type chromeSession struct {
	id            string
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	release       func()
	pageCfg       pageConfig
	logger        *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (s *chromeSession) ID() string { return s.id }

// NewPage opens a new tab with network tracking enabled.
func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	tracker := newIdleTracker(s.logger)
	chromedp.ListenTarget(tabCtx, tracker.handleEvent)

	if err := runBounded(ctx, tabCtx, network.Enable()); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	return &chromePage{
		ctx:     tabCtx,
		cancel:  tabCancel,
		tracker: tracker,
		cfg:     s.pageCfg,
		logger:  s.logger,
	}, nil
}

// Close shuts the browser down and waits for the process to exit, or for
// ctx to end, whichever comes first. The browser slot is released once the
// process is gone.
func (s *chromeSession) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		done := make(chan error, 1)
		go func() {
			err := chromedp.Cancel(s.browserCtx)
			s.browserCancel()
			// Blocks until the Chrome process has exited.
			s.allocCancel()
			s.release()
			done <- err
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		case <-ctx.Done():
			s.closeErr = fmt.Errorf("browser did not exit in time: %w", ctx.Err())
		}

		if s.closeErr != nil {
			s.logger.Warn("Browser session closed with error.", zap.Error(s.closeErr))
		} else {
			s.logger.Debug("Browser session closed.")
		}
	})
	return s.closeErr
}

// chromePage is one tab.
type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *idleTracker
	cfg     pageConfig
	logger  *zap.Logger
}

// Navigate loads url and waits for network idle. Both are bounded by the
// navigation timeout.
func (p *chromePage) Navigate(ctx context.Context, url string) error {
	timeout := p.cfg.navigationTimeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}

	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	navCtx, navCancel := context.WithTimeout(runCtx, timeout)
	defer navCancel()

	p.tracker.reset()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	if err := p.tracker.Wait(navCtx, p.cfg.idleQuietPeriod); err != nil {
		return fmt.Errorf("%s did not settle: %w", url, err)
	}
	p.logger.Debug("Page loaded.", zap.String("url", url))
	return nil
}

// textResult is what the query scripts return.
type textResult struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

const (
	textScript = `(() => {
	const el = document.querySelector(%s);
	return el ? {found: true, text: el.textContent || ""} : {found: false, text: ""};
})()`
	textAllScript = `Array.from(document.querySelectorAll(%s), el => el.textContent || "")`
	existsScript  = `document.querySelector(%s) !== null`
)

func (p *chromePage) eval(ctx context.Context, script, selector string, out interface{}) error {
	quoted, err := json.MarshalToString(selector)
	if err != nil {
		return fmt.Errorf("failed to encode selector %q: %w", selector, err)
	}
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(script, quoted), out)); err != nil {
		return fmt.Errorf("query %q failed: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var res textResult
	if err := p.eval(ctx, textScript, selector, &res); err != nil {
		return "", err
	}
	if !res.Found {
		return "", fmt.Errorf("%q: %w", selector, ErrElementNotFound)
	}
	return res.Text, nil
}

func (p *chromePage) TextAll(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	if err := p.eval(ctx, textAllScript, selector, &texts); err != nil {
		return nil, err
	}
	if texts == nil {
		texts = []string{}
	}
	return texts, nil
}

func (p *chromePage) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	if err := p.eval(ctx, existsScript, selector, &found); err != nil {
		return false, err
	}
	return found, nil
}

// Close closes the tab. The browser keeps running.
func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
