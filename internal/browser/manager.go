// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/printer-snatcher/internal/config"
)

const defaultLaunchTimeout = 20 * time.Second

// flagSpec is one Chrome command line switch, without the leading dashes.
type flagSpec struct {
	Name  string
	Value interface{}
}

// allocatorFlags lists the switches every launch gets, followed by any extra
// args from configuration. Printers serve self-signed certificates, so TLS
// errors are ignored unless configuration says otherwise.
func allocatorFlags(cfg config.BrowserConfig) []flagSpec {
	flags := []flagSpec{
		{"headless", cfg.Headless},
		{"incognito", true},
		{"disable-gpu", true},
		{"disable-dev-shm-usage", true},
		{"disable-setuid-sandbox", true},
		{"no-sandbox", true},
	}
	if cfg.Headless {
		flags = append(flags, flagSpec{"hide-scrollbars", true}, flagSpec{"mute-audio", true})
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags, flagSpec{"ignore-certificate-errors", true})
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		// key=value switches keep their value; bare switches are booleans.
		if key, value, ok := strings.Cut(arg, "="); ok {
			flags = append(flags, flagSpec{key, value})
			continue
		}
		flags = append(flags, flagSpec{arg, true})
	}
	return flags
}

// DefaultAllocatorOptions builds the exec allocator options for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	}
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Manager launches one headless Chrome per Launch call. An optional
// semaphore caps how many browsers run at once.
type Manager struct {
	browserCfg config.BrowserConfig
	pageCfg    pageConfig
	slots      *semaphore.Weighted
	logger     *zap.Logger
}

// NewManager creates a Manager. It does not start a browser.
func NewManager(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, logger *zap.Logger) *Manager {
	m := &Manager{
		browserCfg: browserCfg,
		pageCfg: pageConfig{
			navigationTimeout: scraperCfg.NavigationTimeout,
			idleQuietPeriod:   scraperCfg.IdleQuietPeriod,
		},
		logger: logger.Named("browser_manager"),
	}
	if browserCfg.MaxSessions > 0 {
		m.slots = semaphore.NewWeighted(int64(browserCfg.MaxSessions))
	}
	return m
}

// Launch starts a fresh browser process. Waiting for a free slot and the
// launch itself both honour ctx; the launch is also bounded by the
// configured launch timeout. The returned Session must be closed.
func (m *Manager) Launch(ctx context.Context) (Session, error) {
	if m.slots != nil {
		if err := m.slots.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for a browser slot: %w", err)
		}
	}
	release := func() {
		if m.slots != nil {
			m.slots.Release(1)
		}
	}

	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id))

	// The process lifetime belongs to the session, not to ctx; Close ends it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), DefaultAllocatorOptions(m.browserCfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logger.Sugar().Errorf),
	)

	timeout := m.browserCfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	launchCtx, launchCancel := context.WithTimeout(ctx, timeout)
	defer launchCancel()

	start := time.Now()
	if err := runBounded(launchCtx, browserCtx); err != nil {
		browserCancel()
		allocCancel()
		release()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Debug("Browser started.", zap.Duration("startup", time.Since(start)))

	return &chromeSession{
		id:            id,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		release:       release,
		pageCfg:       m.pageCfg,
		logger:        logger,
	}, nil
}

// runBounded runs actions on target, giving up when ctx ends first.
//
// The first Run on a chromedp context creates its browser or tab and ties
// that resource to the context Run was given, so it has to be target itself
// rather than a derived context with a deadline. The caller cancels target
// when runBounded reports ctx's error.
func runBounded(ctx, target context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(target, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timed out: %w", ctx.Err())
		}
		return ctx.Err()
	}
}
