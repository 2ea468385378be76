package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/printer-snatcher/internal/browser"
	"github.com/xkilldash9x/printer-snatcher/internal/config"
	"github.com/xkilldash9x/printer-snatcher/internal/reachability"
)

// ErrUnreachable is returned when the printer does not answer the
// reachability probe. No browser is launched in that case.
var ErrUnreachable = errors.New("IP address unreachable")

// Step names, in the order failures are reported.
const (
	StepDevice   = "device"
	StepSupplies = "supplies"
	StepTrays    = "trays"
)

const sessionCloseTimeout = 10 * time.Second

// ExtractionError reports which scrape step failed.
type ExtractionError struct {
	Step string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// stepResult is the outcome of one step.
type stepResult struct {
	step string
	err  error
}

type step struct {
	name string
	run  func(ctx context.Context, page browser.Page) error
}

// Snatcher scrapes printers. It holds no per-request state and is safe for
// concurrent use.
type Snatcher struct {
	prober   reachability.Prober
	launcher browser.Launcher
	cfg      config.ScraperConfig
	logger   *zap.Logger
}

// NewSnatcher creates a Snatcher.
func NewSnatcher(prober reachability.Prober, launcher browser.Launcher, cfg config.ScraperConfig, logger *zap.Logger) *Snatcher {
	return &Snatcher{
		prober:   prober,
		launcher: launcher,
		cfg:      cfg,
		logger:   logger.Named("snatcher"),
	}
}

// Snatch checks that host is reachable, launches a browser for this call
// only, and runs the device, supplies and trays steps. Either every step
// succeeds and a complete Record is returned, or the error is ErrUnreachable
// or an *ExtractionError naming the first failed step.
func (s *Snatcher) Snatch(ctx context.Context, host string) (*Record, error) {
	logger := s.logger.With(zap.String("scrape_id", uuid.NewString()), zap.String("host", host))
	start := time.Now()

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	reachable, err := s.prober.Reachable(ctx, host)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Reachability probe failed; treating host as unreachable.", zap.Error(err))
	}
	if !reachable {
		logger.Info("Printer unreachable.")
		return nil, ErrUnreachable
	}

	sess, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(browser.Detach(ctx), sessionCloseTimeout)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			logger.Warn("Failed to close browser session.", zap.Error(err))
		}
	}()
	logger = logger.With(zap.String("session_id", sess.ID()))

	var (
		dev      DeviceInfo
		supplies map[string]string
		trays    TrayReport
	)
	steps := []step{
		{StepDevice, func(ctx context.Context, page browser.Page) (err error) {
			dev, err = extractDevice(ctx, page, s.cfg.Scheme, host)
			return err
		}},
		{StepSupplies, func(ctx context.Context, page browser.Page) (err error) {
			supplies, err = extractSupplies(ctx, page, s.cfg.Scheme, host)
			return err
		}},
		{StepTrays, func(ctx context.Context, page browser.Page) (err error) {
			te := &trayExtractor{page: page, maxIndex: s.cfg.MaxTrayIndex, logger: logger}
			trays, err = te.extract(ctx, s.cfg.Scheme, host)
			return err
		}},
	}

	results := s.runSteps(ctx, sess, steps, logger)
	if err := firstFailure(results); err != nil {
		logger.Info("Scrape failed.", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	rec := assemble(host, dev, supplies, trays)
	logger.Info("Scrape complete.",
		zap.String("model", rec.Model),
		zap.Int("trays", len(rec.Trays)),
		zap.Int("supplies", len(rec.Supplies)),
		zap.Duration("duration", time.Since(start)))
	return rec, nil
}

// runSteps runs every step to completion, each on its own tab, and returns
// the results in step order.
func (s *Snatcher) runSteps(ctx context.Context, sess browser.Session, steps []step, logger *zap.Logger) []stepResult {
	results := make([]stepResult, len(steps))

	if !s.cfg.ConcurrentSteps {
		for i, st := range steps {
			results[i] = runStep(ctx, sess, st, logger)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, st := range steps {
		wg.Add(1)
		go func(i int, st step) {
			defer wg.Done()
			results[i] = runStep(ctx, sess, st, logger)
		}(i, st)
	}
	wg.Wait()
	return results
}

func runStep(ctx context.Context, sess browser.Session, st step, logger *zap.Logger) (res stepResult) {
	res.step = st.name
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
		}
		if res.err != nil {
			logger.Debug("Step failed.", zap.String("step", st.name), zap.Error(res.err))
		}
	}()

	page, err := sess.NewPage(ctx)
	if err != nil {
		res.err = err
		return res
	}
	defer page.Close()

	res.err = st.run(ctx, page)
	return res
}

func firstFailure(results []stepResult) error {
	for _, r := range results {
		if r.err != nil {
			return &ExtractionError{Step: r.step, Err: r.err}
		}
	}
	return nil
}
