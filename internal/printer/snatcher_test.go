package printer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/printer-snatcher/internal/browser"
	"github.com/xkilldash9x/printer-snatcher/internal/config"
	"github.com/xkilldash9x/printer-snatcher/internal/mocks"
	"github.com/xkilldash9x/printer-snatcher/internal/reachability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testScraperConfig(concurrent bool) config.ScraperConfig {
	return config.ScraperConfig{
		NavigationTimeout: time.Second,
		RequestTimeout:    5 * time.Second,
		MaxTrayIndex:      16,
		ConcurrentSteps:   concurrent,
		Scheme:            "https",
	}
}

func reachableProber(ok bool) *mocks.MockProber {
	p := new(mocks.MockProber)
	p.On("Reachable", mock.Anything, testHost).Return(ok, nil)
	return p
}

func healthyBrowser(model string) *mocks.FakeBrowser {
	fb := mocks.NewFakeBrowser()
	fb.Documents[testDeviceURL] = deviceDoc(model)
	fb.Documents[testStatusURL] = statusDoc(1, 2)
	return fb
}

func forEachMode(t *testing.T, fn func(t *testing.T, concurrent bool)) {
	t.Run("Concurrent", func(t *testing.T) { fn(t, true) })
	t.Run("Sequential", func(t *testing.T) { fn(t, false) })
}

func TestSnatch_Success(t *testing.T) {
	forEachMode(t, func(t *testing.T, concurrent bool) {
		fb := healthyBrowser("HP Color LaserJet MFP M577")
		prober := reachableProber(true)
		s := NewSnatcher(prober, fb, testScraperConfig(concurrent), zaptest.NewLogger(t))

		rec, err := s.Snatch(context.Background(), testHost)
		require.NoError(t, err)

		tray := TrayInfo{Status: "OK 50", Capacity: "550", Size: "Letter (8.5x11)", Type: "Plain"}
		want := &Record{
			Host:     testHost,
			Name:     "NPI8C2F1A",
			Type:     TypeColor,
			Model:    "HP Color LaserJet MFP M577",
			Serial:   "JPBCK1234",
			Location: "2nd floor copy room",
			Trays:    map[string]TrayInfo{"Tray 1": tray, "Tray 2": tray},
			Supplies: map[string]string{
				"Black Cartridge":   "80",
				"Cyan Cartridge":    "45",
				"Magenta Cartridge": "12",
			},
			Errors: []string{},
		}
		if diff := cmp.Diff(want, rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}

		sessions := fb.Sessions()
		require.Len(t, sessions, 1, "one browser per scrape")
		assert.True(t, sessions[0].Closed())
		pages := sessions[0].Pages()
		assert.Len(t, pages, 3, "each step gets its own tab")
		for _, p := range pages {
			assert.True(t, p.Closed())
		}
		prober.AssertExpectations(t)
	})
}

func TestSnatch_Grayscale(t *testing.T) {
	fb := healthyBrowser("HP LaserJet MFP M527")
	s := NewSnatcher(reachableProber(true), fb, testScraperConfig(true), zaptest.NewLogger(t))

	rec, err := s.Snatch(context.Background(), testHost)
	require.NoError(t, err)
	assert.Equal(t, TypeGrayscale, rec.Type)
}

func TestSnatch_Unreachable(t *testing.T) {
	fb := healthyBrowser("HP LaserJet")
	s := NewSnatcher(reachableProber(false), fb, testScraperConfig(true), zaptest.NewLogger(t))

	rec, err := s.Snatch(context.Background(), testHost)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Empty(t, fb.Sessions(), "no browser is launched for an unreachable host")
}

func TestSnatch_ProberErrorIsUnreachable(t *testing.T) {
	prober := new(mocks.MockProber)
	prober.On("Reachable", mock.Anything, testHost).Return(false, errors.New("socket: operation not permitted"))
	fb := healthyBrowser("HP LaserJet")
	s := NewSnatcher(prober, fb, testScraperConfig(true), zaptest.NewLogger(t))

	_, err := s.Snatch(context.Background(), testHost)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Empty(t, fb.Sessions())
}

func TestSnatch_StepFailures(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(fb *mocks.FakeBrowser)
		wantStep string
		wantErr  error
	}{
		{
			name: "MissingProductName",
			mutate: func(fb *mocks.FakeBrowser) {
				delete(fb.Documents[testDeviceURL], selProductName)
			},
			wantStep: StepDevice,
			wantErr:  browser.ErrElementNotFound,
		},
		{
			name: "SupplyMismatch",
			mutate: func(fb *mocks.FakeBrowser) {
				fb.Documents[testStatusURL][selSupplyLevels] = []string{"80%*"}
			},
			wantStep: StepSupplies,
			wantErr:  ErrSupplyMismatch,
		},
		{
			name: "TrayFieldMissing",
			mutate: func(fb *mocks.FakeBrowser) {
				delete(fb.Documents[testStatusURL], trayTypeSelector(2))
			},
			wantStep: StepTrays,
			wantErr:  browser.ErrElementNotFound,
		},
		{
			name: "DeviceReportedBeforeSupplies",
			mutate: func(fb *mocks.FakeBrowser) {
				fb.NavigateErr[testDeviceURL] = context.DeadlineExceeded
				fb.Documents[testStatusURL][selSupplyLevels] = nil
			},
			wantStep: StepDevice,
			wantErr:  context.DeadlineExceeded,
		},
		{
			name: "StatusPageDown",
			mutate: func(fb *mocks.FakeBrowser) {
				delete(fb.Documents, testStatusURL)
			},
			wantStep: StepSupplies,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			forEachMode(t, func(t *testing.T, concurrent bool) {
				fb := healthyBrowser("HP Color LaserJet")
				tc.mutate(fb)
				s := NewSnatcher(reachableProber(true), fb, testScraperConfig(concurrent), zaptest.NewLogger(t))

				rec, err := s.Snatch(context.Background(), testHost)
				assert.Nil(t, rec, "no partial record")

				var extErr *ExtractionError
				require.ErrorAs(t, err, &extErr)
				assert.Equal(t, tc.wantStep, extErr.Step)
				if tc.wantErr != nil {
					assert.ErrorIs(t, err, tc.wantErr)
				}

				sessions := fb.Sessions()
				require.Len(t, sessions, 1)
				assert.True(t, sessions[0].Closed(), "browser released on failure")
				assert.Len(t, sessions[0].Pages(), 3, "every step runs to completion")
			})
		})
	}
}

func TestSnatch_LaunchFailure(t *testing.T) {
	fb := healthyBrowser("HP LaserJet")
	fb.LaunchErr = errors.New("chrome not found")
	s := NewSnatcher(reachableProber(true), fb, testScraperConfig(true), zaptest.NewLogger(t))

	_, err := s.Snatch(context.Background(), testHost)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
	var extErr *ExtractionError
	assert.False(t, errors.As(err, &extErr))
}

func TestSnatch_StepPanicIsContained(t *testing.T) {
	fb := healthyBrowser("HP LaserJet")
	fb.QueryHook = func(_, selector string) error {
		if selector == selSupplyNames {
			panic("renderer crashed")
		}
		return nil
	}
	s := NewSnatcher(reachableProber(true), fb, testScraperConfig(true), zaptest.NewLogger(t))

	_, err := s.Snatch(context.Background(), testHost)
	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, StepSupplies, extErr.Step)
	assert.True(t, fb.Sessions()[0].Closed())
}

func TestSnatch_CancelledRequestStillClosesBrowser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fb := healthyBrowser("HP LaserJet")
	var calls atomic.Int32
	fb.QueryHook = func(_, _ string) error {
		if calls.Add(1) == 1 {
			cancel()
		}
		return nil
	}
	s := NewSnatcher(reachableProber(true), fb, testScraperConfig(false), zaptest.NewLogger(t))

	_, err := s.Snatch(ctx, testHost)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, fb.Sessions(), 1)
	assert.True(t, fb.Sessions()[0].Closed())
}

func TestSnatch_ProberCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prober := reachability.ProberFunc(func(ctx context.Context, host string) (bool, error) {
		cancel()
		return false, ctx.Err()
	})
	fb := healthyBrowser("HP LaserJet")
	s := NewSnatcher(prober, fb, testScraperConfig(true), zaptest.NewLogger(t))

	_, err := s.Snatch(ctx, testHost)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestExtractionError(t *testing.T) {
	err := &ExtractionError{Step: StepTrays, Err: browser.ErrElementNotFound}
	assert.Equal(t, "trays step failed: element not found", err.Error())
	assert.ErrorIs(t, err, browser.ErrElementNotFound)
}

func TestFirstFailure(t *testing.T) {
	assert.NoError(t, firstFailure([]stepResult{{step: StepDevice}, {step: StepSupplies}}))

	err := firstFailure([]stepResult{
		{step: StepDevice},
		{step: StepSupplies, err: errors.New("a")},
		{step: StepTrays, err: errors.New("b")},
	})
	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, StepSupplies, extErr.Step)
}
