package printer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/printer-snatcher/internal/browser"
)

// ErrSupplyMismatch is returned when the status page lists a different number
// of supply names and supply levels.
var ErrSupplyMismatch = errors.New("supply names and levels do not line up")

// extractDevice reads the identity block from the device information page.
func extractDevice(ctx context.Context, page browser.Page, scheme, host string) (DeviceInfo, error) {
	if err := page.Navigate(ctx, pageURL(scheme, host, deviceInfoPath)); err != nil {
		return DeviceInfo{}, err
	}

	var dev DeviceInfo
	fields := []struct {
		selector string
		dst      *string
	}{
		{selProductName, &dev.Model},
		{selDeviceName, &dev.Name},
		{selSerialNumber, &dev.Serial},
		{selLocation, &dev.Location},
	}
	for _, f := range fields {
		text, err := page.Text(ctx, f.selector)
		if err != nil {
			return DeviceInfo{}, err
		}
		*f.dst = text
	}
	return dev, nil
}

// extractSupplies pairs every consumable name with its level by position.
func extractSupplies(ctx context.Context, page browser.Page, scheme, host string) (map[string]string, error) {
	if err := page.Navigate(ctx, pageURL(scheme, host, deviceStatusPath)); err != nil {
		return nil, err
	}

	names, err := page.TextAll(ctx, selSupplyNames)
	if err != nil {
		return nil, err
	}
	levels, err := page.TextAll(ctx, selSupplyLevels)
	if err != nil {
		return nil, err
	}
	return zipSupplies(names, levels)
}

func zipSupplies(names, levels []string) (map[string]string, error) {
	if len(names) != len(levels) {
		return nil, fmt.Errorf("%w: %d names, %d levels", ErrSupplyMismatch, len(names), len(levels))
	}
	supplies := make(map[string]string, len(names))
	for i, name := range names {
		supplies[name] = strings.Replace(levels[i], "%*", "", 1)
	}
	return supplies, nil
}

// trayExtractor walks the tray bins on the device status page.
type trayExtractor struct {
	page     browser.Page
	maxIndex int
	logger   *zap.Logger
}

// extract navigates to the status page and returns the discovered trays in
// index order, followed by the machine status messages.
func (t *trayExtractor) extract(ctx context.Context, scheme, host string) (TrayReport, error) {
	if err := t.page.Navigate(ctx, pageURL(scheme, host, deviceStatusPath)); err != nil {
		return TrayReport{}, err
	}

	trays, err := t.discover(ctx)
	if err != nil {
		return TrayReport{}, err
	}
	statuses, err := t.machineStatus(ctx)
	if err != nil {
		return TrayReport{}, err
	}
	return TrayReport{Trays: trays, Errors: statuses}, nil
}

// discover returns the multipurpose tray as "Tray 1" when present, then
// numbered trays from 2 up to the first missing index. It never probes past
// maxIndex.
func (t *trayExtractor) discover(ctx context.Context) ([]LabelledTray, error) {
	var trays []LabelledTray

	mp, err := t.page.Exists(ctx, selMultipurpose)
	if err != nil {
		return nil, err
	}
	if mp {
		info, err := t.tray(ctx, 1)
		if err != nil {
			return nil, err
		}
		trays = append(trays, LabelledTray{Label: trayLabel(1), Info: info})
	}

	for i := 2; ; i++ {
		if i > t.maxIndex {
			t.logger.Warn("Tray discovery stopped at the configured limit.", zap.Int("max_tray_index", t.maxIndex))
			break
		}
		present, err := t.page.Exists(ctx, trayBinSelector(i))
		if err != nil {
			return nil, err
		}
		if !present {
			break
		}
		info, err := t.tray(ctx, i)
		if err != nil {
			return nil, err
		}
		trays = append(trays, LabelledTray{Label: trayLabel(i), Info: info})
	}
	return trays, nil
}

func (t *trayExtractor) tray(ctx context.Context, i int) (TrayInfo, error) {
	status, err := t.page.Text(ctx, trayStatusSelector(i))
	if err != nil {
		return TrayInfo{}, err
	}
	capacity, err := t.page.Text(ctx, trayCapacitySelector(i))
	if err != nil {
		return TrayInfo{}, err
	}
	size, err := t.page.Text(ctx, traySizeSelector(i))
	if err != nil {
		return TrayInfo{}, err
	}
	typ, err := t.page.Text(ctx, trayTypeSelector(i))
	if err != nil {
		return TrayInfo{}, err
	}
	return TrayInfo{
		Status:   strings.Replace(status, "%", "", 1),
		Capacity: capacity,
		Size:     strings.TrimSpace(strings.Replace(size, "▭", "", 1)),
		Type:     typ,
	}, nil
}

// machineStatus returns every status message except "Ready", trimmed, in
// page order.
func (t *trayExtractor) machineStatus(ctx context.Context) ([]string, error) {
	texts, err := t.page.TextAll(ctx, selMachineStatus)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == machineStatusIdle {
			continue
		}
		out = append(out, text)
	}
	return out, nil
}
