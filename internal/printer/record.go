// Package printer scrapes an HP Enterprise printer's embedded web server
// into a Record.
package printer

import "strings"

// Type is the printer's colour capability.
type Type string

const (
	TypeColor     Type = "color"
	TypeGrayscale Type = "grayscale"
)

// classify derives the printer type from its model string.
func classify(model string) Type {
	if strings.Contains(model, "Color") {
		return TypeColor
	}
	return TypeGrayscale
}

// TrayInfo describes one paper tray as shown on the device status page.
type TrayInfo struct {
	Status   string `json:"status"`
	Capacity string `json:"capacity"`
	Size     string `json:"size"`
	Type     string `json:"type"`
}

// Record is everything scraped from one printer.
type Record struct {
	Host     string              `json:"host"`
	Name     string              `json:"name"`
	Type     Type                `json:"type"`
	Model    string              `json:"model"`
	Serial   string              `json:"serial"`
	Location string              `json:"location"`
	Trays    map[string]TrayInfo `json:"trays"`
	Supplies map[string]string   `json:"supplies"`
	// Errors holds the machine status messages other than "Ready". It is
	// never nil so it encodes as [] rather than null.
	Errors []string `json:"errors"`
}

// DeviceInfo is the identity block from the device information page.
type DeviceInfo struct {
	Model    string
	Name     string
	Serial   string
	Location string
}

// LabelledTray is one discovered tray with its display label.
type LabelledTray struct {
	Label string
	Info  TrayInfo
}

// TrayReport is the result of the tray step.
type TrayReport struct {
	Trays  []LabelledTray
	Errors []string
}

// assemble builds the final record from the three step results.
func assemble(host string, dev DeviceInfo, supplies map[string]string, trays TrayReport) *Record {
	rec := &Record{
		Host:     host,
		Name:     dev.Name,
		Type:     classify(dev.Model),
		Model:    dev.Model,
		Serial:   dev.Serial,
		Location: dev.Location,
		Trays:    make(map[string]TrayInfo, len(trays.Trays)),
		Supplies: supplies,
		Errors:   trays.Errors,
	}
	for _, t := range trays.Trays {
		rec.Trays[t.Label] = t.Info
	}
	if rec.Supplies == nil {
		rec.Supplies = map[string]string{}
	}
	if rec.Errors == nil {
		rec.Errors = []string{}
	}
	return rec
}
