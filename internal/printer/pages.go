package printer

import (
	"fmt"
	"net/url"
)

// Embedded web server paths.
const (
	deviceInfoPath   = "/hp/device/DeviceInformation/View"
	deviceStatusPath = "/hp/device/DeviceStatus/Index"
)

// Device information page.
const (
	selProductName  = "#ProductName"
	selDeviceName   = "#DeviceName"
	selSerialNumber = "#DeviceSerialNumber"
	selLocation     = "#DeviceLocation"
)

// Device status page.
const (
	selSupplyNames    = ".cartridges .consumable h2"
	selSupplyLevels   = ".cartridges .consumable .plr"
	selMultipurpose   = "#TrayBin_MultipurposeTray"
	selMachineStatus  = "#MachineStatus"
	machineStatusIdle = "Ready"
)

func trayBinSelector(i int) string      { return fmt.Sprintf("#TrayBin_Tray%d", i) }
func trayStatusSelector(i int) string   { return fmt.Sprintf("#TrayBinStatus_%d", i) }
func trayCapacitySelector(i int) string { return fmt.Sprintf("#TrayBinCapacity_%d", i) }
func traySizeSelector(i int) string     { return fmt.Sprintf("#TrayBinSize_%d", i) }
func trayTypeSelector(i int) string     { return fmt.Sprintf("#TrayBinType_%d", i) }

func trayLabel(i int) string { return fmt.Sprintf("Tray %d", i) }

func pageURL(scheme, host, path string) string {
	if scheme == "" {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: host, Path: path}).String()
}
