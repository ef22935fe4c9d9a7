package sim

import "strings"

// Platform represents a simulator target platform
type Platform string

const (
	PlatformIOS      Platform = "ios"
	PlatformWatchOS  Platform = "watchos"
	PlatformTVOS     Platform = "tvos"
	PlatformVisionOS Platform = "visionos"
)

// DeviceState represents the current lifecycle state of a simulator
type DeviceState string

const (
	StateShutdown     DeviceState = "Shutdown"
	StateBooting      DeviceState = "Booting"
	StateBooted       DeviceState = "Booted"
	StateShuttingDown DeviceState = "Shutting Down"
)

// IsRunning reports whether the state counts as running. Only Booting and
// Booted do; everything else, including unknown states, does not.
func (s DeviceState) IsRunning() bool {
	return s == StateBooting || s == StateBooted
}

// Device represents one simulator instance as reported by simctl.
type Device struct {
	UDID         string      `json:"udid"`
	Name         string      `json:"name"`
	State        DeviceState `json:"state"`
	DeviceTypeID string      `json:"deviceTypeIdentifier"`
	RuntimeID    string      `json:"runtime"`
	IsAvailable  bool        `json:"isAvailable"`
}

// Platform derives the device's platform from its runtime identifier.
func (d *Device) Platform() Platform {
	p, _ := ParseRuntimeID(d.RuntimeID)
	return p
}

// OSVersion derives the runtime version string from the runtime identifier.
func (d *Device) OSVersion() string {
	_, v := ParseRuntimeID(d.RuntimeID)
	return v
}

// DeviceType is a catalog entry from `simctl list devicetypes`.
type DeviceType struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// Runtime is a catalog entry from `simctl list runtimes`.
type Runtime struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	IsAvailable bool   `json:"isAvailable"`
}

// ParseRuntimeID extracts the platform and dotted version from a runtime
// identifier like com.apple.CoreSimulator.SimRuntime.iOS-17-2.
func ParseRuntimeID(id string) (Platform, string) {
	lower := strings.ToLower(id)

	var platform Platform
	switch {
	case strings.Contains(lower, "watchos"):
		platform = PlatformWatchOS
	case strings.Contains(lower, "tvos"):
		platform = PlatformTVOS
	case strings.Contains(lower, "xros"), strings.Contains(lower, "visionos"):
		platform = PlatformVisionOS
	case strings.Contains(lower, "ios"):
		platform = PlatformIOS
	default:
		platform = Platform("unknown")
	}

	version := ""
	parts := strings.Split(id, "-")
	for i := len(parts) - 1; i >= 1; i-- {
		if parts[i] == "" || parts[i][0] < '0' || parts[i][0] > '9' {
			break
		}
		if version == "" {
			version = parts[i]
		} else {
			version = parts[i] + "." + version
		}
	}

	return platform, version
}

// DoctorReport is a diagnostic snapshot of the local simctl installation.
type DoctorReport struct {
	SimctlPath    string
	Reachable     bool
	JSONSupported bool
	Notes         []string
}
