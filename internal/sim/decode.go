package sim

import (
	"strings"

	"github.com/tidwall/gjson"
)

const deviceTypeMarker = ".SimDeviceType."

// validStates is the set of state strings simctl is known to emit.
var validStates = map[DeviceState]bool{
	StateShutdown:     true,
	StateBooting:      true,
	StateBooted:       true,
	StateShuttingDown: true,
}

// DecodeDevices flattens the `simctl list devices --json` payload, which
// groups device arrays under their runtime identifier, into one record per
// device. A single corrupt entry never fails the whole decode: an
// unrecognized state falls back to Shutdown.
func DecodeDevices(payload []byte) ([]Device, error) {
	if !gjson.ValidBytes(payload) {
		return nil, malformed("device list is not valid JSON", payload)
	}
	root := gjson.ParseBytes(payload).Get("devices")
	if !root.Exists() || !root.IsObject() {
		return nil, malformed("device list has no devices object", payload)
	}

	var devices []Device
	root.ForEach(func(runtimeID, arr gjson.Result) bool {
		arr.ForEach(func(_, dev gjson.Result) bool {
			state := DeviceState(dev.Get("state").String())
			if !validStates[state] {
				state = StateShutdown
			}
			available := true
			if f := dev.Get("isAvailable"); f.Exists() {
				available = f.Bool()
			}
			devices = append(devices, Device{
				UDID:         dev.Get("udid").String(),
				Name:         dev.Get("name").String(),
				State:        state,
				DeviceTypeID: dev.Get("deviceTypeIdentifier").String(),
				RuntimeID:    runtimeID.String(),
				IsAvailable:  available,
			})
			return true
		})
		return true
	})

	return devices, nil
}

// DecodeDeviceTypes parses the `simctl list devicetypes --json` payload.
func DecodeDeviceTypes(payload []byte) ([]DeviceType, error) {
	if !gjson.ValidBytes(payload) {
		return nil, malformed("device type list is not valid JSON", payload)
	}
	arr := gjson.ParseBytes(payload).Get("devicetypes")
	if !arr.Exists() || !arr.IsArray() {
		return nil, malformed("device type list has no devicetypes array", payload)
	}

	var types []DeviceType
	arr.ForEach(func(_, dt gjson.Result) bool {
		types = append(types, DeviceType{
			Identifier: dt.Get("identifier").String(),
			Name:       dt.Get("name").String(),
		})
		return true
	})
	return types, nil
}

// DecodeRuntimes parses the `simctl list runtimes --json` payload. A missing
// isAvailable field defaults to true.
func DecodeRuntimes(payload []byte) ([]Runtime, error) {
	if !gjson.ValidBytes(payload) {
		return nil, malformed("runtime list is not valid JSON", payload)
	}
	arr := gjson.ParseBytes(payload).Get("runtimes")
	if !arr.Exists() || !arr.IsArray() {
		return nil, malformed("runtime list has no runtimes array", payload)
	}

	var runtimes []Runtime
	arr.ForEach(func(_, rt gjson.Result) bool {
		id := rt.Get("identifier").String()
		version := rt.Get("version").String()
		if version == "" {
			_, version = ParseRuntimeID(id)
		}
		available := true
		if f := rt.Get("isAvailable"); f.Exists() {
			available = f.Bool()
		}
		runtimes = append(runtimes, Runtime{
			Identifier:  id,
			Name:        rt.Get("name").String(),
			Version:     version,
			IsAvailable: available,
		})
		return true
	})
	return runtimes, nil
}

// ParseDeviceTypesText parses the plain `simctl list devicetypes` output.
// Each relevant line looks like "iPhone 15 (Pro) (com.apple...iPhone-15)";
// the identifier is the LAST parenthesized group, since names themselves may
// contain parentheses. Entries are de-duplicated by identifier, first seen
// wins.
func ParseDeviceTypesText(payload []byte) []DeviceType {
	var types []DeviceType
	seen := map[string]bool{}

	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, ")") {
			continue
		}
		open := strings.LastIndex(line, "(")
		if open <= 0 {
			continue
		}
		id := line[open+1 : len(line)-1]
		if !strings.Contains(id, deviceTypeMarker) {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		types = append(types, DeviceType{
			Identifier: id,
			Name:       strings.TrimSpace(line[:open]),
		})
	}
	return types
}
