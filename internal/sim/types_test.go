package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceStateIsRunning(t *testing.T) {
	cases := map[DeviceState]bool{
		StateShutdown:     false,
		StateBooting:      true,
		StateBooted:       true,
		StateShuttingDown: false,
		DeviceState("Creating"): false,
		DeviceState(""):         false,
	}
	for state, want := range cases {
		assert.Equal(t, want, state.IsRunning(), "state %q", state)
	}
}

func TestParseRuntimeID(t *testing.T) {
	cases := []struct {
		id       string
		platform Platform
		version  string
	}{
		{"com.apple.CoreSimulator.SimRuntime.iOS-17-2", PlatformIOS, "17.2"},
		{"com.apple.CoreSimulator.SimRuntime.iOS-9-0", PlatformIOS, "9.0"},
		{"com.apple.CoreSimulator.SimRuntime.watchOS-11-0", PlatformWatchOS, "11.0"},
		{"com.apple.CoreSimulator.SimRuntime.tvOS-17-4", PlatformTVOS, "17.4"},
		{"com.apple.CoreSimulator.SimRuntime.xrOS-1-1", PlatformVisionOS, "1.1"},
		{"com.apple.CoreSimulator.SimRuntime.iOS-17", PlatformIOS, "17"},
	}
	for _, tc := range cases {
		platform, version := ParseRuntimeID(tc.id)
		assert.Equal(t, tc.platform, platform, tc.id)
		assert.Equal(t, tc.version, version, tc.id)
	}
}

func TestDevicePlatformAndVersion(t *testing.T) {
	d := Device{RuntimeID: "com.apple.CoreSimulator.SimRuntime.watchOS-10-5"}
	assert.Equal(t, PlatformWatchOS, d.Platform())
	assert.Equal(t, "10.5", d.OSVersion())
}
