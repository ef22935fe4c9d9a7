package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deviceListJSON = `{
  "devices": {
    "com.apple.CoreSimulator.SimRuntime.iOS-17-2": [
      {
        "udid": "AAAAAAAA-0000-0000-0000-000000000001",
        "name": "iPhone 15",
        "state": "Booted",
        "deviceTypeIdentifier": "com.apple.CoreSimulator.SimDeviceType.iPhone-15",
        "isAvailable": true
      },
      {
        "udid": "AAAAAAAA-0000-0000-0000-000000000002",
        "name": "iPhone 15 Pro",
        "state": "Creating???",
        "deviceTypeIdentifier": "com.apple.CoreSimulator.SimDeviceType.iPhone-15-Pro"
      }
    ],
    "com.apple.CoreSimulator.SimRuntime.watchOS-10-5": [
      {
        "udid": "AAAAAAAA-0000-0000-0000-000000000003",
        "name": "Apple Watch Series 9 (45mm)",
        "state": "Shutdown",
        "isAvailable": false
      }
    ]
  }
}`

func TestDecodeDevices(t *testing.T) {
	devices, err := DecodeDevices([]byte(deviceListJSON))
	require.NoError(t, err)
	require.Len(t, devices, 3)

	byUDID := map[string]Device{}
	for _, d := range devices {
		byUDID[d.UDID] = d
	}

	booted := byUDID["AAAAAAAA-0000-0000-0000-000000000001"]
	assert.Equal(t, "iPhone 15", booted.Name)
	assert.Equal(t, StateBooted, booted.State)
	assert.Equal(t, "com.apple.CoreSimulator.SimRuntime.iOS-17-2", booted.RuntimeID, "runtime key becomes the device's runtime")
	assert.True(t, booted.IsAvailable)

	odd := byUDID["AAAAAAAA-0000-0000-0000-000000000002"]
	assert.Equal(t, StateShutdown, odd.State, "unknown state defaults to Shutdown instead of failing the decode")
	assert.True(t, odd.IsAvailable, "missing isAvailable defaults to true")

	watch := byUDID["AAAAAAAA-0000-0000-0000-000000000003"]
	assert.False(t, watch.IsAvailable)
	assert.Equal(t, "com.apple.CoreSimulator.SimRuntime.watchOS-10-5", watch.RuntimeID)
}

func TestDecodeDevicesMalformed(t *testing.T) {
	t.Run("not json", func(t *testing.T) {
		_, err := DecodeDevices([]byte("simctl: command not found"))
		assert.True(t, IsKind(err, KindMalformedOutput))
	})

	t.Run("wrong shape", func(t *testing.T) {
		_, err := DecodeDevices([]byte(`{"runtimes": []}`))
		assert.True(t, IsKind(err, KindMalformedOutput))
	})

	t.Run("error preview is truncated", func(t *testing.T) {
		huge := make([]byte, 4096)
		for i := range huge {
			huge[i] = 'x'
		}
		_, err := DecodeDevices(huge)
		require.Error(t, err)
		assert.Less(t, len(err.Error()), 400, "multi-kilobyte payloads never reach error text")
	})
}

func TestDecodeDeviceTypes(t *testing.T) {
	payload := `{"devicetypes": [
	  {"identifier": "com.apple.CoreSimulator.SimDeviceType.iPhone-15", "name": "iPhone 15"},
	  {"identifier": "com.apple.CoreSimulator.SimDeviceType.iPad-Air", "name": "iPad Air"}
	]}`
	types, err := DecodeDeviceTypes([]byte(payload))
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "iPhone 15", types[0].Name)
	assert.Equal(t, "com.apple.CoreSimulator.SimDeviceType.iPad-Air", types[1].Identifier)
}

func TestDecodeRuntimes(t *testing.T) {
	payload := `{"runtimes": [
	  {"identifier": "com.apple.CoreSimulator.SimRuntime.iOS-17-2", "name": "iOS 17.2", "version": "17.2", "isAvailable": true},
	  {"identifier": "com.apple.CoreSimulator.SimRuntime.iOS-16-0", "name": "iOS 16.0"}
	]}`
	runtimes, err := DecodeRuntimes([]byte(payload))
	require.NoError(t, err)
	require.Len(t, runtimes, 2)
	assert.Equal(t, "17.2", runtimes[0].Version)
	assert.True(t, runtimes[1].IsAvailable, "missing isAvailable defaults to true")
	assert.Equal(t, "16.0", runtimes[1].Version, "version recovered from the identifier when absent")
}

func TestParseDeviceTypesText(t *testing.T) {
	text := `== Device Types ==
iPhone 15 (com.apple.CoreSimulator.SimDeviceType.iPhone-15)
iPhone 15 (Pro) (com.apple.CoreSimulator.SimDeviceType.iPhone-15-Pro)
iPhone 15 (com.apple.CoreSimulator.SimDeviceType.iPhone-15)
Some banner line without identifier
Apple Watch Series 9 (45mm) (com.apple.CoreSimulator.SimDeviceType.Apple-Watch-Series-9-45mm)
Not a device type (com.apple.CoreSimulator.SimRuntime.iOS-17-0)
`
	types := ParseDeviceTypesText([]byte(text))
	require.Len(t, types, 3, "duplicates and non-device-type lines are dropped")

	assert.Equal(t, "iPhone 15", types[0].Name)
	assert.Equal(t, "com.apple.CoreSimulator.SimDeviceType.iPhone-15", types[0].Identifier)

	assert.Equal(t, "iPhone 15 (Pro)", types[1].Name, "names may contain parentheses; the LAST pair is the identifier")
	assert.Equal(t, "com.apple.CoreSimulator.SimDeviceType.iPhone-15-Pro", types[1].Identifier)

	assert.Equal(t, "Apple Watch Series 9 (45mm)", types[2].Name)
}

func TestParseDeviceTypesTextEmpty(t *testing.T) {
	assert.Empty(t, ParseDeviceTypesText([]byte("nothing useful here")))
}
