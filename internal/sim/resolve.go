package sim

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const runtimePrefix = "com.apple.CoreSimulator.SimRuntime."

// CompareVersions orders dotted version strings numerically, component by
// component. Missing trailing components count as zero, so "17" == "17.0"
// and "9.0" < "17.0".
func CompareVersions(a, b string) int {
	av, bv := versionTuple(a), versionTuple(b)
	n := len(av)
	if len(bv) > n {
		n = len(bv)
	}
	for i := 0; i < n; i++ {
		x, y := 0, 0
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func versionTuple(v string) []int {
	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}

// versionHasPrefix reports whether the leading components of v equal want,
// so want=[17] accepts "17.0" and "17.4" but not "16.0".
func versionHasPrefix(v string, want []int) bool {
	have := versionTuple(v)
	if len(have) < len(want) {
		return false
	}
	for i, w := range want {
		if have[i] != w {
			return false
		}
	}
	return true
}

// normalizeName collapses hyphens and runs of whitespace to single spaces
// for the ladder's normalized comparison.
func normalizeName(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// looksLikeUDID reports whether the input is UUID-shaped, i.e. already a
// device identifier rather than a name.
func looksLikeUDID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ResolveDeviceType walks the matching ladder over the device type catalog:
// exact identifier, exact name, normalized name, then name prefix with the
// longest display name winning ties (longer names tend to be the more
// specific, newer models).
func ResolveDeviceType(input string, catalog []DeviceType) (string, error) {
	for _, t := range catalog {
		if t.Identifier == input {
			return t.Identifier, nil
		}
	}

	lower := strings.ToLower(input)
	for _, t := range catalog {
		if strings.ToLower(t.Name) == lower {
			return t.Identifier, nil
		}
	}

	norm := normalizeName(input)
	for _, t := range catalog {
		if normalizeName(t.Name) == norm {
			return t.Identifier, nil
		}
	}

	var best *DeviceType
	for i := range catalog {
		t := &catalog[i]
		if !strings.HasPrefix(strings.ToLower(t.Name), lower) {
			continue
		}
		if best == nil || len(t.Name) > len(best.Name) {
			best = t
		}
	}
	if best != nil {
		return best.Identifier, nil
	}

	return "", &Error{Kind: KindInvalidDeviceType, Identifier: input}
}

// ResolveRuntime walks the ladder over the runtime catalog. When several
// candidates survive a rung, the numerically greatest version wins, not the
// lexically greatest.
func ResolveRuntime(input string, catalog []Runtime) (string, error) {
	for _, r := range catalog {
		if r.Identifier == input {
			return r.Identifier, nil
		}
	}

	lower := strings.ToLower(input)
	if id := newestRuntime(catalog, func(r Runtime) bool {
		return strings.ToLower(r.Name) == lower
	}); id != "" {
		return id, nil
	}

	norm := normalizeName(input)
	if id := newestRuntime(catalog, func(r Runtime) bool {
		return normalizeName(r.Name) == norm
	}); id != "" {
		return id, nil
	}

	if id := newestRuntime(catalog, func(r Runtime) bool {
		return strings.HasPrefix(strings.ToLower(r.Name), lower)
	}); id != "" {
		return id, nil
	}

	// Version fragment: "17" or "iOS 17" matches every 17.x runtime for the
	// platform, and the newest of them wins.
	if m := runtimeShorthand.FindStringSubmatch(strings.TrimSpace(input)); m != nil {
		platform := platformFromKeywords(m[1])
		if platform == "" && strings.TrimSpace(m[1]) == "" {
			platform = PlatformIOS
		}
		want := versionTuple(m[2])
		if platform != "" && len(want) > 0 {
			if id := newestRuntime(catalog, func(r Runtime) bool {
				p, _ := ParseRuntimeID(r.Identifier)
				return p == platform && versionHasPrefix(r.Version, want)
			}); id != "" {
				return id, nil
			}
		}
	}

	return "", &Error{Kind: KindInvalidRuntime, Identifier: input}
}

func newestRuntime(catalog []Runtime, match func(Runtime) bool) string {
	var best *Runtime
	for i := range catalog {
		r := &catalog[i]
		if !r.IsAvailable || !match(*r) {
			continue
		}
		if best == nil || CompareVersions(r.Version, best.Version) > 0 {
			best = r
		}
	}
	if best == nil {
		return ""
	}
	return best.Identifier
}

var runtimeShorthand = regexp.MustCompile(`^([a-zA-Z ]*?)\s*(\d+(?:\.\d+)*)$`)

// SynthesizeRuntimeID is the resolver's fast path: if the input already is a
// canonical identifier, or decomposes into a platform token plus version
// digits ("iOS 17", "17.0", "watchOS 11"), the canonical identifier is built
// directly without consulting the catalog. Dots in the version become
// hyphens: "iOS 17.0" -> com.apple.CoreSimulator.SimRuntime.iOS-17-0.
// Platform falls back to the hint, then to iOS.
func SynthesizeRuntimeID(input string, hint Platform) (string, bool) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, runtimePrefix) {
		return input, true
	}

	m := runtimeShorthand.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}

	platform := platformFromKeywords(m[1])
	if platform == "" {
		if strings.TrimSpace(m[1]) != "" {
			return "", false // named something, but not a platform we know
		}
		platform = hint
		if platform == "" {
			platform = PlatformIOS
		}
	}

	version := strings.ReplaceAll(m[2], ".", "-")
	return runtimePrefix + platformToken(platform) + "-" + version, true
}

func platformFromKeywords(s string) Platform {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "watch"):
		return PlatformWatchOS
	case strings.Contains(s, "tv"):
		return PlatformTVOS
	case strings.Contains(s, "vision"), strings.Contains(s, "xros"):
		return PlatformVisionOS
	case strings.Contains(s, "ios"):
		return PlatformIOS
	default:
		return ""
	}
}

// platformToken maps a platform to the token CoreSimulator uses in runtime
// identifiers. visionOS runtimes are published as xrOS.
func platformToken(p Platform) string {
	switch p {
	case PlatformWatchOS:
		return "watchOS"
	case PlatformTVOS:
		return "tvOS"
	case PlatformVisionOS:
		return "xrOS"
	default:
		return "iOS"
	}
}

// PlatformHintFromDeviceType biases runtime synthesis by the device type the
// runtime will pair with: Apple Watch types imply watchOS, Apple TV types
// imply tvOS, and so on.
func PlatformHintFromDeviceType(deviceType string) Platform {
	lower := strings.ToLower(deviceType)
	switch {
	case strings.Contains(lower, "watch"):
		return PlatformWatchOS
	case strings.Contains(lower, "tv"):
		return PlatformTVOS
	case strings.Contains(lower, "vision"):
		return PlatformVisionOS
	default:
		return PlatformIOS
	}
}
