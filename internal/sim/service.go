package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// InvokeOptions control a single simctl invocation.
type InvokeOptions struct {
	// JSON asks for structured output. The runner owns flag placement.
	JSON bool
	// Timeout bounds the subprocess wall-clock time. Zero means unbounded.
	Timeout time.Duration
}

// Invoker runs simctl. Implemented by process.Runner; tests substitute a
// scripted fake.
type Invoker interface {
	Invoke(ctx context.Context, args []string, opts InvokeOptions) ([]byte, error)
	Path() string
}

// guiOpener is optionally implemented by an Invoker that can bring up the
// Simulator GUI after a boot.
type guiOpener interface {
	OpenSimulatorApp(ctx context.Context) error
}

// RecentStore persists the last booted device. Every call is best-effort:
// the service logs failures and moves on.
type RecentStore interface {
	SaveLastBooted(udid string) error
	LastBooted() (string, bool)
}

// PollConfig holds the retry budgets for state-transition polling.
type PollConfig struct {
	BootAttempts   int
	BootInterval   time.Duration
	DeleteAttempts int
	DeleteInterval time.Duration
}

// DefaultPollConfig returns the stock budgets: boot and shutdown poll ten
// times a second apart, delete verification five times half a second apart.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		BootAttempts:   10,
		BootInterval:   time.Second,
		DeleteAttempts: 5,
		DeleteInterval: 500 * time.Millisecond,
	}
}

// Service is the device orchestration facade. It holds no device state of
// its own: simctl is the source of truth and every operation re-queries it.
type Service struct {
	inv     Invoker
	recents RecentStore
	poll    PollConfig
	timeout time.Duration
}

// NewService builds a Service. recents may be nil when persistence is not
// wanted. timeout bounds each individual simctl call; zero disables it.
func NewService(inv Invoker, recents RecentStore, poll PollConfig, timeout time.Duration) *Service {
	if poll.BootAttempts <= 0 {
		poll = DefaultPollConfig()
	}
	return &Service{inv: inv, recents: recents, poll: poll, timeout: timeout}
}

// SimctlPath reports the resolved backend executable path.
func (s *Service) SimctlPath() string { return s.inv.Path() }

func (s *Service) invoke(ctx context.Context, json bool, args ...string) ([]byte, error) {
	return s.inv.Invoke(ctx, args, InvokeOptions{JSON: json, Timeout: s.timeout})
}

// ListDevices returns every device simctl knows about, available or not.
func (s *Service) ListDevices(ctx context.Context) ([]Device, error) {
	out, err := s.invoke(ctx, true, "list", "devices")
	if err != nil {
		return nil, err
	}
	return DecodeDevices(out)
}

// ListDeviceTypes returns the device type catalog. The plain-text listing is
// parsed first: it is cheaper to produce and supported by every simctl
// build. JSON is the fallback for the rare output shape the text parser
// cannot recognize.
func (s *Service) ListDeviceTypes(ctx context.Context) ([]DeviceType, error) {
	out, err := s.invoke(ctx, false, "list", "devicetypes")
	if err != nil {
		return nil, err
	}
	if types := ParseDeviceTypesText(out); len(types) > 0 {
		return types, nil
	}

	out, err = s.invoke(ctx, true, "list", "devicetypes")
	if err != nil {
		return nil, err
	}
	return DecodeDeviceTypes(out)
}

// ListRuntimes returns the runtime catalog.
func (s *Service) ListRuntimes(ctx context.Context) ([]Runtime, error) {
	out, err := s.invoke(ctx, true, "list", "runtimes")
	if err != nil {
		return nil, err
	}
	return DecodeRuntimes(out)
}

// Boot resolves the identifier to a device, boots it, and polls until it
// reports Booted. runtimeFilter narrows same-name matches ("iPhone 15" on
// two runtimes) to one runtime; without it the newest runtime wins.
func (s *Service) Boot(ctx context.Context, identifier, runtimeFilter string) (*Device, error) {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	dev, err := pickDevice(devices, identifier, runtimeFilter, false)
	if err != nil {
		return nil, err
	}

	if dev.State.IsRunning() {
		return nil, alreadyRunning(dev.Name)
	}

	if _, err := s.invoke(ctx, false, "boot", dev.UDID); err != nil {
		return nil, err
	}

	if err := s.waitForState(ctx, dev.UDID, StateBooted); err != nil {
		return nil, err
	}

	s.saveRecent(dev.UDID)
	if opener, ok := s.inv.(guiOpener); ok {
		if err := opener.OpenSimulatorApp(ctx); err != nil {
			log.Debug().Err(err).Msg("could not open Simulator app")
		}
	}

	booted := *dev
	booted.State = StateBooted
	return &booted, nil
}

// Shutdown stops one device, or every running device when identifier is
// empty or "all". Among same-name matches a running device is preferred,
// since that is the one a shutdown can meaningfully target.
func (s *Service) Shutdown(ctx context.Context, identifier string) error {
	if identifier == "" || identifier == "all" {
		return s.shutdownAll(ctx)
	}

	devices, err := s.ListDevices(ctx)
	if err != nil {
		return err
	}

	dev, err := pickDevice(devices, identifier, "", true)
	if err != nil {
		return err
	}

	return s.shutdownDevice(ctx, dev)
}

func (s *Service) shutdownDevice(ctx context.Context, dev *Device) error {
	if !dev.State.IsRunning() {
		return notRunning(dev.Name)
	}
	if _, err := s.invoke(ctx, false, "shutdown", dev.UDID); err != nil {
		return err
	}
	return s.waitForState(ctx, dev.UDID, StateShutdown)
}

func (s *Service) shutdownAll(ctx context.Context) error {
	if _, err := s.invoke(ctx, false, "shutdown", "all"); err != nil {
		return err
	}

	for attempt := 0; attempt < s.poll.BootAttempts; attempt++ {
		devices, err := s.ListDevices(ctx)
		if err != nil {
			return err
		}
		// Count devices still running or mid-transition; a device stuck in
		// ShuttingDown is not yet quiescent even though it is "not running".
		settling := 0
		for i := range devices {
			if devices[i].State != StateShutdown {
				settling++
			}
		}
		if settling == 0 {
			return nil
		}
		log.Debug().Int("settling", settling).Msg("waiting for simulators to stop")
		if err := sleepCtx(ctx, s.poll.BootInterval); err != nil {
			return err
		}
	}
	return &Error{Kind: KindTimeout, Detail: "some simulators are still running"}
}

// Erase factory-resets a device. A running device is shut down first; the
// erase itself is synchronous so no polling follows it.
func (s *Service) Erase(ctx context.Context, identifier string) error {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return err
	}

	dev, err := pickDevice(devices, identifier, "", true)
	if err != nil {
		return err
	}

	if dev.State.IsRunning() {
		if err := s.shutdownDevice(ctx, dev); err != nil {
			return err
		}
	}

	_, err = s.invoke(ctx, false, "erase", dev.UDID)
	return err
}

// Install puts an app bundle onto an already-running device. The bundle is
// validated before any simctl call so a bad path fails fast.
func (s *Service) Install(ctx context.Context, bundlePath, identifier string) error {
	if err := validateBundle(bundlePath); err != nil {
		return err
	}

	devices, err := s.ListDevices(ctx)
	if err != nil {
		return err
	}

	dev, err := pickDevice(devices, identifier, "", true)
	if err != nil {
		return err
	}
	if !dev.State.IsRunning() {
		return notRunning(dev.Name)
	}

	_, err = s.invoke(ctx, false, "install", dev.UDID, bundlePath)
	return err
}

func validateBundle(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &Error{Kind: KindBundleNotFound, Path: path, Detail: "no such path"}
	}
	if !info.IsDir() {
		return &Error{Kind: KindBundleNotFound, Path: path, Detail: "not a directory"}
	}
	if !strings.HasSuffix(path, ".app") {
		return &Error{Kind: KindBundleNotFound, Path: path, Detail: "not an .app bundle"}
	}
	if _, err := os.Stat(filepath.Join(path, "Info.plist")); err != nil {
		return &Error{Kind: KindBundleNotFound, Path: path, Detail: "missing Info.plist"}
	}
	return nil
}

// Create makes a new simulator and returns its backend-assigned UDID. The
// device type is resolved against the catalog; the runtime is synthesized on
// the fast path when possible and simctl itself validates it, which keeps
// the common path to a single catalog fetch.
func (s *Service) Create(ctx context.Context, name, deviceType, runtime string) (string, error) {
	types, err := s.ListDeviceTypes(ctx)
	if err != nil {
		return "", err
	}
	typeID, err := ResolveDeviceType(deviceType, types)
	if err != nil {
		return "", err
	}

	runtimeID, ok := SynthesizeRuntimeID(runtime, PlatformHintFromDeviceType(typeID))
	if !ok {
		runtimes, err := s.ListRuntimes(ctx)
		if err != nil {
			return "", err
		}
		runtimeID, err = ResolveRuntime(runtime, runtimes)
		if err != nil {
			return "", err
		}
	}

	out, err := s.invoke(ctx, false, "create", name, typeID, runtimeID)
	if err != nil {
		return "", err
	}

	udid := strings.TrimSpace(string(out))
	if !looksLikeUDID(udid) {
		return "", malformed("create did not return a UDID", out)
	}
	return udid, nil
}

// Delete removes a device, shutting it down first when running. Gone-ness is
// verified best-effort: a straggler is logged, not returned, so batch
// cleanup never blocks on it.
func (s *Service) Delete(ctx context.Context, identifier string) error {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return err
	}

	dev, err := pickDevice(devices, identifier, "", true)
	if err != nil {
		return err
	}

	if dev.State.IsRunning() {
		if err := s.shutdownDevice(ctx, dev); err != nil {
			return err
		}
	}

	if _, err := s.invoke(ctx, false, "delete", dev.UDID); err != nil {
		return err
	}

	s.verifyDeleted(ctx, []string{dev.UDID})
	return nil
}

// BulkDelete removes several devices in one simctl call. Running members are
// stopped best-effort first: a device that refuses to stop is still handed
// to delete rather than aborting the batch.
func (s *Service) BulkDelete(ctx context.Context, identifiers []string) error {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	var targets []*Device
	for _, id := range identifiers {
		dev, err := pickDevice(devices, id, "", true)
		if err != nil {
			return err
		}
		if seen[dev.UDID] {
			continue
		}
		seen[dev.UDID] = true
		targets = append(targets, dev)
	}
	if len(targets) == 0 {
		return nil
	}

	for _, dev := range targets {
		if !dev.State.IsRunning() {
			continue
		}
		if err := s.shutdownDevice(ctx, dev); err != nil {
			log.Warn().Str("device", dev.Name).Err(err).Msg("could not stop device before delete")
		}
	}

	args := make([]string, 0, len(targets)+1)
	args = append(args, "delete")
	udids := make([]string, 0, len(targets))
	for _, dev := range targets {
		args = append(args, dev.UDID)
		udids = append(udids, dev.UDID)
	}
	if _, err := s.invoke(ctx, false, args...); err != nil {
		return err
	}

	s.verifyDeleted(ctx, udids)
	return nil
}

// verifyDeleted polls until none of the UDIDs appear in the device list or
// the delete budget runs out. Stragglers are logged at warn level.
func (s *Service) verifyDeleted(ctx context.Context, udids []string) {
	remaining := udids
	for attempt := 0; attempt < s.poll.DeleteAttempts; attempt++ {
		devices, err := s.ListDevices(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not verify deletion")
			return
		}

		present := map[string]bool{}
		for i := range devices {
			present[devices[i].UDID] = true
		}
		remaining = remaining[:0]
		for _, u := range udids {
			if present[u] {
				remaining = append(remaining, u)
			}
		}
		if len(remaining) == 0 {
			return
		}
		if err := sleepCtx(ctx, s.poll.DeleteInterval); err != nil {
			return
		}
	}
	log.Warn().Strs("udids", remaining).Msg("devices still listed after delete")
}

// waitForState polls the device list until the device reaches target. A
// transient state sleeps and retries; a terminal state other than target
// means the backend failed the operation silently, which is a hard error.
func (s *Service) waitForState(ctx context.Context, udid string, target DeviceState) error {
	for attempt := 0; attempt < s.poll.BootAttempts; attempt++ {
		devices, err := s.ListDevices(ctx)
		if err != nil {
			return err
		}

		var current *Device
		for i := range devices {
			if devices[i].UDID == udid {
				current = &devices[i]
				break
			}
		}
		if current == nil {
			return notFound(udid)
		}

		switch {
		case current.State == target:
			return nil
		case current.State == StateBooting || current.State == StateShuttingDown:
			log.Debug().Str("udid", udid).Str("state", string(current.State)).Str("want", string(target)).Msg("waiting")
		default:
			return &Error{
				Kind:       KindExecutionFailed,
				Identifier: udid,
				Detail:     fmt.Sprintf("device reported %s while waiting for %s", current.State, target),
			}
		}

		if err := sleepCtx(ctx, s.poll.BootInterval); err != nil {
			return err
		}
	}
	return &Error{Kind: KindTimeout, Identifier: udid, Detail: fmt.Sprintf("device never reached %s", target)}
}

func (s *Service) saveRecent(udid string) {
	if s.recents == nil {
		return
	}
	if err := s.recents.SaveLastBooted(udid); err != nil {
		log.Debug().Err(err).Msg("could not save last booted device")
	}
}

// pickDevice resolves loose input against a device snapshot: exact UDID
// first, then exact name (case-insensitive). Unavailable devices never
// match. Among several same-name matches, preferRunning picks a running one
// (shutdown targets), otherwise the newest runtime wins; a runtime filter
// narrows the field before the tie-break.
func pickDevice(devices []Device, identifier, runtimeFilter string, preferRunning bool) (*Device, error) {
	if looksLikeUDID(identifier) {
		for i := range devices {
			if devices[i].UDID == identifier {
				if !devices[i].IsAvailable {
					return nil, notFound(identifier)
				}
				return &devices[i], nil
			}
		}
		return nil, notFound(identifier)
	}

	lower := strings.ToLower(identifier)
	var matches []*Device
	for i := range devices {
		if devices[i].IsAvailable && strings.ToLower(devices[i].Name) == lower {
			matches = append(matches, &devices[i])
		}
	}
	if len(matches) == 0 {
		return nil, notFound(identifier)
	}

	if runtimeFilter != "" {
		narrowed, err := filterByRuntime(matches, runtimeFilter)
		if err != nil {
			return nil, err
		}
		matches = narrowed
	}

	if preferRunning {
		for _, m := range matches {
			if m.State.IsRunning() {
				return m, nil
			}
		}
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if CompareVersions(m.OSVersion(), best.OSVersion()) > 0 {
			best = m
		}
	}
	return best, nil
}

// filterByRuntime keeps the candidates whose runtime matches the filter,
// resolving it through the runtime ladder over a catalog synthesized from
// the candidates themselves.
func filterByRuntime(matches []*Device, filter string) ([]*Device, error) {
	catalog := make([]Runtime, 0, len(matches))
	seen := map[string]bool{}
	for _, m := range matches {
		if seen[m.RuntimeID] {
			continue
		}
		seen[m.RuntimeID] = true
		platform, version := ParseRuntimeID(m.RuntimeID)
		catalog = append(catalog, Runtime{
			Identifier:  m.RuntimeID,
			Name:        fmt.Sprintf("%s %s", platformToken(platform), version),
			Version:     version,
			IsAvailable: true,
		})
	}

	runtimeID, err := ResolveRuntime(filter, catalog)
	if err != nil {
		return nil, err
	}

	var narrowed []*Device
	for _, m := range matches {
		if m.RuntimeID == runtimeID {
			narrowed = append(narrowed, m)
		}
	}
	if len(narrowed) == 0 {
		return nil, notFound(filter)
	}
	return narrowed, nil
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
