package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mgriffin/simman/internal/sim"
	"github.com/rs/zerolog/log"
)

// probePaths are checked before falling back to a PATH lookup. xcrun lives
// in /usr/bin on every stock macOS install.
var probePaths = []string{
	"/usr/bin/xcrun",
	"/usr/local/bin/xcrun",
}

// jsonSubcommands are the simctl subcommands that accept --json. simctl is
// order-sensitive: the flag must follow the subcommand token, not lead the
// command line.
var jsonSubcommands = map[string]bool{
	"list": true,
}

// jsonUnsupportedMarkers is a heuristic match against the error text older
// simctl builds emit for an unknown --json flag. simctl exposes no dedicated
// exit code for this, so text is all there is.
var jsonUnsupportedMarkers = []string{
	"unrecognized",
	"unknown option",
	"invalid option",
}

// Runner invokes simctl through xcrun. The executable path is resolved once
// at construction and never changes afterward.
type Runner struct {
	path string
}

// NewRunner resolves the xcrun executable, preferring the override path when
// given, then the well-known locations, then a PATH search.
func NewRunner(override string) (*Runner, error) {
	path, err := findTool(override)
	if err != nil {
		return nil, err
	}
	return &Runner{path: path}, nil
}

func findTool(override string) (string, error) {
	if override != "" {
		if isExecutable(override) {
			return override, nil
		}
		return "", &sim.Error{Kind: sim.KindToolNotInstalled, Detail: fmt.Sprintf("configured path %s is not executable", override)}
	}
	for _, p := range probePaths {
		if isExecutable(p) {
			return p, nil
		}
	}
	if p, err := exec.LookPath("xcrun"); err == nil {
		return p, nil
	}
	return "", &sim.Error{Kind: sim.KindToolNotInstalled}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0111 != 0
}

// Path returns the resolved xcrun path.
func (r *Runner) Path() string { return r.path }

// Invoke runs `xcrun simctl <args>` and returns its stdout. When structured
// output is requested and simctl rejects the flag, the command is retried
// without it to distinguish "simctl too old" from a genuine failure; the
// caller still gets an error either way, never silently degraded output.
func (r *Runner) Invoke(ctx context.Context, args []string, opts sim.InvokeOptions) ([]byte, error) {
	full := append([]string{"simctl"}, args...)
	if opts.JSON {
		full = insertJSONFlag(full)
	}

	out, err := r.exec(ctx, full, opts.Timeout)
	if err == nil || !opts.JSON || !looksLikeUnknownFlag(err) {
		return out, err
	}

	preview := previewOf(err)
	log.Debug().Str("preview", preview).Msg("simctl rejected --json, probing without it")

	plain := append([]string{"simctl"}, args...)
	if _, perr := r.exec(ctx, plain, opts.Timeout); perr != nil {
		return nil, perr
	}
	return nil, &sim.Error{
		Kind:    sim.KindExecutionFailed,
		Detail:  "this simctl does not support --json output; upgrade Xcode or the command line tools",
		Preview: preview,
	}
}

// OpenSimulatorApp brings up the Simulator GUI. Best-effort by contract.
func (r *Runner) OpenSimulatorApp(ctx context.Context) error {
	return exec.CommandContext(ctx, "open", "-a", "Simulator").Run()
}

// insertJSONFlag places --json immediately after the first subcommand token
// that accepts it. Unknown shapes are left untouched.
func insertJSONFlag(args []string) []string {
	for i, a := range args {
		if jsonSubcommands[a] {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i+1]...)
			out = append(out, "--json")
			out = append(out, args[i+1:]...)
			return out
		}
	}
	return args
}

func looksLikeUnknownFlag(err error) bool {
	text := strings.ToLower(err.Error())
	for _, marker := range jsonUnsupportedMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func previewOf(err error) string {
	var e *sim.Error
	if errors.As(err, &e) && e.Preview != "" {
		return e.Preview
	}
	return sim.Preview([]byte(err.Error()))
}

// lockedBuffer is a mutex-guarded byte accumulator. Each stream reader gets
// its own buffer; the guard keeps the final flush after a timeout kill
// race-free.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// exec starts the process, drains stdout and stderr concurrently, and waits
// for exit, optionally bounded by a wall-clock timeout. Draining on separate
// goroutines avoids the deadlock where a full pipe buffer blocks the child
// while the parent waits on the other stream.
func (r *Runner) exec(ctx context.Context, args []string, timeout time.Duration) ([]byte, error) {
	log.Debug().Str("exe", r.path).Strs("args", args).Msg("exec")

	cmd := exec.CommandContext(ctx, r.path, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &sim.Error{Kind: sim.KindExecutionFailed, Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &sim.Error{Kind: sim.KindExecutionFailed, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &sim.Error{Kind: sim.KindExecutionFailed, Err: err}
	}

	var stdout, stderr lockedBuffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&stdout, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&stderr, stderrPipe)
	}()

	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- cmd.Wait()
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err = <-done:
	case <-timer:
		_ = cmd.Process.Kill()
		<-done // readers finish and flush before we report
		return nil, &sim.Error{
			Kind:    sim.KindTimeout,
			Detail:  fmt.Sprintf("simctl %s did not finish within %s", strings.Join(args[1:], " "), timeout),
			Preview: sim.Preview(stdout.Bytes()),
		}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return nil, ctx.Err()
	}

	out := stdout.Bytes()
	if err != nil {
		msg := strings.TrimSpace(string(stderr.Bytes()))
		if msg == "" {
			msg = strings.TrimSpace(string(out))
		}
		log.Debug().Strs("args", args).Str("output", sim.Preview([]byte(msg))).Msg("simctl exited non-zero")
		return nil, &sim.Error{Kind: sim.KindExecutionFailed, Detail: sim.Preview([]byte(msg)), Err: err}
	}

	log.Debug().Strs("args", args).Int("bytes", len(out)).Msg("simctl ok")
	return out, nil
}
