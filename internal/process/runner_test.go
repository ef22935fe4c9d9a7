package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mgriffin/simman/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertJSONFlag(t *testing.T) {
	assert.Equal(t,
		[]string{"simctl", "list", "--json", "devices"},
		insertJSONFlag([]string{"simctl", "list", "devices"}),
		"the flag follows the subcommand, not the whole command line")

	assert.Equal(t,
		[]string{"simctl", "list", "--json"},
		insertJSONFlag([]string{"simctl", "list"}))

	assert.Equal(t,
		[]string{"simctl", "boot", "some-udid"},
		insertJSONFlag([]string{"simctl", "boot", "some-udid"}),
		"subcommands without JSON support stay untouched")
}

func TestLockedBufferConcurrentAppend(t *testing.T) {
	var buf lockedBuffer
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = buf.Write([]byte("0123456789"))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, buf.Bytes(), 8*100*10)
}

func TestFindToolBadOverride(t *testing.T) {
	_, err := NewRunner(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, sim.IsKind(err, sim.KindToolNotInstalled))
}

func TestLooksLikeUnknownFlag(t *testing.T) {
	assert.True(t, looksLikeUnknownFlag(&sim.Error{Kind: sim.KindExecutionFailed, Detail: "Unrecognized option '--json'"}))
	assert.True(t, looksLikeUnknownFlag(&sim.Error{Kind: sim.KindExecutionFailed, Detail: "unknown option --json"}))
	assert.False(t, looksLikeUnknownFlag(&sim.Error{Kind: sim.KindExecutionFailed, Detail: "Invalid device: foo"}))
}

func shRunner() *Runner { return &Runner{path: "/bin/sh"} }

func TestExecDrainsBothStreamsWithoutDeadlock(t *testing.T) {
	// Enough output on both streams to overflow any pipe buffer.
	script := `i=0; while [ $i -lt 4000 ]; do
		echo "stdout-line-$i-0123456789012345678901234567890123456789"
		echo "stderr-line-$i-0123456789012345678901234567890123456789" >&2
		i=$((i+1))
	done`

	out, err := shRunner().exec(context.Background(), []string{"-c", script}, 30*time.Second)
	require.NoError(t, err)
	assert.Greater(t, len(out), 64*1024, "full stdout captured")
}

func TestExecNonZeroPrefersStderr(t *testing.T) {
	_, err := shRunner().exec(context.Background(), []string{"-c", "echo from-stdout; echo from-stderr >&2; exit 1"}, 0)
	require.Error(t, err)
	assert.True(t, sim.IsKind(err, sim.KindExecutionFailed))
	assert.Contains(t, err.Error(), "from-stderr")
	assert.NotContains(t, err.Error(), "from-stdout")
}

func TestExecNonZeroFallsBackToStdout(t *testing.T) {
	_, err := shRunner().exec(context.Background(), []string{"-c", "echo only-stdout; exit 2"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only-stdout")
}

func TestExecTimeoutKillsProcess(t *testing.T) {
	start := time.Now()
	_, err := shRunner().exec(context.Background(), []string{"-c", "echo partial; sleep 10"}, 150*time.Millisecond)
	require.Error(t, err)
	assert.True(t, sim.IsKind(err, sim.KindTimeout))
	assert.Less(t, time.Since(start), 5*time.Second, "did not wait out the sleep")
	assert.Contains(t, err.Error(), "partial", "bytes buffered before the kill are still flushed")
}

func TestExecContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := shRunner().exec(ctx, []string{"-c", "sleep 10"}, 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

// writeFakeTool writes a stand-in for xcrun that rejects --json the way an
// old simctl does.
func writeFakeTool(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xcrun")
	script := `#!/bin/sh
for arg in "$@"; do
	if [ "$arg" = "--json" ]; then
		echo "simctl: Unrecognized option '--json'" >&2
		exit 1
	fi
done
echo "plain output"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestInvokeJSONFallbackSurfacesUpgradeError(t *testing.T) {
	runner, err := NewRunner(writeFakeTool(t))
	require.NoError(t, err)

	_, err = runner.Invoke(context.Background(), []string{"list", "devices"}, sim.InvokeOptions{JSON: true})
	require.Error(t, err)
	assert.True(t, sim.IsKind(err, sim.KindExecutionFailed))
	assert.Contains(t, err.Error(), "upgrade", "the probe without the flag succeeding means simctl is just too old")
	assert.Contains(t, err.Error(), "Unrecognized", "raw output preview is referenced")
}

func TestInvokeJSONFallbackSurfacesSecondaryFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xcrun")
	script := `#!/bin/sh
for arg in "$@"; do
	if [ "$arg" = "--json" ]; then
		echo "Unrecognized option '--json'" >&2
		exit 1
	fi
done
echo "boom: device pair is corrupt" >&2
exit 3
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	runner, err := NewRunner(path)
	require.NoError(t, err)

	_, err = runner.Invoke(context.Background(), []string{"list", "devices"}, sim.InvokeOptions{JSON: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom", "a failed probe is never silently swallowed")
}

func TestInvokeWithoutJSON(t *testing.T) {
	runner, err := NewRunner(writeFakeTool(t))
	require.NoError(t, err)

	out, err := runner.Invoke(context.Background(), []string{"list", "devices"}, sim.InvokeOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "plain output")
}

func TestRunnerPathIsStable(t *testing.T) {
	tool := writeFakeTool(t)
	runner, err := NewRunner(tool)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Equal(t, tool, runner.Path())
	}
}

func TestPreviewTruncation(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'a'
	}
	p := sim.Preview(long)
	assert.Len(t, p, 203)
	assert.Equal(t, fmt.Sprintf("%s...", p[:200]), p)
}
