package ui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mgriffin/simman/internal/sim"
)

// Renderer handles terminal output with colors and spinners
type Renderer struct {
	mu          sync.Mutex
	spinning    bool
	spinnerDone chan struct{}
}

// NewRenderer creates a new Renderer instance
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Colors
var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Spinner frames
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StartSpinner starts an animated spinner with a message
func (r *Renderer) StartSpinner(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.spinning {
		return
	}

	r.spinning = true
	r.spinnerDone = make(chan struct{})

	msg := fmt.Sprintf(format, args...)

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-r.spinnerDone:
				return
			case <-ticker.C:
				r.mu.Lock()
				fmt.Fprintf(os.Stderr, "\r%s %s", cyan(spinnerFrames[frame]), msg)
				r.mu.Unlock()
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// StopSpinner stops the spinner and clears its line
func (r *Renderer) StopSpinner(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.spinning {
		return
	}

	close(r.spinnerDone)
	r.spinning = false

	fmt.Fprint(os.Stderr, "\r\033[K")
}

// Success prints a success message
func (r *Renderer) Success(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// Error prints an error message
func (r *Renderer) Error(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), fmt.Sprintf(format, args...))
}

// Warning prints a warning message
func (r *Renderer) Warning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", yellow("!"), fmt.Sprintf(format, args...))
}

// Info prints an info message
func (r *Renderer) Info(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(format, args...))
}

// Dim prints dimmed/secondary text
func (r *Renderer) Dim(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s\n", dim(fmt.Sprintf(format, args...)))
}

// RenderDeviceTable prints devices grouped by platform, newest runtime first
// within each group.
func (r *Renderer) RenderDeviceTable(devices []sim.Device) {
	if len(devices) == 0 {
		r.Info("No devices found")
		return
	}

	byPlatform := map[sim.Platform][]sim.Device{}
	for _, d := range devices {
		byPlatform[d.Platform()] = append(byPlatform[d.Platform()], d)
	}

	platforms := make([]sim.Platform, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	for _, p := range platforms {
		group := byPlatform[p]
		sort.Slice(group, func(i, j int) bool {
			if c := sim.CompareVersions(group[i].OSVersion(), group[j].OSVersion()); c != 0 {
				return c > 0
			}
			return group[i].Name < group[j].Name
		})

		fmt.Fprintf(os.Stderr, "\n%s\n", bold(strings.ToUpper(string(p))))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stderr)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Name", "OS", "State", "UDID"})
		for _, d := range group {
			state := dim(string(d.State))
			if d.State == sim.StateBooted {
				state = green(string(d.State))
			}
			name := d.Name
			if !d.IsAvailable {
				name = dim(name + " (unavailable)")
			}
			t.AppendRow(table.Row{name, d.OSVersion(), state, dim(d.UDID)})
		}
		t.Render()
	}
	fmt.Fprintln(os.Stderr)
}

// RenderDeviceTypes prints the device type catalog.
func (r *Renderer) RenderDeviceTypes(types []sim.DeviceType) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stderr)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Identifier"})
	for _, dt := range types {
		t.AppendRow(table.Row{dt.Name, dim(dt.Identifier)})
	}
	t.Render()
}

// RenderRuntimes prints the runtime catalog.
func (r *Renderer) RenderRuntimes(runtimes []sim.Runtime) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stderr)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Version", "Identifier", "Available"})
	for _, rt := range runtimes {
		avail := green("yes")
		if !rt.IsAvailable {
			avail = red("no")
		}
		t.AppendRow(table.Row{rt.Name, rt.Version, dim(rt.Identifier), avail})
	}
	t.Render()
}

// RenderDoctor prints a diagnostic report.
func (r *Renderer) RenderDoctor(report *sim.DoctorReport) {
	check := func(ok bool, label string) {
		if ok {
			r.Success("%s", label)
		} else {
			r.Error("%s", label)
		}
	}

	r.Info("simctl: %s", report.SimctlPath)
	check(report.Reachable, "simctl responds")
	check(report.JSONSupported, "structured output supported")
	for _, note := range report.Notes {
		r.Warning("%s", note)
	}
}
