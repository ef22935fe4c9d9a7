package sim

import (
	"context"
	"time"
)

// diagnoseTimeout bounds each probe so a wedged simctl cannot hang doctor.
const diagnoseTimeout = 15 * time.Second

// Diagnose builds a fresh DoctorReport: a cheap `simctl help` to test
// reachability, then a real `list devices --json` to test structured-output
// support. It never returns an error; failures become notes.
func (s *Service) Diagnose(ctx context.Context) *DoctorReport {
	report := &DoctorReport{SimctlPath: s.inv.Path()}

	opts := InvokeOptions{Timeout: diagnoseTimeout}
	if _, err := s.inv.Invoke(ctx, []string{"help"}, opts); err != nil {
		report.Notes = append(report.Notes, "simctl is not responding: "+err.Error())
		return report
	}
	report.Reachable = true

	opts.JSON = true
	out, err := s.inv.Invoke(ctx, []string{"list", "devices"}, opts)
	if err != nil {
		report.Notes = append(report.Notes, "structured output unavailable: "+err.Error())
		return report
	}
	if _, err := DecodeDevices(out); err != nil {
		report.Notes = append(report.Notes, "structured output did not parse: "+err.Error())
		return report
	}
	report.JSONSupported = true
	return report
}
