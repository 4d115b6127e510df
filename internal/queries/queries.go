// Package queries provides pure derived views over run and report
// collections. Functions here take snapshots and return results without
// touching the store or performing I/O, so they stay testable in isolation.
package queries

import (
	"time"

	"github.com/pentest-portal/internal/domain"
)

// RunInfo summarizes a customer's run history for display: the most recent
// completed run and the earliest still-scheduled run. Either may be nil.
type RunInfo struct {
	LastRun          *domain.TestRun `json:"last_run"`
	NextScheduledRun *domain.TestRun `json:"next_scheduled_run"`
}

// effectiveEnd is the ordering key for completed runs. Runs without an end
// timestamp are ordered by creation time instead, which is what the "Last
// Run" column displays.
func effectiveEnd(run *domain.TestRun) time.Time {
	if run.EndedAt != nil {
		return *run.EndedAt
	}
	return run.CreatedAt
}

// ComputeRunInfo derives RunInfo from a customer's run collection.
func ComputeRunInfo(runs []*domain.TestRun) RunInfo {
	var info RunInfo

	for _, run := range runs {
		switch run.Status {
		case domain.RunCompleted:
			if info.LastRun == nil || effectiveEnd(run).After(effectiveEnd(info.LastRun)) {
				info.LastRun = run
			}
		case domain.RunScheduled:
			if info.NextScheduledRun == nil || run.ScheduledAt.Before(info.NextScheduledRun.ScheduledAt) {
				info.NextScheduledRun = run
			}
		}
	}

	return info
}

// AggregateSeverity sums severity counts across all reports in view.
func AggregateSeverity(reports []*domain.Report) domain.SeveritySummary {
	var total domain.SeveritySummary
	for _, report := range reports {
		total.Critical += report.SeverityCritical
		total.High += report.SeverityHigh
		total.Medium += report.SeverityMedium
		total.Low += report.SeverityLow
	}
	return total
}
