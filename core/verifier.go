package core

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// VerifierConfig sets the target band the report is judged against and the
// severity buckets for gaps. The duration cut-offs are configuration, not
// judgment baked into code.
type VerifierConfig struct {
	Target model.TargetRange

	// Gaps shorter than MinorMax are minor; shorter than ModerateMax are
	// moderate; anything else is major.
	MinorMax    time.Duration
	ModerateMax time.Duration
}

// DefaultVerifierConfig returns the conventional severity buckets.
func DefaultVerifierConfig(target model.TargetRange) VerifierConfig {
	return VerifierConfig{
		Target:      target,
		MinorMax:    5 * time.Minute,
		ModerateMax: 30 * time.Minute,
	}
}

// Verify re-derives coverage statistics for a plan from the original
// visibility series. It is independent of whatever produced the plan, so
// it audits externally supplied pools the same way it validates the
// optimizer's own output. Pure and deterministic: identical inputs yield
// identical reports.
//
// A plan referencing an ID absent from the candidate set is a
// data-integrity error and fails verification.
func Verify(set *CandidateSet, plan *model.CoveragePlan, cfg VerifierConfig) (*model.CoverageReport, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: nil plan", ErrInvalidTarget)
	}
	if cfg.Target.Min <= 0 || cfg.Target.Max < cfg.Target.Min {
		return nil, fmt.Errorf("%w: range [%d, %d]", ErrInvalidTarget, cfg.Target.Min, cfg.Target.Max)
	}

	pool := make([]*model.SatelliteCandidate, 0, len(plan.SelectedIDs))
	for _, id := range plan.SelectedIDs {
		c := set.Get(id)
		if c == nil {
			return nil, fmt.Errorf("%w: plan references %q", ErrCandidateNotFound, id)
		}
		pool = append(pool, c)
	}

	timeline := UnifiedTimeline(set.List())
	if len(timeline) == 0 {
		return nil, ErrEmptyTimeline
	}
	step := TimelineStep(timeline)

	report := &model.CoverageReport{
		PerInstantCounts: make([]model.InstantCount, 0, len(timeline)),
		TotalInstants:    len(timeline),
		MinVisibleCount:  -1,
	}

	countSum := 0
	var gap *model.Gap
	for _, t := range timeline {
		count := 0
		for _, c := range pool {
			if c.VisibleAt(t) {
				count++
			}
		}
		report.PerInstantCounts = append(report.PerInstantCounts, model.InstantCount{
			Timestamp:    t,
			VisibleCount: count,
		})

		countSum += count
		if report.MinVisibleCount < 0 || count < report.MinVisibleCount {
			report.MinVisibleCount = count
		}
		if count > report.MaxVisibleCount {
			report.MaxVisibleCount = count
		}

		if cfg.Target.Contains(count) {
			report.MetInstants++
			if gap != nil {
				report.Gaps = append(report.Gaps, closeGap(gap, step, cfg))
				gap = nil
			}
			continue
		}

		if gap == nil {
			gap = &model.Gap{Start: t, End: t, MinCountDuring: count}
		} else {
			gap.End = t
			if count < gap.MinCountDuring {
				gap.MinCountDuring = count
			}
		}
	}
	if gap != nil {
		report.Gaps = append(report.Gaps, closeGap(gap, step, cfg))
	}

	if report.MinVisibleCount < 0 {
		report.MinVisibleCount = 0
	}
	report.CoverageRate = float64(report.MetInstants) / float64(report.TotalInstants)
	report.AverageVisibleCount = float64(countSum) / float64(report.TotalInstants)
	return report, nil
}

// closeGap finalises a gap's duration and severity. A gap covering n
// instants spans (n-1) steps plus the step of its last instant, so a
// single unmet instant still has a non-zero duration.
func closeGap(gap *model.Gap, step time.Duration, cfg VerifierConfig) model.Gap {
	gap.Duration = gap.End.Sub(gap.Start) + step
	switch {
	case cfg.MinorMax > 0 && gap.Duration < cfg.MinorMax:
		gap.Severity = model.GapMinor
	case cfg.ModerateMax > 0 && gap.Duration < cfg.ModerateMax:
		gap.Severity = model.GapModerate
	default:
		gap.Severity = model.GapMajor
	}
	return *gap
}
