package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// visibilityCandidate builds a candidate with one sample per flag, spaced
// ten seconds apart from a fixed epoch. Shared by the optimizer and
// verifier tests.
func visibilityCandidate(id string, tag model.Constellation, visible ...bool) *model.SatelliteCandidate {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	series := make([]model.VisibilitySample, 0, len(visible))
	for i, v := range visible {
		series = append(series, model.VisibilitySample{
			Timestamp:    base.Add(time.Duration(i) * 10 * time.Second),
			ElevationDeg: 35,
			DistanceKm:   900,
			IsVisible:    v,
		})
	}
	return &model.SatelliteCandidate{ID: id, Constellation: tag, VisibilitySeries: series}
}

func mustAdd(t *testing.T, set *CandidateSet, candidates ...*model.SatelliteCandidate) {
	t.Helper()
	for _, c := range candidates {
		if err := set.Add(c); err != nil {
			t.Fatalf("Add(%s): %v", c.ID, err)
		}
	}
}

// TestOptimizeTrivialCover verifies that when one candidate alone satisfies
// the target, the plan contains exactly that candidate: partial overlaps
// must not inflate the pool.
func TestOptimizeTrivialCover(t *testing.T) {
	set := NewCandidateSet()
	mustAdd(t, set,
		visibilityCandidate("sat-a", "leo", true, true, false, false),
		visibilityCandidate("sat-b", "leo", false, false, true, true),
		visibilityCandidate("sat-c", "leo", true, true, true, true),
	)

	opt, err := NewOptimizer(OptimizerConfig{
		Target:                model.TargetRange{Min: 1, Max: 3},
		CoverageRateThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	plan, err := opt.Optimize(context.Background(), set, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(plan.SelectedIDs) != 1 || plan.SelectedIDs[0] != "sat-c" {
		t.Fatalf("SelectedIDs = %v, want [sat-c]", plan.SelectedIDs)
	}
	if plan.TargetShortfall {
		t.Errorf("TargetShortfall = true, want false")
	}
	if plan.AchievedRate != 1.0 {
		t.Errorf("AchievedRate = %v, want 1.0", plan.AchievedRate)
	}
	if plan.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", plan.Iterations)
	}
}

// TestOptimizeDeterministicTieBreak verifies equal marginal gains resolve
// to the lowest candidate ID, so repeated runs over the same input yield
// the same plan.
func TestOptimizeDeterministicTieBreak(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{
		Target:                model.TargetRange{Min: 1, Max: 2},
		CoverageRateThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	for run := 0; run < 5; run++ {
		set := NewCandidateSet()
		mustAdd(t, set,
			visibilityCandidate("sat-b", "leo", true, true, true),
			visibilityCandidate("sat-a", "leo", true, true, true),
		)
		plan, err := opt.Optimize(context.Background(), set, nil)
		if err != nil {
			t.Fatalf("Optimize run %d: %v", run, err)
		}
		if len(plan.SelectedIDs) != 1 || plan.SelectedIDs[0] != "sat-a" {
			t.Fatalf("run %d: SelectedIDs = %v, want [sat-a]", run, plan.SelectedIDs)
		}
	}
}

// TestOptimizeShortfallBestEffort verifies an unreachable coverage-rate
// threshold yields the best-effort plan with the shortfall flagged and the
// true achieved rate reported.
func TestOptimizeShortfallBestEffort(t *testing.T) {
	set := NewCandidateSet()
	mustAdd(t, set, visibilityCandidate("sat-a", "leo", true, false))

	opt, err := NewOptimizer(OptimizerConfig{
		Target:                model.TargetRange{Min: 1, Max: 2},
		CoverageRateThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	plan, err := opt.Optimize(context.Background(), set, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !plan.TargetShortfall {
		t.Fatalf("TargetShortfall = false, want true")
	}
	if len(plan.SelectedIDs) != 1 || plan.SelectedIDs[0] != "sat-a" {
		t.Errorf("SelectedIDs = %v, want best-effort [sat-a]", plan.SelectedIDs)
	}
	if plan.AchievedRate != 0.5 {
		t.Errorf("AchievedRate = %v, want 0.5", plan.AchievedRate)
	}
}

// TestOptimizePoolCeiling verifies the sanity ceiling stops the greedy
// loop on infeasible input instead of selecting every candidate.
func TestOptimizePoolCeiling(t *testing.T) {
	set := NewCandidateSet()
	mustAdd(t, set,
		visibilityCandidate("sat-a", "leo", true, false, false, false),
		visibilityCandidate("sat-b", "leo", false, true, false, false),
		visibilityCandidate("sat-c", "leo", false, false, true, false),
		visibilityCandidate("sat-d", "leo", false, false, false, true),
	)

	opt, err := NewOptimizer(OptimizerConfig{
		Target:                model.TargetRange{Min: 1, Max: 1},
		CoverageRateThreshold: 1.0,
		CeilingMultiplier:     2,
	})
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	plan, err := opt.Optimize(context.Background(), set, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !plan.TargetShortfall {
		t.Fatalf("TargetShortfall = false, want true at ceiling")
	}
	if len(plan.SelectedIDs) != 2 {
		t.Errorf("pool size = %d, want ceiling 2", len(plan.SelectedIDs))
	}
}

// TestOptimizeCountsNeverVisibleCandidates verifies candidates with no
// visible sample are skipped and counted, never selected.
func TestOptimizeCountsNeverVisibleCandidates(t *testing.T) {
	set := NewCandidateSet()
	mustAdd(t, set,
		visibilityCandidate("sat-dark", "leo", false, false),
		visibilityCandidate("sat-lit", "leo", true, true),
	)

	opt, err := NewOptimizer(OptimizerConfig{
		Target:                model.TargetRange{Min: 1, Max: 2},
		CoverageRateThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	var skips model.SkipCounters
	plan, err := opt.Optimize(context.Background(), set, &skips)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if skips.CandidatesNeverVisible != 1 {
		t.Errorf("CandidatesNeverVisible = %d, want 1", skips.CandidatesNeverVisible)
	}
	if len(plan.SelectedIDs) != 1 || plan.SelectedIDs[0] != "sat-lit" {
		t.Errorf("SelectedIDs = %v, want [sat-lit]", plan.SelectedIDs)
	}
}

// TestOptimizeEmptyTimelineFails verifies an empty candidate set is a
// fatal input error.
func TestOptimizeEmptyTimelineFails(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{
		Target:                model.TargetRange{Min: 1, Max: 2},
		CoverageRateThreshold: 0.95,
	})
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	if _, err := opt.Optimize(context.Background(), NewCandidateSet(), nil); !errors.Is(err, ErrEmptyTimeline) {
		t.Errorf("Optimize(empty) error = %v, want ErrEmptyTimeline", err)
	}
}

// TestNewOptimizerValidatesTarget covers the malformed-configuration
// rejections.
func TestNewOptimizerValidatesTarget(t *testing.T) {
	cases := []OptimizerConfig{
		{Target: model.TargetRange{Min: 0, Max: 2}, CoverageRateThreshold: 0.95},
		{Target: model.TargetRange{Min: 3, Max: 2}, CoverageRateThreshold: 0.95},
		{Target: model.TargetRange{Min: 1, Max: 2}, CoverageRateThreshold: 0},
		{Target: model.TargetRange{Min: 1, Max: 2}, CoverageRateThreshold: 1.5},
	}
	for i, cfg := range cases {
		if _, err := NewOptimizer(cfg); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("case %d: error = %v, want ErrInvalidTarget", i, err)
		}
	}
}

// TestMarginalGainIgnoresCoveredInstants verifies the gain counts only
// instants still below the minimum, so gains shrink as coverage builds.
func TestMarginalGainIgnoresCoveredInstants(t *testing.T) {
	ci := candidateIndex{id: "sat-x", visibleAt: []int{0, 1, 2}}
	counts := []int{0, 0, 0}

	if g := marginalGain(ci, counts, 1); g != 3 {
		t.Fatalf("gain before coverage = %d, want 3", g)
	}
	counts[0] = 1
	counts[2] = 2
	if g := marginalGain(ci, counts, 1); g != 1 {
		t.Fatalf("gain after coverage = %d, want 1", g)
	}
}
