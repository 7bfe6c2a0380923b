package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/internal/logging"
	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// DefaultCeilingMultiplier bounds the pool size at Target.Max times this
// factor. Hitting the ceiling signals infeasible input rather than letting
// the greedy loop run forever.
const DefaultCeilingMultiplier = 3

// OptimizerConfig carries the coverage target for one optimization run.
type OptimizerConfig struct {
	// Target is the [min, max] concurrently-visible band the pool must keep.
	Target model.TargetRange
	// CoverageRateThreshold is the fraction of coverage instants that must
	// fall inside the band, e.g. 0.95.
	CoverageRateThreshold float64
	// CeilingMultiplier overrides DefaultCeilingMultiplier when > 0.
	CeilingMultiplier int
}

// PlanMetricsRecorder receives summary figures for a finished plan. The
// observability collector implements it; a nil recorder disables recording.
type PlanMetricsRecorder interface {
	RecordPlan(poolSize, iterations int, coverageRate float64)
}

// Optimizer selects a minimal-but-sufficient satellite pool by greedy
// set-cover over the unified timeline. The scoring rule is the classical
// "newly covered elements" count: a candidate's marginal gain is the number
// of instants still below Target.Min that it is visible at. Gains are exact
// integer counts, so the parallel evaluation below cannot introduce
// floating-point nondeterminism.
type Optimizer struct {
	cfg     OptimizerConfig
	log     logging.Logger
	metrics PlanMetricsRecorder
	workers int
}

// OptimizerOption customises an Optimizer.
type OptimizerOption func(*Optimizer)

// WithOptimizerLogger attaches a structured logger.
func WithOptimizerLogger(l logging.Logger) OptimizerOption {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPlanMetricsRecorder attaches a metrics recorder.
func WithPlanMetricsRecorder(m PlanMetricsRecorder) OptimizerOption {
	return func(o *Optimizer) { o.metrics = m }
}

// WithWorkers bounds the goroutines used for marginal-gain evaluation.
func WithWorkers(n int) OptimizerOption {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOptimizer constructs an optimizer for the given configuration.
func NewOptimizer(cfg OptimizerConfig, opts ...OptimizerOption) (*Optimizer, error) {
	if cfg.Target.Min <= 0 || cfg.Target.Max < cfg.Target.Min {
		return nil, fmt.Errorf("%w: range [%d, %d]", ErrInvalidTarget, cfg.Target.Min, cfg.Target.Max)
	}
	if cfg.CoverageRateThreshold <= 0 || cfg.CoverageRateThreshold > 1 {
		return nil, fmt.Errorf("%w: coverage rate threshold %v", ErrInvalidTarget, cfg.CoverageRateThreshold)
	}
	if cfg.CeilingMultiplier <= 0 {
		cfg.CeilingMultiplier = DefaultCeilingMultiplier
	}

	o := &Optimizer{
		cfg:     cfg,
		log:     logging.Noop(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// candidateIndex precomputes, per candidate, the timeline indices at which
// it is visible. The timeline and index are read-only during the greedy
// loop; only the shared counts slice mutates, and only between iterations.
type candidateIndex struct {
	id        string
	visibleAt []int
}

// Optimize runs the greedy loop and returns the resulting plan. The plan
// is best-effort: when the coverage-rate threshold is unreachable the
// TargetShortfall flag is set and the true achieved rate reported, never a
// relaxed target. Candidates with no visible samples are counted in skips.
func (o *Optimizer) Optimize(ctx context.Context, set *CandidateSet, skips *model.SkipCounters) (*model.CoveragePlan, error) {
	candidates := set.List()
	timeline := UnifiedTimeline(candidates)
	if len(timeline) == 0 {
		return nil, ErrEmptyTimeline
	}

	index := buildCandidateIndex(candidates, timeline)
	if skips != nil {
		for _, ci := range index {
			if len(ci.visibleAt) == 0 {
				skips.CandidatesNeverVisible++
			}
		}
	}

	counts := make([]int, len(timeline))
	selected := make(map[string]bool, len(index))
	ceiling := o.cfg.Target.Max * o.cfg.CeilingMultiplier

	plan := &model.CoveragePlan{Target: o.cfg.Target}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rate := o.coverageRate(counts)
		plan.AchievedRate = rate
		if rate >= o.cfg.CoverageRateThreshold {
			break
		}
		if len(plan.SelectedIDs) >= ceiling {
			plan.TargetShortfall = true
			o.log.Warn(ctx, "pool ceiling reached before coverage target",
				logging.Int("pool_size", len(plan.SelectedIDs)),
				logging.Any("coverage_rate", rate))
			break
		}

		best := o.bestCandidate(index, selected, counts)
		if best < 0 {
			// No unselected candidate covers any remaining under-covered
			// instant. Remaining shortfall becomes gaps in the report.
			plan.TargetShortfall = true
			o.log.Warn(ctx, "no candidate with positive marginal gain",
				logging.Int("pool_size", len(plan.SelectedIDs)),
				logging.Any("coverage_rate", rate))
			break
		}

		chosen := index[best]
		selected[chosen.id] = true
		plan.SelectedIDs = append(plan.SelectedIDs, chosen.id)
		for _, ti := range chosen.visibleAt {
			counts[ti]++
		}
		plan.Iterations++

		o.log.Debug(ctx, "candidate selected",
			logging.String("satellite_id", chosen.id),
			logging.Int("iteration", plan.Iterations))
	}

	if o.metrics != nil {
		o.metrics.RecordPlan(len(plan.SelectedIDs), plan.Iterations, plan.AchievedRate)
	}
	o.log.Info(ctx, "optimization finished",
		logging.Int("pool_size", len(plan.SelectedIDs)),
		logging.Int("iterations", plan.Iterations),
		logging.Any("coverage_rate", plan.AchievedRate),
		logging.Any("target_shortfall", plan.TargetShortfall))
	return plan, nil
}

// bestCandidate evaluates marginal gains for all unselected candidates in
// parallel and returns the index of the winner, breaking ties by lowest
// candidate ID. Returns -1 when no candidate has positive gain. Each worker
// writes only its own slots of the gains slice; the argmax reduction is a
// sequential scan in ID order, so the result is deterministic.
func (o *Optimizer) bestCandidate(index []candidateIndex, selected map[string]bool, counts []int) int {
	gains := make([]int, len(index))

	var wg sync.WaitGroup
	chunk := (len(index) + o.workers - 1) / o.workers
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < len(index); start += chunk {
		end := start + chunk
		if end > len(index) {
			end = len(index)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if selected[index[i].id] {
					gains[i] = -1
					continue
				}
				gains[i] = marginalGain(index[i], counts, o.cfg.Target.Min)
			}
		}(start, end)
	}
	wg.Wait()

	best := -1
	for i := range index {
		if gains[i] <= 0 {
			continue
		}
		// index is sorted by ID, so "first strictly greater" keeps the
		// lowest-ID winner on ties.
		if best < 0 || gains[i] > gains[best] {
			best = i
		}
	}
	return best
}

// marginalGain counts the instants still below min that the candidate is
// visible at.
func marginalGain(ci candidateIndex, counts []int, min int) int {
	gain := 0
	for _, ti := range ci.visibleAt {
		if counts[ti] < min {
			gain++
		}
	}
	return gain
}

func (o *Optimizer) coverageRate(counts []int) float64 {
	met := 0
	for _, c := range counts {
		if o.cfg.Target.Contains(c) {
			met++
		}
	}
	return float64(met) / float64(len(counts))
}

// buildCandidateIndex maps each candidate's visible samples onto timeline
// indices. Candidates are returned in ID order (List is sorted), which the
// tie-break in bestCandidate relies on.
func buildCandidateIndex(candidates []*model.SatelliteCandidate, timeline []time.Time) []candidateIndex {
	pos := make(map[int64]int, len(timeline))
	for i, t := range timeline {
		pos[t.UnixNano()] = i
	}

	index := make([]candidateIndex, 0, len(candidates))
	for _, c := range candidates {
		ci := candidateIndex{id: c.ID}
		for _, s := range c.VisibilitySeries {
			if !s.IsVisible {
				continue
			}
			if ti, ok := pos[s.Timestamp.UnixNano()]; ok {
				ci.visibleAt = append(ci.visibleAt, ti)
			}
		}
		index = append(index, ci)
	}
	return index
}
