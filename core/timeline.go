package core

import (
	"sort"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// UnifiedTimeline returns the sorted union of all distinct timestamps
// across the candidates' visibility series. It defines the universe of
// coverage instants for the optimizer and the iteration order for the
// event detector. Pure function of its input.
func UnifiedTimeline(candidates []*model.SatelliteCandidate) []time.Time {
	seen := make(map[int64]time.Time)
	for _, c := range candidates {
		if c == nil {
			continue
		}
		for _, s := range c.VisibilitySeries {
			seen[s.Timestamp.UnixNano()] = s.Timestamp
		}
	}

	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// TimelineStep infers the sampling step of a timeline as the smallest
// positive gap between consecutive instants. Zero when the timeline has
// fewer than two instants.
func TimelineStep(timeline []time.Time) time.Duration {
	var step time.Duration
	for i := 1; i < len(timeline); i++ {
		d := timeline[i].Sub(timeline[i-1])
		if d <= 0 {
			continue
		}
		if step == 0 || d < step {
			step = d
		}
	}
	return step
}
