package measurement

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/core"
	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// SignalSet joins the per-satellite signal series with the visibility
// contract so the detector can ask, per coverage instant, which satellites
// are eligible for comparison. Eligibility requires the satellite to be
// visible at that instant and to have a measurement sample there. Immutable
// once built.
type SignalSet struct {
	candidates *core.CandidateSet
	members    []*model.SatelliteCandidate // pool members in ID order
	timeline   []time.Time

	// samples[satID][unixNanos] -> sample
	samples map[string]map[int64]*model.MeasurementSample
}

// NewSignalSet validates and indexes measurement samples against the
// candidate set. A pool filter (e.g. a plan's selected IDs) restricts both
// the timeline and eligibility to the pool; pass nil to use every
// candidate. Samples for unknown satellites and non-monotonic series are
// input-shape errors and fail the run.
func NewSignalSet(set *core.CandidateSet, samples []model.MeasurementSample, pool []string) (*SignalSet, error) {
	inPool := func(string) bool { return true }
	if pool != nil {
		members := make(map[string]bool, len(pool))
		for _, id := range pool {
			if set.Get(id) == nil {
				return nil, fmt.Errorf("%w: pool references %q", core.ErrCandidateNotFound, id)
			}
			members[id] = true
		}
		inPool = func(id string) bool { return members[id] }
	}

	indexed := make(map[string]map[int64]*model.MeasurementSample)
	lastSeen := make(map[string]time.Time)
	for i := range samples {
		s := &samples[i]
		if set.Get(s.SatelliteID) == nil {
			return nil, fmt.Errorf("%w: %q at sample %d", ErrUnknownSatellite, s.SatelliteID, i)
		}
		if !inPool(s.SatelliteID) {
			continue
		}
		if prev, ok := lastSeen[s.SatelliteID]; ok && !prev.Before(s.Timestamp) {
			return nil, fmt.Errorf("%w: satellite %q at %s", ErrSamplesNotMonotonic,
				s.SatelliteID, s.Timestamp.Format(time.RFC3339))
		}
		lastSeen[s.SatelliteID] = s.Timestamp

		bySat, ok := indexed[s.SatelliteID]
		if !ok {
			bySat = make(map[int64]*model.MeasurementSample)
			indexed[s.SatelliteID] = bySat
		}
		bySat[s.Timestamp.UnixNano()] = s
	}

	members := make([]*model.SatelliteCandidate, 0, len(indexed))
	for _, c := range set.List() {
		if inPool(c.ID) {
			members = append(members, c)
		}
	}

	return &SignalSet{
		candidates: set,
		members:    members,
		timeline:   core.UnifiedTimeline(members),
		samples:    indexed,
	}, nil
}

// Timeline returns the sorted coverage instants the detector iterates.
func (ss *SignalSet) Timeline() []time.Time { return ss.timeline }

// EligibleAt returns the measurement samples of all satellites that are
// visible at t and have a sample there, sorted deterministically by the
// candidate set's ID order.
func (ss *SignalSet) EligibleAt(t time.Time) []*model.MeasurementSample {
	nanos := t.UnixNano()
	var out []*model.MeasurementSample
	for _, c := range ss.members {
		bySat, ok := ss.samples[c.ID]
		if !ok {
			continue
		}
		s, ok := bySat[nanos]
		if !ok {
			continue
		}
		if !c.VisibleAt(t) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ConstellationOf returns the constellation tag for a satellite ID.
func (ss *SignalSet) ConstellationOf(id string) model.Constellation {
	if c := ss.candidates.Get(id); c != nil {
		return c.Constellation
	}
	return ""
}

// AllSamples returns every indexed sample; used by the dynamic threshold
// derivation helpers.
func (ss *SignalSet) AllSamples() []model.MeasurementSample {
	var out []model.MeasurementSample
	for _, bySat := range ss.samples {
		for _, s := range bySat {
			out = append(out, *s)
		}
	}
	return out
}
