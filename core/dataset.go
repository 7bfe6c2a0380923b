package core

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// CandidateSet is an in-memory, thread-safe store for the satellites
// offered to the coverage optimizer. Candidates are validated on insertion
// so every downstream component can treat the stored series as clean,
// strictly time-ordered input. The set is treated as immutable once a run
// starts; no component mutates stored candidates.
type CandidateSet struct {
	mu sync.RWMutex

	candidates map[string]*model.SatelliteCandidate
}

// NewCandidateSet constructs an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{
		candidates: make(map[string]*model.SatelliteCandidate),
	}
}

// Add validates and stores a candidate. It returns an error wrapping
// ErrCandidateExists for duplicate IDs, ErrSeriesNotMonotonic for unsorted
// or duplicated timestamps, and ErrSeriesInvalid for non-finite
// observables. All of these are input-shape errors and fail the run.
func (cs *CandidateSet) Add(c *model.SatelliteCandidate) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: candidate with empty ID", ErrSeriesInvalid)
	}
	if err := validateSeries(c); err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.candidates[c.ID]; exists {
		return fmt.Errorf("%w: %q", ErrCandidateExists, c.ID)
	}
	cs.candidates[c.ID] = c
	return nil
}

// Get returns the candidate with the given ID, or nil if not found.
func (cs *CandidateSet) Get(id string) *model.SatelliteCandidate {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.candidates[id]
}

// Len returns the number of stored candidates.
func (cs *CandidateSet) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.candidates)
}

// List returns a snapshot slice of all candidates sorted by ID, so
// iteration order is reproducible across runs.
func (cs *CandidateSet) List() []*model.SatelliteCandidate {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	res := make([]*model.SatelliteCandidate, 0, len(cs.candidates))
	for _, c := range cs.candidates {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// IDs returns the sorted candidate IDs.
func (cs *CandidateSet) IDs() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	ids := make([]string, 0, len(cs.candidates))
	for id := range cs.candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Constellations returns the distinct constellation tags present, sorted.
func (cs *CandidateSet) Constellations() []model.Constellation {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	seen := make(map[model.Constellation]struct{})
	for _, c := range cs.candidates {
		seen[c.Constellation] = struct{}{}
	}
	res := make([]model.Constellation, 0, len(seen))
	for tag := range seen {
		res = append(res, tag)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func validateSeries(c *model.SatelliteCandidate) error {
	for i, s := range c.VisibilitySeries {
		if s.Timestamp.IsZero() {
			return fmt.Errorf("%w: candidate %q sample %d has zero timestamp", ErrSeriesInvalid, c.ID, i)
		}
		if i > 0 && !c.VisibilitySeries[i-1].Timestamp.Before(s.Timestamp) {
			return fmt.Errorf("%w: candidate %q at sample %d (%s >= %s)",
				ErrSeriesNotMonotonic, c.ID, i,
				c.VisibilitySeries[i-1].Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				s.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		}
		if math.IsNaN(s.ElevationDeg) || math.IsInf(s.ElevationDeg, 0) {
			return fmt.Errorf("%w: candidate %q sample %d has non-finite elevation", ErrSeriesInvalid, c.ID, i)
		}
		if math.IsNaN(s.DistanceKm) || math.IsInf(s.DistanceKm, 0) || s.DistanceKm < 0 {
			return fmt.Errorf("%w: candidate %q sample %d has invalid distance", ErrSeriesInvalid, c.ID, i)
		}
	}
	return nil
}
