package model

import "time"

// Constellation tags a satellite with the constellation it belongs to.
// Threshold tables and target visible-count ranges are keyed by this tag.
type Constellation string

// VisibilitySample is one instant of the externally computed visibility
// contract for a single satellite: geometry observables plus the
// feasibility verdict. The analyzer never recomputes the physics behind
// IsVisible; it only checks shape and numeric sanity.
type VisibilitySample struct {
	Timestamp    time.Time `json:"timestamp"`
	ElevationDeg float64   `json:"elevation_deg"`
	DistanceKm   float64   `json:"distance_km"`
	IsVisible    bool      `json:"is_visible"`
}

// SatelliteCandidate is one satellite offered to the coverage optimizer.
//
// VisibilitySeries must be strictly time-ordered with no duplicate
// timestamps; satellites from different constellations need not share the
// same timestamp grid.
type SatelliteCandidate struct {
	ID               string             `json:"id"`
	Constellation    Constellation      `json:"constellation"`
	VisibilitySeries []VisibilitySample `json:"visibility_series"`
}

// VisibleAt reports whether the candidate has a visible sample exactly at t.
func (c *SatelliteCandidate) VisibleAt(t time.Time) bool {
	// Series are sorted; binary search keeps this cheap for long windows.
	lo, hi := 0, len(c.VisibilitySeries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case c.VisibilitySeries[mid].Timestamp.Before(t):
			lo = mid + 1
		case c.VisibilitySeries[mid].Timestamp.After(t):
			hi = mid
		default:
			return c.VisibilitySeries[mid].IsVisible
		}
	}
	return false
}
