package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// TestAddRejectsDuplicateID verifies a second candidate with the same ID
// is refused and the stored one is untouched.
func TestAddRejectsDuplicateID(t *testing.T) {
	set := NewCandidateSet()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &model.SatelliteCandidate{
		ID:            "sat-1",
		Constellation: "leo-a",
		VisibilitySeries: []model.VisibilitySample{
			{Timestamp: base, ElevationDeg: 40, DistanceKm: 800, IsVisible: true},
		},
	}
	if err := set.Add(first); err != nil {
		t.Fatalf("Add(first): %v", err)
	}

	dup := &model.SatelliteCandidate{ID: "sat-1", Constellation: "leo-b"}
	err := set.Add(dup)
	if !errors.Is(err, ErrCandidateExists) {
		t.Fatalf("Add(dup) error = %v, want ErrCandidateExists", err)
	}
	if got := set.Get("sat-1"); got.Constellation != "leo-a" {
		t.Errorf("stored constellation = %q, want leo-a", got.Constellation)
	}
}

// TestAddRejectsNonMonotonicSeries covers both out-of-order and duplicate
// timestamps; both violate strict monotonicity.
func TestAddRejectsNonMonotonicSeries(t *testing.T) {
	set := NewCandidateSet()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	outOfOrder := &model.SatelliteCandidate{
		ID: "sat-unsorted",
		VisibilitySeries: []model.VisibilitySample{
			{Timestamp: base.Add(10 * time.Second), ElevationDeg: 10, DistanceKm: 900, IsVisible: true},
			{Timestamp: base, ElevationDeg: 12, DistanceKm: 890, IsVisible: true},
		},
	}
	if err := set.Add(outOfOrder); !errors.Is(err, ErrSeriesNotMonotonic) {
		t.Errorf("Add(outOfOrder) error = %v, want ErrSeriesNotMonotonic", err)
	}

	duplicated := &model.SatelliteCandidate{
		ID: "sat-dup-ts",
		VisibilitySeries: []model.VisibilitySample{
			{Timestamp: base, ElevationDeg: 10, DistanceKm: 900, IsVisible: true},
			{Timestamp: base, ElevationDeg: 12, DistanceKm: 890, IsVisible: true},
		},
	}
	if err := set.Add(duplicated); !errors.Is(err, ErrSeriesNotMonotonic) {
		t.Errorf("Add(duplicated) error = %v, want ErrSeriesNotMonotonic", err)
	}
}

// TestAddRejectsInvalidObservables verifies NaN elevation and negative
// distance are refused as series-shape errors.
func TestAddRejectsInvalidObservables(t *testing.T) {
	set := NewCandidateSet()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	nanElevation := &model.SatelliteCandidate{
		ID: "sat-nan",
		VisibilitySeries: []model.VisibilitySample{
			{Timestamp: base, ElevationDeg: math.NaN(), DistanceKm: 800, IsVisible: true},
		},
	}
	if err := set.Add(nanElevation); !errors.Is(err, ErrSeriesInvalid) {
		t.Errorf("Add(nanElevation) error = %v, want ErrSeriesInvalid", err)
	}

	negativeDistance := &model.SatelliteCandidate{
		ID: "sat-neg",
		VisibilitySeries: []model.VisibilitySample{
			{Timestamp: base, ElevationDeg: 30, DistanceKm: -1, IsVisible: true},
		},
	}
	if err := set.Add(negativeDistance); !errors.Is(err, ErrSeriesInvalid) {
		t.Errorf("Add(negativeDistance) error = %v, want ErrSeriesInvalid", err)
	}

	if err := set.Add(nil); !errors.Is(err, ErrSeriesInvalid) {
		t.Errorf("Add(nil) error = %v, want ErrSeriesInvalid", err)
	}
}

// TestListAndConstellationsSorted verifies snapshot ordering is stable
// regardless of insertion order.
func TestListAndConstellationsSorted(t *testing.T) {
	set := NewCandidateSet()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, c := range []struct {
		id  string
		tag model.Constellation
	}{
		{"sat-c", "walker-delta"},
		{"sat-a", "polar"},
		{"sat-b", "walker-delta"},
	} {
		err := set.Add(&model.SatelliteCandidate{
			ID:            c.id,
			Constellation: c.tag,
			VisibilitySeries: []model.VisibilitySample{
				{Timestamp: base, ElevationDeg: 10, DistanceKm: 1000, IsVisible: true},
			},
		})
		if err != nil {
			t.Fatalf("Add(%s): %v", c.id, err)
		}
	}

	list := set.List()
	if len(list) != 3 || list[0].ID != "sat-a" || list[1].ID != "sat-b" || list[2].ID != "sat-c" {
		t.Errorf("List order wrong: %v %v %v", list[0].ID, list[1].ID, list[2].ID)
	}

	tags := set.Constellations()
	if len(tags) != 2 || tags[0] != "polar" || tags[1] != "walker-delta" {
		t.Errorf("Constellations = %v, want [polar walker-delta]", tags)
	}
}
