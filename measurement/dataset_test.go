package measurement

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/core"
	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// TestNewSignalSetRejectsUnknownSatellite verifies a sample naming a
// satellite outside the candidate set is a fatal input error.
func TestNewSignalSetRejectsUnknownSatellite(t *testing.T) {
	set := core.NewCandidateSet()
	if err := set.Add(visibleCandidate("sat-a", "leo", 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	samples := []model.MeasurementSample{sampleAt("sat-ghost", 0, -90, 900)}
	_, err := NewSignalSet(set, samples, nil)
	if !errors.Is(err, ErrUnknownSatellite) {
		t.Fatalf("error = %v, want ErrUnknownSatellite", err)
	}
}

// TestNewSignalSetRejectsNonMonotonicSamples verifies per-satellite sample
// series must be strictly time-ordered.
func TestNewSignalSetRejectsNonMonotonicSamples(t *testing.T) {
	set := core.NewCandidateSet()
	if err := set.Add(visibleCandidate("sat-a", "leo", 3)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	samples := []model.MeasurementSample{
		sampleAt("sat-a", 1, -90, 900),
		sampleAt("sat-a", 0, -91, 905),
	}
	_, err := NewSignalSet(set, samples, nil)
	if !errors.Is(err, ErrSamplesNotMonotonic) {
		t.Fatalf("error = %v, want ErrSamplesNotMonotonic", err)
	}

	duplicate := []model.MeasurementSample{
		sampleAt("sat-a", 0, -90, 900),
		sampleAt("sat-a", 0, -91, 905),
	}
	_, err = NewSignalSet(set, duplicate, nil)
	if !errors.Is(err, ErrSamplesNotMonotonic) {
		t.Fatalf("duplicate timestamp error = %v, want ErrSamplesNotMonotonic", err)
	}
}

// TestNewSignalSetPoolFilter verifies the pool restricts membership and
// that a pool referencing an unknown ID fails.
func TestNewSignalSetPoolFilter(t *testing.T) {
	set := core.NewCandidateSet()
	if err := set.Add(visibleCandidate("sat-a", "leo", 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := set.Add(visibleCandidate("sat-b", "leo", 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	samples := []model.MeasurementSample{
		sampleAt("sat-a", 0, -90, 900),
		sampleAt("sat-b", 0, -85, 950),
	}

	sig, err := NewSignalSet(set, samples, []string{"sat-a"})
	if err != nil {
		t.Fatalf("NewSignalSet: %v", err)
	}
	eligible := sig.EligibleAt(detEpoch)
	if len(eligible) != 1 || eligible[0].SatelliteID != "sat-a" {
		t.Errorf("EligibleAt = %v, want only sat-a", eligible)
	}

	if _, err := NewSignalSet(set, samples, []string{"sat-missing"}); !errors.Is(err, core.ErrCandidateNotFound) {
		t.Errorf("unknown pool id error = %v, want ErrCandidateNotFound", err)
	}
}

// TestEligibleAtRequiresVisibilityAndSample verifies both halves of
// eligibility and the deterministic ID ordering of the result.
func TestEligibleAtRequiresVisibilityAndSample(t *testing.T) {
	set := core.NewCandidateSet()

	// sat-a visible at both instants, sat-b visible only at the first.
	if err := set.Add(visibleCandidate("sat-a", "leo", 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	bSeries := []model.VisibilitySample{
		{Timestamp: detEpoch, ElevationDeg: 30, DistanceKm: 1000, IsVisible: true},
		{Timestamp: detEpoch.Add(time.Second), ElevationDeg: 2, DistanceKm: 2500, IsVisible: false},
	}
	if err := set.Add(&model.SatelliteCandidate{ID: "sat-b", Constellation: "leo", VisibilitySeries: bSeries}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	samples := []model.MeasurementSample{
		sampleAt("sat-b", 0, -85, 1000),
		sampleAt("sat-b", 1, -95, 2500),
		sampleAt("sat-a", 1, -90, 900),
	}
	sig, err := NewSignalSet(set, samples, nil)
	if err != nil {
		t.Fatalf("NewSignalSet: %v", err)
	}

	// First instant: sat-a has no sample, sat-b qualifies.
	first := sig.EligibleAt(detEpoch)
	if len(first) != 1 || first[0].SatelliteID != "sat-b" {
		t.Errorf("EligibleAt(t0) = %v, want only sat-b", first)
	}

	// Second instant: sat-b is not visible despite having a sample.
	second := sig.EligibleAt(detEpoch.Add(time.Second))
	if len(second) != 1 || second[0].SatelliteID != "sat-a" {
		t.Errorf("EligibleAt(t1) = %v, want only sat-a", second)
	}

	if got := sig.ConstellationOf("sat-a"); got != "leo" {
		t.Errorf("ConstellationOf(sat-a) = %q, want leo", got)
	}
	if got := sig.ConstellationOf("sat-ghost"); got != "" {
		t.Errorf("ConstellationOf(sat-ghost) = %q, want empty", got)
	}
}
