package visibility

import (
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// ISS sample TLE, epoch October 2021.
const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestNewGeneratorValidatesWindow(t *testing.T) {
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)

	cases := []GeneratorConfig{
		{Start: start, End: start.Add(time.Hour), Step: 0},
		{Start: start, End: start, Step: 10 * time.Second},
		{Start: start, End: start.Add(time.Hour), Step: 10 * time.Second, MinElevationDeg: -1},
		{Start: start, End: start.Add(time.Hour), Step: 10 * time.Second, MinElevationDeg: 90},
	}
	for i, cfg := range cases {
		if _, err := NewGenerator(cfg); err == nil {
			t.Errorf("case %d: expected config error", i)
		}
	}
}

// TestGeneratorCandidateSeriesShape propagates a real TLE and checks the
// output satisfies the visibility input contract: strictly increasing
// timestamps, finite observables, mask applied. Exact orbital values
// belong to go-satellite's own tests.
func TestGeneratorCandidateSeriesShape(t *testing.T) {
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	gen, err := NewGenerator(GeneratorConfig{
		LatitudeDeg:     0,
		LongitudeDeg:    0,
		AltitudeKm:      0,
		Start:           start,
		End:             start.Add(30 * time.Minute),
		Step:            time.Minute,
		MinElevationDeg: 25,
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	c, err := gen.Candidate(TLEEntry{ID: "iss", Constellation: "reference", Line1: issLine1, Line2: issLine2})
	if err != nil {
		t.Fatalf("Candidate: %v", err)
	}

	if len(c.VisibilitySeries) != 31 {
		t.Fatalf("len(series) = %d, want 31", len(c.VisibilitySeries))
	}
	for i, s := range c.VisibilitySeries {
		if i > 0 && !c.VisibilitySeries[i-1].Timestamp.Before(s.Timestamp) {
			t.Fatalf("series not strictly increasing at %d", i)
		}
		if s.DistanceKm <= 0 {
			t.Fatalf("sample %d distance = %v, want positive", i, s.DistanceKm)
		}
		if s.IsVisible && s.ElevationDeg < 25 {
			t.Fatalf("sample %d visible below mask: %v", i, s.ElevationDeg)
		}
		if !s.IsVisible && s.ElevationDeg >= 25 {
			t.Fatalf("sample %d not visible above mask: %v", i, s.ElevationDeg)
		}
	}
}

func TestGeneratorCandidateEmptyID(t *testing.T) {
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	gen, err := NewGenerator(GeneratorConfig{
		Start: start, End: start.Add(time.Minute), Step: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if _, err := gen.Candidate(TLEEntry{Line1: issLine1, Line2: issLine2}); err == nil {
		t.Fatalf("expected error for empty ID")
	}
}

// TestGeneratorMeasurements verifies the synthetic signal series mirrors
// the visibility series with path loss applied monotonically in distance.
func TestGeneratorMeasurements(t *testing.T) {
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	gen, err := NewGenerator(GeneratorConfig{
		Start: start, End: start.Add(time.Minute), Step: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	c := &model.SatelliteCandidate{
		ID: "sat-a",
		VisibilitySeries: []model.VisibilitySample{
			{Timestamp: start, DistanceKm: 800, IsVisible: true},
			{Timestamp: start.Add(time.Minute), DistanceKm: 1600, IsVisible: true},
		},
	}
	samples := gen.Measurements(c, 60, 20)
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	if samples[0].RSRPDbm <= samples[1].RSRPDbm {
		t.Errorf("RSRP must fall with distance: %v then %v", samples[0].RSRPDbm, samples[1].RSRPDbm)
	}
	if samples[0].MeasurementObjectOffsetDb == nil || samples[0].CellOffsetDb == nil {
		t.Errorf("synthetic samples must carry explicit zero offsets")
	}
	if !samples[0].Timestamp.Equal(start) {
		t.Errorf("timestamp mismatch: %v", samples[0].Timestamp)
	}
}

func TestLoadTLEEntries(t *testing.T) {
	payload := `{
		"satellites": [
			{"id": "iss", "constellation": "reference",
			 "line1": "` + issLine1 + `",
			 "line2": "` + issLine2 + `"}
		]
	}`
	entries, err := LoadTLEEntries(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadTLEEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "iss" || entries[0].Constellation != "reference" {
		t.Fatalf("entries = %+v", entries)
	}

	if _, err := LoadTLEEntries(strings.NewReader(`{"satellites": [{"id": "x", "line1": "only-one"}]}`)); err == nil {
		t.Errorf("incomplete TLE: expected error")
	}
	if _, err := LoadTLEEntries(strings.NewReader(`{"satellites": [{"line1": "a", "line2": "b"}]}`)); err == nil {
		t.Errorf("empty id: expected error")
	}
}
