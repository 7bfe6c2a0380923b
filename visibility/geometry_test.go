package visibility

import (
	"math"
	"testing"
)

func TestElevationDegrees_Overhead(t *testing.T) {
	observer := Vec3{X: EarthRadiusKm, Y: 0, Z: 0}
	target := Vec3{X: EarthRadiusKm + 550, Y: 0, Z: 0}

	if elev := ElevationDegrees(observer, target); math.Abs(elev-90) > 1e-6 {
		t.Fatalf("overhead elevation = %v, want 90", elev)
	}
}

func TestElevationDegrees_Horizon(t *testing.T) {
	observer := Vec3{X: EarthRadiusKm, Y: 0, Z: 0}
	// Target along the local horizontal plane (tangent direction).
	target := Vec3{X: EarthRadiusKm, Y: 1000, Z: 0}

	if elev := ElevationDegrees(observer, target); math.Abs(elev) > 1e-6 {
		t.Fatalf("tangent elevation = %v, want 0", elev)
	}
}

func TestElevationDegrees_BelowHorizon(t *testing.T) {
	observer := Vec3{X: EarthRadiusKm, Y: 0, Z: 0}
	// Target on the far side, below the observer's horizon.
	target := Vec3{X: -EarthRadiusKm - 550, Y: 0, Z: 0}

	if elev := ElevationDegrees(observer, target); elev >= 0 {
		t.Fatalf("far-side elevation = %v, want negative", elev)
	}
}

func TestGroundStationECEF(t *testing.T) {
	// Equator at the prime meridian sits on the +X axis.
	equator := GroundStationECEF(0, 0, 0)
	if math.Abs(equator.X-EarthRadiusKm) > 1e-6 || math.Abs(equator.Y) > 1e-6 || math.Abs(equator.Z) > 1e-6 {
		t.Fatalf("equator position = %+v, want (%v, 0, 0)", equator, EarthRadiusKm)
	}

	// The north pole sits on the +Z axis, altitude added radially.
	pole := GroundStationECEF(90, 0, 2)
	if math.Abs(pole.Z-(EarthRadiusKm+2)) > 1e-6 {
		t.Fatalf("pole Z = %v, want %v", pole.Z, EarthRadiusKm+2)
	}
	if math.Abs(pole.X) > 1e-6 || math.Abs(pole.Y) > 1e-6 {
		t.Fatalf("pole X/Y = %v/%v, want 0/0", pole.X, pole.Y)
	}
}

func TestVec3Helpers(t *testing.T) {
	a := Vec3{X: 3, Y: 4, Z: 0}
	if n := a.Norm(); n != 5 {
		t.Errorf("Norm = %v, want 5", n)
	}
	if d := a.DistanceTo(Vec3{}); d != 5 {
		t.Errorf("DistanceTo origin = %v, want 5", d)
	}
	if dot := a.Dot(Vec3{X: 1, Y: 1, Z: 1}); dot != 7 {
		t.Errorf("Dot = %v, want 7", dot)
	}
}
