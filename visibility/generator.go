package visibility

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// TLEEntry identifies one satellite by its two-line element set.
type TLEEntry struct {
	ID            string
	Constellation model.Constellation
	Line1         string
	Line2         string
}

// GeneratorConfig describes the observation window for a visibility run.
type GeneratorConfig struct {
	// Ground station location.
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeKm   float64

	// Window and sampling step.
	Start time.Time
	End   time.Time
	Step  time.Duration

	// MinElevationDeg is the feasibility mask: a satellite is visible when
	// its elevation meets or exceeds it.
	MinElevationDeg float64
}

// Generator is a reference producer for the visibility input contract. It
// propagates TLEs with SGP4 and derives elevation, slant distance, and the
// visibility verdict per step from the ground station's point of view. The
// analysis core consumes its output the same way it consumes externally
// supplied datasets; nothing downstream recomputes this geometry.
type Generator struct {
	cfg     GeneratorConfig
	station Vec3
}

// NewGenerator validates the window configuration.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Step <= 0 {
		return nil, fmt.Errorf("generator: step must be positive, got %v", cfg.Step)
	}
	if !cfg.End.After(cfg.Start) {
		return nil, fmt.Errorf("generator: window end %v not after start %v", cfg.End, cfg.Start)
	}
	if cfg.MinElevationDeg < 0 || cfg.MinElevationDeg >= 90 {
		return nil, fmt.Errorf("generator: min elevation %v out of range [0, 90)", cfg.MinElevationDeg)
	}
	return &Generator{
		cfg:     cfg,
		station: GroundStationECEF(cfg.LatitudeDeg, cfg.LongitudeDeg, cfg.AltitudeKm),
	}, nil
}

// Candidate builds the full visibility series for one TLE entry across the
// configured window.
func (g *Generator) Candidate(entry TLEEntry) (*model.SatelliteCandidate, error) {
	if entry.ID == "" {
		return nil, fmt.Errorf("generator: TLE entry with empty ID")
	}
	sat := satellite.TLEToSat(entry.Line1, entry.Line2, satellite.GravityWGS72)

	steps := int(g.cfg.End.Sub(g.cfg.Start)/g.cfg.Step) + 1
	series := make([]model.VisibilitySample, 0, steps)
	for t := g.cfg.Start; !t.After(g.cfg.End); t = t.Add(g.cfg.Step) {
		pos, ok := propagateECEF(sat, t)
		if !ok {
			return nil, fmt.Errorf("generator: propagation failed for %q at %s", entry.ID, t.Format(time.RFC3339))
		}
		elev := ElevationDegrees(g.station, pos)
		series = append(series, model.VisibilitySample{
			Timestamp:    t,
			ElevationDeg: elev,
			DistanceKm:   g.station.DistanceTo(pos),
			IsVisible:    elev >= g.cfg.MinElevationDeg,
		})
	}

	return &model.SatelliteCandidate{
		ID:               entry.ID,
		Constellation:    entry.Constellation,
		VisibilitySeries: series,
	}, nil
}

// Measurements derives a matching signal series for one candidate using a
// free-space path loss estimate at fGHz with the given transmit EIRP. It
// exists so the detector can run on synthetic datasets; real runs feed the
// externally produced signal contract instead.
func (g *Generator) Measurements(c *model.SatelliteCandidate, eirpDbm, fGHz float64) []model.MeasurementSample {
	zero := 0.0
	out := make([]model.MeasurementSample, 0, len(c.VisibilitySeries))
	for _, s := range c.VisibilitySeries {
		out = append(out, model.MeasurementSample{
			SatelliteID:               c.ID,
			Timestamp:                 s.Timestamp,
			RSRPDbm:                   eirpDbm - fspl(s.DistanceKm, fGHz),
			MeasurementObjectOffsetDb: &zero,
			CellOffsetDb:              &zero,
			DistanceKm:                s.DistanceKm,
		})
	}
	return out
}

// fspl is free-space path loss in dB: 92.45 + 20 log10(d_km) + 20 log10(f_GHz).
func fspl(distanceKm, fGHz float64) float64 {
	if distanceKm < 1 {
		distanceKm = 1
	}
	if fGHz <= 0 {
		fGHz = 10
	}
	return 92.45 + 20*math.Log10(distanceKm) + 20*math.Log10(fGHz)
}

func propagateECEF(sat satellite.Satellite, t time.Time) (Vec3, bool) {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	pos := Vec3{X: posECEF.X, Y: posECEF.Y, Z: posECEF.Z}
	// SGP4 yields near-zero vectors for decayed or unpropagatable epochs.
	if pos.Norm() < EarthRadiusKm/2 {
		return Vec3{}, false
	}
	return pos, true
}
