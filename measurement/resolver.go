package measurement

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/ntn-pool-analyzer/internal/logging"
	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// dualKinds are the event kinds whose entering condition pairs two
// thresholds; both bounds must resolve from the same source.
var dualKinds = map[model.EventKind]bool{
	model.EventA5: true,
	model.EventD2: true,
}

// ResolvedThresholds is the effective per-constellation, per-kind table the
// detector evaluates against, with provenance settled.
type ResolvedThresholds map[model.Constellation]map[model.EventKind]model.EventThresholds

// Resolver settles the effective thresholds for a run: a dynamic value
// (derived from the current dataset) always wins over the static default,
// and every decision is recorded with its numeric values and statistical
// basis so no threshold in the output is of unexplained origin.
type Resolver struct {
	cfg model.ThresholdConfig
	log logging.Logger
}

// NewResolver constructs a resolver over the given configuration.
func NewResolver(cfg model.ThresholdConfig, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.Noop()
	}
	return &Resolver{cfg: cfg, log: log}
}

// Resolve computes the effective table for the given constellations. It is
// called exactly once per run. Partial dynamic entries for dual-threshold
// kinds fail resolution; so do dynamic entries for A3, which has no
// absolute threshold to substitute.
func (r *Resolver) Resolve(ctx context.Context, constellations []model.Constellation) (ResolvedThresholds, []model.ResolutionRecord, error) {
	resolved := make(ResolvedThresholds, len(constellations))
	records := make([]model.ResolutionRecord, 0, len(constellations)*len(model.EventKinds))

	for _, tag := range constellations {
		statics, ok := r.cfg.Static[tag]
		if !ok {
			return nil, nil, fmt.Errorf("%w: constellation %q", ErrNoStaticThresholds, tag)
		}
		resolved[tag] = make(map[model.EventKind]model.EventThresholds, len(statics))

		for _, kind := range model.EventKinds {
			static, ok := statics[kind]
			if !ok {
				// Kind not configured for this constellation; the detector
				// simply never evaluates it there.
				continue
			}

			effective, record, err := r.resolveOne(tag, kind, static)
			if err != nil {
				return nil, nil, err
			}
			resolved[tag][kind] = effective
			records = append(records, record)

			if record.Source == model.SourceDynamic {
				r.log.Info(ctx, "dynamic threshold in effect",
					logging.String("constellation", string(tag)),
					logging.String("kind", string(kind)),
					logging.Any("static_value1", record.StaticValue1),
					logging.Any("static_value2", record.StaticValue2),
					logging.Any("threshold1", record.Threshold1),
					logging.Any("threshold2", record.Threshold2),
					logging.String("basis", record.Basis))
			} else {
				r.log.Debug(ctx, "static threshold in effect",
					logging.String("constellation", string(tag)),
					logging.String("kind", string(kind)),
					logging.Any("threshold1", record.Threshold1),
					logging.Any("threshold2", record.Threshold2))
			}
		}
	}
	return resolved, records, nil
}

func (r *Resolver) resolveOne(tag model.Constellation, kind model.EventKind, static model.EventThresholds) (model.EventThresholds, model.ResolutionRecord, error) {
	effective := static
	effective.Source = model.SourceStatic

	record := model.ResolutionRecord{
		Constellation: tag,
		Kind:          kind,
		Source:        model.SourceStatic,
		Threshold1:    static.Threshold1,
		Threshold2:    static.Threshold2,
	}

	dyn, ok := r.dynamicFor(tag, kind)
	if !ok {
		return effective, record, nil
	}

	if kind == model.EventA3 {
		return model.EventThresholds{}, model.ResolutionRecord{},
			fmt.Errorf("%w: %s for constellation %q", ErrDynamicUnsupported, kind, tag)
	}

	if dualKinds[kind] {
		if dyn.Threshold1 == nil || dyn.Threshold2 == nil {
			return model.EventThresholds{}, model.ResolutionRecord{},
				fmt.Errorf("%w: %s for constellation %q", ErrPartialDynamic, kind, tag)
		}
		effective.Threshold1 = *dyn.Threshold1
		effective.Threshold2 = *dyn.Threshold2
	} else {
		if dyn.Threshold1 == nil {
			// A dynamic entry with no values carries no information.
			return effective, record, nil
		}
		effective.Threshold1 = *dyn.Threshold1
	}

	effective.Source = model.SourceDynamic
	record.Source = model.SourceDynamic
	record.StaticValue1 = static.Threshold1
	record.StaticValue2 = static.Threshold2
	record.Threshold1 = effective.Threshold1
	record.Threshold2 = effective.Threshold2
	record.Basis = dyn.Basis
	return effective, record, nil
}

func (r *Resolver) dynamicFor(tag model.Constellation, kind model.EventKind) (model.DynamicThresholds, bool) {
	byKind, ok := r.cfg.Dynamic[tag]
	if !ok {
		return model.DynamicThresholds{}, false
	}
	dyn, ok := byKind[kind]
	return dyn, ok
}

// DeriveD2Thresholds computes dataset-derived D2 bounds from the empirical
// distance distribution: Threshold1 as the p1 percentile of serving-side
// distances and Threshold2 as the p2 percentile, with the statistical basis
// recorded for the resolution log. Returns false when there are no finite
// distances to rank.
func DeriveD2Thresholds(samples []model.MeasurementSample, p1, p2 float64) (model.DynamicThresholds, bool) {
	distances := make([]float64, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.DistanceKm) || math.IsInf(s.DistanceKm, 0) || s.DistanceKm <= 0 {
			continue
		}
		distances = append(distances, s.DistanceKm)
	}
	if len(distances) == 0 {
		return model.DynamicThresholds{}, false
	}
	sort.Float64s(distances)

	t1 := percentile(distances, p1)
	t2 := percentile(distances, p2)
	return model.DynamicThresholds{
		Threshold1: &t1,
		Threshold2: &t2,
		Basis: fmt.Sprintf("p%.0f/p%.0f of %d observed distances (%.1f-%.1f km)",
			p1*100, p2*100, len(distances), distances[0], distances[len(distances)-1]),
	}, true
}

// percentile returns the nearest-rank percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}
