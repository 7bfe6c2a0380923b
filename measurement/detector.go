package measurement

import (
	"context"
	"math"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/internal/logging"
	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// Standard clause references attached to emitted events.
const (
	refA3 = "TS 38.331 5.5.4.4 (Event A3)"
	refA4 = "TS 38.331 5.5.4.5 (Event A4)"
	refA5 = "TS 38.331 5.5.4.6 (Event A5)"
	refD2 = "TS 38.331 5.5.4.15a (Event D2)"
)

// EventMetricsRecorder receives detector-side counters. The observability
// collector implements it; nil disables recording.
type EventMetricsRecorder interface {
	IncEvent(kind string)
	IncSkippedComparison()
}

// dwellKey identifies one running time-to-trigger timer.
type dwellKey struct {
	serving  string
	neighbor string
	kind     model.EventKind
}

// Detector walks the unified timeline and emits standardized measurement
// events. Per (serving, neighbor, kind) it keeps an explicit
// condition-held-since timestamp: an event is emitted only once the
// entering condition has held continuously for the configured
// time-to-trigger, after which the timer resets so a sustained condition
// yields a single event. Timers are discarded the moment the condition
// stops being evaluated true, including when the serving satellite changes
// or an instant is skipped for sparsity.
type Detector struct {
	thresholds ResolvedThresholds
	rule       ServingRule
	log        logging.Logger
	metrics    EventMetricsRecorder
}

// DetectorOption customises a Detector.
type DetectorOption func(*Detector)

// WithServingRule overrides the default median-RSRP serving selection.
func WithServingRule(rule ServingRule) DetectorOption {
	return func(d *Detector) {
		if rule != nil {
			d.rule = rule
		}
	}
}

// WithDetectorLogger attaches a structured logger.
func WithDetectorLogger(l logging.Logger) DetectorOption {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithEventMetricsRecorder attaches a metrics recorder.
func WithEventMetricsRecorder(m EventMetricsRecorder) DetectorOption {
	return func(d *Detector) { d.metrics = m }
}

// NewDetector constructs a detector over an already-resolved threshold
// table.
func NewDetector(thresholds ResolvedThresholds, opts ...DetectorOption) *Detector {
	d := &Detector{
		thresholds: thresholds,
		rule:       MedianRSRP,
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// candidateEvent is a condition found true at one instant, before the
// dwell requirement is checked.
type candidateEvent struct {
	key   dwellKey
	ttt   time.Duration
	event model.Event
}

// Detect produces the chronological event log for the signal set. Instants
// with fewer than two eligible satellites are skipped and counted, never
// treated as errors; a malformed sample skips only the comparisons that
// need it.
func (d *Detector) Detect(ctx context.Context, sig *SignalSet) ([]model.Event, model.SkipCounters, error) {
	var (
		events []model.Event
		skips  model.SkipCounters
	)
	held := make(map[dwellKey]time.Time)

	for _, t := range sig.Timeline() {
		if err := ctx.Err(); err != nil {
			return nil, skips, err
		}

		eligible := sig.EligibleAt(t)
		if len(eligible) < 2 {
			skips.InstantsBelowPair++
			// A skipped instant breaks continuity for every running timer.
			clear(held)
			continue
		}

		serving := d.rule(eligible)
		if serving == nil {
			skips.InstantsBelowPair++
			clear(held)
			continue
		}

		next := make(map[dwellKey]time.Time, len(held))
		for _, neighbor := range eligible {
			if neighbor.SatelliteID == serving.SatelliteID {
				continue
			}
			for _, cand := range d.evaluatePair(ctx, sig, serving, neighbor, t, &skips) {
				since, ok := held[cand.key]
				if !ok {
					since = t
				}
				if t.Sub(since) >= cand.ttt {
					events = append(events, cand.event)
					if d.metrics != nil {
						d.metrics.IncEvent(string(cand.key.kind))
					}
					d.log.Debug(ctx, "event emitted",
						logging.String("kind", string(cand.key.kind)),
						logging.String("serving_id", cand.key.serving),
						logging.String("neighbor_id", cand.key.neighbor),
						logging.String("at", t.Format(time.RFC3339)))
					// Timer resets on emission; the condition must hold for
					// another full time-to-trigger to fire again.
					continue
				}
				next[cand.key] = since
			}
		}
		held = next
	}

	return events, skips, nil
}

// evaluatePair checks every configured event kind for one (serving,
// neighbor) pair at instant t and returns the conditions that hold.
// Thresholds are keyed by the neighbor's constellation: each event
// contemplates a handover toward that neighbor, so the candidate target's
// table governs.
func (d *Detector) evaluatePair(ctx context.Context, sig *SignalSet, serving, neighbor *model.MeasurementSample, t time.Time, skips *model.SkipCounters) []candidateEvent {
	if !finite(serving.RSRPDbm) || !finite(neighbor.RSRPDbm) {
		d.skipComparison(ctx, "pair", "non-finite RSRP", serving, neighbor, skips)
		return nil
	}

	byKind, ok := d.thresholds[sig.ConstellationOf(neighbor.SatelliteID)]
	if !ok {
		return nil
	}

	var out []candidateEvent
	for _, kind := range model.EventKinds {
		th, ok := byKind[kind]
		if !ok {
			continue
		}

		cand, ok := d.evaluateKind(ctx, kind, th, serving, neighbor, t, skips)
		if ok {
			out = append(out, cand)
		}
	}
	return out
}

func (d *Detector) evaluateKind(ctx context.Context, kind model.EventKind, th model.EventThresholds, serving, neighbor *model.MeasurementSample, t time.Time, skips *model.SkipCounters) (candidateEvent, bool) {
	var (
		holds  bool
		margin float64
		ref    string
		meas   model.EventMeasurements
	)

	switch kind {
	case model.EventA3:
		// RSRPn + Ofn + Ocn - Hys > RSRPs + Ofp + Ocp + Off
		if !hasOffsets(neighbor) || !hasOffsets(serving) {
			d.skipComparison(ctx, string(kind), "missing measurement offsets", serving, neighbor, skips)
			return candidateEvent{}, false
		}
		lhs := neighbor.RSRPDbm + neighbor.ObjectOffset() + neighbor.CellOffset() - th.HysteresisDb
		rhs := serving.RSRPDbm + serving.ObjectOffset() + serving.CellOffset() + th.OffsetDb
		margin = lhs - rhs
		holds = margin > 0
		ref = refA3
		meas = model.EventMeasurements{
			ServingRSRPDbm:  serving.RSRPDbm,
			NeighborRSRPDbm: neighbor.RSRPDbm,
			HysteresisDb:    th.HysteresisDb,
			OffsetDb:        th.OffsetDb,
		}

	case model.EventA4:
		// RSRPn + Ofn + Ocn - Hys > Thresh (strict: equality must not trigger)
		if !hasOffsets(neighbor) {
			d.skipComparison(ctx, string(kind), "missing measurement offsets", serving, neighbor, skips)
			return candidateEvent{}, false
		}
		lhs := neighbor.RSRPDbm + neighbor.ObjectOffset() + neighbor.CellOffset() - th.HysteresisDb
		margin = lhs - th.Threshold1
		holds = lhs > th.Threshold1
		ref = refA4
		meas = model.EventMeasurements{
			ServingRSRPDbm:  serving.RSRPDbm,
			NeighborRSRPDbm: neighbor.RSRPDbm,
			HysteresisDb:    th.HysteresisDb,
			Threshold1:      th.Threshold1,
		}

	case model.EventA5:
		// RSRPs + Hys < Thresh1 AND RSRPn - Hys > Thresh2
		m1 := th.Threshold1 - (serving.RSRPDbm + th.HysteresisDb)
		m2 := (neighbor.RSRPDbm - th.HysteresisDb) - th.Threshold2
		margin = min(m1, m2)
		holds = m1 > 0 && m2 > 0
		ref = refA5
		meas = model.EventMeasurements{
			ServingRSRPDbm:  serving.RSRPDbm,
			NeighborRSRPDbm: neighbor.RSRPDbm,
			HysteresisDb:    th.HysteresisDb,
			Threshold1:      th.Threshold1,
			Threshold2:      th.Threshold2,
		}

	case model.EventD2:
		// Dist(serving) - Hys > Thresh1 AND Dist(neighbor) + Hys < Thresh2
		if !finite(serving.DistanceKm) || !finite(neighbor.DistanceKm) {
			d.skipComparison(ctx, string(kind), "non-finite distance", serving, neighbor, skips)
			return candidateEvent{}, false
		}
		m1 := (serving.DistanceKm - th.HysteresisDb) - th.Threshold1
		m2 := th.Threshold2 - (neighbor.DistanceKm + th.HysteresisDb)
		margin = min(m1, m2)
		holds = m1 > 0 && m2 > 0
		ref = refD2
		meas = model.EventMeasurements{
			ServingRSRPDbm:     serving.RSRPDbm,
			NeighborRSRPDbm:    neighbor.RSRPDbm,
			ServingDistanceKm:  serving.DistanceKm,
			NeighborDistanceKm: neighbor.DistanceKm,
			HysteresisDb:       th.HysteresisDb,
			Threshold1:         th.Threshold1,
			Threshold2:         th.Threshold2,
		}
	}

	if !holds {
		return candidateEvent{}, false
	}
	return candidateEvent{
		key: dwellKey{serving: serving.SatelliteID, neighbor: neighbor.SatelliteID, kind: kind},
		ttt: th.TimeToTrigger,
		event: model.Event{
			Kind:              kind,
			ServingID:         serving.SatelliteID,
			NeighborID:        neighbor.SatelliteID,
			Timestamp:         t,
			Measurements:      meas,
			TriggerMargin:     margin,
			StandardReference: ref,
		},
	}, true
}

// skipComparison counts and logs one abandoned comparison. The scope field
// names the affected event kind, or "pair" when the whole pair is dropped.
func (d *Detector) skipComparison(ctx context.Context, scope, reason string, serving, neighbor *model.MeasurementSample, skips *model.SkipCounters) {
	skips.MalformedSamples++
	if d.metrics != nil {
		d.metrics.IncSkippedComparison()
	}
	d.log.Warn(ctx, "comparison skipped: "+reason,
		logging.String("kind", scope),
		logging.String("serving_id", serving.SatelliteID),
		logging.String("neighbor_id", neighbor.SatelliteID))
}

func hasOffsets(s *model.MeasurementSample) bool {
	return s.MeasurementObjectOffsetDb != nil && s.CellOffsetDb != nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
