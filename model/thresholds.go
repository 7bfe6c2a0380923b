package model

import "time"

// ThresholdSource records where an effective threshold value came from.
// Dynamic values (derived from the current dataset's empirical
// distribution) always take precedence over static configuration defaults,
// and every resolved value carries this provenance first-class so reports
// and tests can assert it directly.
type ThresholdSource string

const (
	SourceStatic  ThresholdSource = "static"
	SourceDynamic ThresholdSource = "dynamic"
)

// EventThresholds holds the numeric configuration for one event kind
// within one constellation. Units are dBm for RSRP thresholds and km for
// distance thresholds; which of Threshold1/Threshold2 apply depends on the
// kind (A4 uses Threshold1 only, A3 uses OffsetDb instead).
type EventThresholds struct {
	Threshold1   float64 `json:"threshold1,omitempty"`
	Threshold2   float64 `json:"threshold2,omitempty"`
	OffsetDb     float64 `json:"offset_db,omitempty"`
	HysteresisDb float64 `json:"hysteresis_db"`

	TimeToTrigger time.Duration `json:"time_to_trigger"`

	Source ThresholdSource `json:"source"`
}

// DynamicThresholds is an optionally present pair of dataset-derived
// bounds for one (constellation, kind). Both bounds of a dual-threshold
// event must come from the same source, so a partially populated entry for
// a dual kind is a configuration error, not a fallback case.
type DynamicThresholds struct {
	Threshold1 *float64 `json:"threshold1,omitempty"`
	Threshold2 *float64 `json:"threshold2,omitempty"`

	// Basis describes the statistic behind the values, e.g.
	// "p90 of observed serving distances over 5520 samples".
	Basis string `json:"basis"`
}

// ThresholdConfig is the full per-constellation, per-kind threshold table
// fed to the resolver.
type ThresholdConfig struct {
	Static  map[Constellation]map[EventKind]EventThresholds   `json:"static"`
	Dynamic map[Constellation]map[EventKind]DynamicThresholds `json:"dynamic,omitempty"`
}

// ResolutionRecord is one line of the resolver's provenance log: which
// source won for a (constellation, kind) and the values in effect.
type ResolutionRecord struct {
	Constellation Constellation   `json:"constellation"`
	Kind          EventKind       `json:"kind"`
	Source        ThresholdSource `json:"source"`
	Threshold1    float64         `json:"threshold1,omitempty"`
	Threshold2    float64         `json:"threshold2,omitempty"`
	StaticValue1  float64         `json:"static_value1,omitempty"`
	StaticValue2  float64         `json:"static_value2,omitempty"`
	Basis         string          `json:"basis,omitempty"`
}
