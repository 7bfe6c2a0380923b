package model

import "time"

// EventKind is the closed set of standardized measurement events the
// detector can emit. Keeping this a tagged enum (rather than open
// polymorphic event types) lets the evaluator switch exhaustively.
type EventKind string

const (
	EventA3 EventKind = "A3" // neighbour becomes offset better than serving
	EventA4 EventKind = "A4" // neighbour becomes better than absolute threshold
	EventA5 EventKind = "A5" // serving below threshold1 and neighbour above threshold2
	EventD2 EventKind = "D2" // serving beyond distance1 and neighbour within distance2
)

// EventKinds lists all kinds in a stable evaluation order.
var EventKinds = []EventKind{EventA3, EventA4, EventA5, EventD2}

// EventMeasurements is the numeric snapshot that justified an event. Only
// the fields relevant to the kind are populated.
type EventMeasurements struct {
	ServingRSRPDbm     float64 `json:"serving_rsrp_dbm"`
	NeighborRSRPDbm    float64 `json:"neighbor_rsrp_dbm"`
	ServingDistanceKm  float64 `json:"serving_distance_km,omitempty"`
	NeighborDistanceKm float64 `json:"neighbor_distance_km,omitempty"`
	HysteresisDb       float64 `json:"hysteresis_db"`
	OffsetDb           float64 `json:"offset_db,omitempty"`
	Threshold1         float64 `json:"threshold1,omitempty"`
	Threshold2         float64 `json:"threshold2,omitempty"`
}

// Event is one emitted measurement event. Events are append-only and
// strictly time-ordered in the log; an event exists only after its
// entering condition held for the full time-to-trigger.
type Event struct {
	Kind       EventKind `json:"kind"`
	ServingID  string    `json:"serving_id"`
	NeighborID string    `json:"neighbor_id"`
	Timestamp  time.Time `json:"timestamp"`

	Measurements EventMeasurements `json:"measurements"`

	// TriggerMargin is the signed distance (dB or km) from the boundary of
	// the entering condition; for dual conditions it is the smaller of the
	// two margins.
	TriggerMargin float64 `json:"trigger_margin"`

	// StandardReference names the clause whose entering condition was
	// applied, e.g. "TS 38.331 5.5.4.5 (Event A4)".
	StandardReference string `json:"standard_reference"`
}
