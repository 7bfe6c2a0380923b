package model

import "time"

// MeasurementSample is one instant of the externally computed signal
// contract for a single satellite. Offsets are optional: a nil pointer
// means the upstream producer did not supply the field, which excludes the
// sample from comparisons that need it (recorded as a skip, never fatal).
type MeasurementSample struct {
	SatelliteID string    `json:"satellite_id"`
	Timestamp   time.Time `json:"timestamp"`
	RSRPDbm     float64   `json:"rsrp_dbm"`

	// MeasurementObjectOffsetDb is Ofn/Ofp in the entering-condition
	// formulas; CellOffsetDb is Ocn/Ocp.
	MeasurementObjectOffsetDb *float64 `json:"measurement_object_offset_db,omitempty"`
	CellOffsetDb              *float64 `json:"cell_offset_db,omitempty"`

	DistanceKm float64 `json:"distance_km"`
}

// ObjectOffset returns the measurement-object offset or 0 when absent.
func (m *MeasurementSample) ObjectOffset() float64 {
	if m.MeasurementObjectOffsetDb == nil {
		return 0
	}
	return *m.MeasurementObjectOffsetDb
}

// CellOffset returns the cell individual offset or 0 when absent.
func (m *MeasurementSample) CellOffset() float64 {
	if m.CellOffsetDb == nil {
		return 0
	}
	return *m.CellOffsetDb
}
