package measurement

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

type sampleFileJSON struct {
	Samples []model.MeasurementSample `json:"samples"`
}

// LoadMeasurementSamples reads a JSON signal dataset from r. Only JSON and
// structural problems fail here; numeric sanity and monotonicity are
// checked when the samples are assembled into a SignalSet.
func LoadMeasurementSamples(r io.Reader) ([]model.MeasurementSample, error) {
	var payload sampleFileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadMeasurementSamples: decode failed: %w", err)
	}

	for i := range payload.Samples {
		if payload.Samples[i].SatelliteID == "" {
			return nil, fmt.Errorf("LoadMeasurementSamples: sample %d has empty satellite_id", i)
		}
		if payload.Samples[i].Timestamp.IsZero() {
			return nil, fmt.Errorf("LoadMeasurementSamples: sample %d has no timestamp", i)
		}
	}

	return payload.Samples, nil
}
