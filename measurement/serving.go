package measurement

import (
	"sort"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// ServingRule picks the serving satellite among the samples visible at one
// instant. Rules must be deterministic: identical input always selects the
// same satellite. The slice passed in is never mutated by the detector
// afterwards, so rules may sort it in place.
type ServingRule func(visible []*model.MeasurementSample) *model.MeasurementSample

// MedianRSRP selects the satellite with the median RSRP among the visible
// set (the lower middle for even counts). Choosing the median rather than
// the strongest satellite keeps both stronger and weaker neighbours in
// play, which exercises every event kind on real geometry.
func MedianRSRP(visible []*model.MeasurementSample) *model.MeasurementSample {
	if len(visible) == 0 {
		return nil
	}
	sortByRSRP(visible)
	return visible[(len(visible)-1)/2]
}

// StrongestRSRP selects the satellite with the highest RSRP, breaking ties
// by lowest satellite ID.
func StrongestRSRP(visible []*model.MeasurementSample) *model.MeasurementSample {
	if len(visible) == 0 {
		return nil
	}
	sortByRSRP(visible)
	return visible[len(visible)-1]
}

// sortByRSRP orders ascending by RSRP with satellite ID as the
// deterministic tie-break.
func sortByRSRP(samples []*model.MeasurementSample) {
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].RSRPDbm != samples[j].RSRPDbm {
			return samples[i].RSRPDbm < samples[j].RSRPDbm
		}
		return samples[i].SatelliteID > samples[j].SatelliteID
	})
}
