package measurement

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// internal JSON shapes - kept unexported so the file format can evolve
// independently of the model types.
type thresholdFileJSON struct {
	Static  map[string]map[string]eventThresholdsJSON   `json:"static"`
	Dynamic map[string]map[string]dynamicThresholdsJSON `json:"dynamic"`
}

type eventThresholdsJSON struct {
	Threshold1      *float64 `json:"threshold1"`
	Threshold2      *float64 `json:"threshold2"`
	OffsetDb        *float64 `json:"offset_db"`
	HysteresisDb    float64  `json:"hysteresis_db"`
	TimeToTriggerMs int64    `json:"time_to_trigger_ms"`
}

type dynamicThresholdsJSON struct {
	Threshold1 *float64 `json:"threshold1"`
	Threshold2 *float64 `json:"threshold2"`
	Basis      string   `json:"basis"`
}

// LoadThresholdConfig reads a per-constellation threshold table from JSON.
// It fails only on JSON/structural errors (unknown event kinds, negative
// dwell times); semantic validation such as the dual-threshold source rule
// happens later in the resolver, once per run.
func LoadThresholdConfig(r io.Reader) (model.ThresholdConfig, error) {
	var payload thresholdFileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return model.ThresholdConfig{}, fmt.Errorf("LoadThresholdConfig: decode failed: %w", err)
	}

	cfg := model.ThresholdConfig{
		Static: make(map[model.Constellation]map[model.EventKind]model.EventThresholds),
	}

	for tag, byKind := range payload.Static {
		if tag == "" {
			return model.ThresholdConfig{}, fmt.Errorf("LoadThresholdConfig: empty constellation tag")
		}
		table := make(map[model.EventKind]model.EventThresholds, len(byKind))
		for rawKind, js := range byKind {
			kind, err := parseEventKind(rawKind)
			if err != nil {
				return model.ThresholdConfig{}, fmt.Errorf("LoadThresholdConfig: constellation %q: %w", tag, err)
			}
			if js.TimeToTriggerMs < 0 {
				return model.ThresholdConfig{}, fmt.Errorf("LoadThresholdConfig: constellation %q kind %s: negative time_to_trigger_ms", tag, kind)
			}
			th := model.EventThresholds{
				HysteresisDb:  js.HysteresisDb,
				TimeToTrigger: time.Duration(js.TimeToTriggerMs) * time.Millisecond,
				Source:        model.SourceStatic,
			}
			if js.Threshold1 != nil {
				th.Threshold1 = *js.Threshold1
			}
			if js.Threshold2 != nil {
				th.Threshold2 = *js.Threshold2
			}
			if js.OffsetDb != nil {
				th.OffsetDb = *js.OffsetDb
			}
			table[kind] = th
		}
		cfg.Static[model.Constellation(tag)] = table
	}

	if len(payload.Dynamic) > 0 {
		cfg.Dynamic = make(map[model.Constellation]map[model.EventKind]model.DynamicThresholds)
		for tag, byKind := range payload.Dynamic {
			table := make(map[model.EventKind]model.DynamicThresholds, len(byKind))
			for rawKind, js := range byKind {
				kind, err := parseEventKind(rawKind)
				if err != nil {
					return model.ThresholdConfig{}, fmt.Errorf("LoadThresholdConfig: dynamic constellation %q: %w", tag, err)
				}
				table[kind] = model.DynamicThresholds{
					Threshold1: js.Threshold1,
					Threshold2: js.Threshold2,
					Basis:      js.Basis,
				}
			}
			cfg.Dynamic[model.Constellation(tag)] = table
		}
	}

	return cfg, nil
}

func parseEventKind(raw string) (model.EventKind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "A3":
		return model.EventA3, nil
	case "A4":
		return model.EventA4, nil
	case "A5":
		return model.EventA5, nil
	case "D2":
		return model.EventD2, nil
	default:
		return "", fmt.Errorf("unknown event kind %q", raw)
	}
}
