package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// VisibilityScenario is a small summary of what was loaded from JSON.
// It's mainly useful for logging from main().
type VisibilityScenario struct {
	CandidateIDs   []string
	Constellations []model.Constellation
}

// visibilityScenarioJSON is the file shape. Kept unexported so we're free
// to evolve it without touching the model types.
type visibilityScenarioJSON struct {
	Candidates []model.SatelliteCandidate `json:"candidates"`
}

// LoadVisibilityScenario reads a JSON visibility dataset from r and adds
// every candidate to set.
//
// JSON and structural problems fail here; per-series contract violations
// (non-monotonic timestamps, NaN observables) surface through Add with the
// offending satellite named, same as direct Add calls in tests.
func LoadVisibilityScenario(set *CandidateSet, r io.Reader) (*VisibilityScenario, error) {
	if set == nil {
		return nil, fmt.Errorf("LoadVisibilityScenario: set is nil")
	}

	var payload visibilityScenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadVisibilityScenario: decode failed: %w", err)
	}

	result := &VisibilityScenario{
		CandidateIDs: make([]string, 0, len(payload.Candidates)),
	}
	seen := make(map[model.Constellation]bool)

	for i := range payload.Candidates {
		c := payload.Candidates[i]
		if c.ID == "" {
			return nil, fmt.Errorf("LoadVisibilityScenario: candidate %d has empty id", i)
		}
		if err := set.Add(&c); err != nil {
			return nil, fmt.Errorf("LoadVisibilityScenario: %w", err)
		}
		result.CandidateIDs = append(result.CandidateIDs, c.ID)
		if !seen[c.Constellation] {
			seen[c.Constellation] = true
			result.Constellations = append(result.Constellations, c.Constellation)
		}
	}

	return result, nil
}
