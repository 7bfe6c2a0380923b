package visibility

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

type tleFileJSON struct {
	Satellites []tleEntryJSON `json:"satellites"`
}

type tleEntryJSON struct {
	ID            string `json:"id"`
	Constellation string `json:"constellation"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
}

// LoadTLEEntries reads a JSON TLE catalog from r. Orbital sanity is left
// to SGP4 initialisation; only structural problems fail here.
func LoadTLEEntries(r io.Reader) ([]TLEEntry, error) {
	var payload tleFileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadTLEEntries: decode failed: %w", err)
	}

	entries := make([]TLEEntry, 0, len(payload.Satellites))
	for i, s := range payload.Satellites {
		if s.ID == "" {
			return nil, fmt.Errorf("LoadTLEEntries: satellite %d has empty id", i)
		}
		if s.Line1 == "" || s.Line2 == "" {
			return nil, fmt.Errorf("LoadTLEEntries: satellite %q has incomplete TLE", s.ID)
		}
		entries = append(entries, TLEEntry{
			ID:            s.ID,
			Constellation: model.Constellation(s.Constellation),
			Line1:         s.Line1,
			Line2:         s.Line2,
		})
	}
	return entries, nil
}
