package model

import "time"

// TargetRange is the [Min, Max] band the concurrently-visible count of a
// selected pool must stay inside.
type TargetRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether count falls inside the band.
func (r TargetRange) Contains(count int) bool {
	return count >= r.Min && count <= r.Max
}

// CoveragePlan is the optimizer's output: the chosen pool and the target it
// was built against. Immutable after creation.
type CoveragePlan struct {
	SelectedIDs []string    `json:"selected_ids"`
	Target      TargetRange `json:"target_range"`

	// AchievedRate is the coverage rate the optimizer itself observed when
	// it stopped. The verifier recomputes this independently.
	AchievedRate float64 `json:"achieved_rate"`

	// TargetShortfall is set when the configured coverage-rate threshold
	// was unreachable with the supplied candidates. The plan is still the
	// best-effort result; the shortfall is surfaced, never hidden.
	TargetShortfall bool `json:"target_shortfall"`

	Iterations int `json:"iterations"`
}

// GapSeverity classifies a coverage gap by duration. The duration cut-offs
// live in configuration, not here.
type GapSeverity string

const (
	GapMinor    GapSeverity = "minor"
	GapModerate GapSeverity = "moderate"
	GapMajor    GapSeverity = "major"
)

// InstantCount is the visible-count sample for one coverage instant.
type InstantCount struct {
	Timestamp    time.Time `json:"timestamp"`
	VisibleCount int       `json:"visible_count"`
}

// Gap is a maximal contiguous run of instants where the target band was
// not met.
type Gap struct {
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	Duration       time.Duration `json:"duration"`
	MinCountDuring int           `json:"min_count_during_gap"`
	Severity       GapSeverity   `json:"severity"`
}

// CoverageReport is the verifier's output. It is a pure function of the
// plan's selected IDs and the underlying visibility series, so identical
// inputs always reproduce it byte for byte.
type CoverageReport struct {
	CoverageRate     float64        `json:"coverage_rate"`
	PerInstantCounts []InstantCount `json:"per_instant_counts"`
	Gaps             []Gap          `json:"gaps"`

	AverageVisibleCount float64 `json:"average_visible_count"`
	MinVisibleCount     int     `json:"min_visible_count"`
	MaxVisibleCount     int     `json:"max_visible_count"`

	MetInstants   int `json:"met_instants"`
	TotalInstants int `json:"total_instants"`
}
