package model

import "time"

// SkipCounters accumulates the non-fatal conditions a run encountered.
// They are part of the result, never silently dropped.
type SkipCounters struct {
	// InstantsBelowPair counts timeline instants skipped by the detector
	// because fewer than two satellites were visible.
	InstantsBelowPair int `json:"instants_below_pair"`
	// MalformedSamples counts (serving, neighbor) comparisons skipped
	// because a required measurement field was missing or not finite.
	MalformedSamples int `json:"malformed_samples"`
	// CandidatesNeverVisible counts candidates offered to the optimizer
	// that had no visible sample at all.
	CandidatesNeverVisible int `json:"candidates_never_visible"`
}

// RunResult is the top-level artifact of one batch run. Warnings let a
// caller distinguish "succeeded with caveats" from "succeeded cleanly";
// fatal conditions surface as errors instead and produce no RunResult.
type RunResult struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Plan   *CoveragePlan   `json:"plan,omitempty"`
	Report *CoverageReport `json:"report,omitempty"`

	Events      []Event            `json:"events"`
	Resolutions []ResolutionRecord `json:"resolutions"`

	Skips    SkipCounters `json:"skips"`
	Warnings []string     `json:"warnings,omitempty"`
}
