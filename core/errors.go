package core

import "errors"

var (
	// ErrCandidateExists is returned when a candidate ID is added twice.
	ErrCandidateExists = errors.New("candidate already exists")
	// ErrCandidateNotFound is returned when a plan or caller references a
	// candidate ID the dataset does not contain.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrSeriesNotMonotonic is returned when a visibility series is not
	// strictly time-ordered.
	ErrSeriesNotMonotonic = errors.New("visibility series not strictly time-ordered")
	// ErrSeriesInvalid is returned for numeric-sanity violations inside a
	// visibility series (NaN/Inf observables, negative distance).
	ErrSeriesInvalid = errors.New("visibility series invalid")
	// ErrEmptyTimeline is returned when no candidate contributes a single
	// timestamp, leaving nothing to cover.
	ErrEmptyTimeline = errors.New("unified timeline is empty")
	// ErrInvalidTarget is returned for malformed target ranges or
	// coverage-rate thresholds.
	ErrInvalidTarget = errors.New("invalid coverage target")
)
