package measurement

import "errors"

var (
	// ErrPartialDynamic is returned when a dynamic threshold entry covers
	// only one bound of a dual-threshold event. Mixing a dynamic bound with
	// a static one silently changes the semantics of the paired condition,
	// so partial resolution is a fatal configuration error.
	ErrPartialDynamic = errors.New("partial dynamic threshold for dual-threshold event")
	// ErrNoStaticThresholds is returned when a constellation present in the
	// dataset has no static threshold table at all.
	ErrNoStaticThresholds = errors.New("no static thresholds configured")
	// ErrDynamicUnsupported is returned for dynamic entries on event kinds
	// that have no absolute threshold to replace (A3 is offset-based).
	ErrDynamicUnsupported = errors.New("dynamic thresholds not supported for event kind")
	// ErrSamplesNotMonotonic is returned when a satellite's measurement
	// series is not strictly time-ordered.
	ErrSamplesNotMonotonic = errors.New("measurement series not strictly time-ordered")
	// ErrUnknownSatellite is returned when a measurement sample references
	// a satellite absent from the candidate set.
	ErrUnknownSatellite = errors.New("measurement references unknown satellite")
)
