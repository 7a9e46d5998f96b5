// Package mapperr defines the error kinds of the map transformation engine
// and the data-plane/admin-plane result types used to propagate them.
//
// Errors never cross map boundaries: a compile failure on one map must
// never disturb another (spec §7). Callers are expected to test sentinel
// errors with errors.Is against the wrapped return value.
package mapperr

import "errors"

// Sentinel error kinds, one per row of the error table in spec §7.
var (
	// ErrParse is returned when an expression string fails to compile.
	ErrParse = errors.New("mapperr: expression parse error")

	// ErrRangeUnknown is returned when a linear-mode request is missing
	// min/max on a slot. Not user-visible; the mode request is simply
	// rejected and the prior mode retained.
	ErrRangeUnknown = errors.New("mapperr: range unknown for linear mode")

	// ErrLengthMismatch is returned when a vector argument's length does
	// not match the length it is being matched against.
	ErrLengthMismatch = errors.New("mapperr: length mismatch")

	// ErrOutOfBounds is returned when an admin message's @slot index is
	// outside [0, n_sources).
	ErrOutOfBounds = errors.New("mapperr: slot index out of bounds")

	// ErrAllocFailure is returned when history reallocation cannot
	// proceed. Fatal to the owning map.
	ErrAllocFailure = errors.New("mapperr: history allocation failure")

	// ErrNotYetWritten is returned by ValueBuffer.Read when the buffer
	// has never been written.
	ErrNotYetWritten = errors.New("mapperr: buffer not yet written")

	// ErrOutOfHistory is returned by ValueBuffer.Read when the requested
	// history depth exceeds the buffer's current size.
	ErrOutOfHistory = errors.New("mapperr: history index out of range")

	// ErrNotReady is returned when a mode transition is requested before
	// its readiness gate (type/length/link known on the relevant slots)
	// is satisfied. Like RangeUnknown, this is an expected, non-visible
	// rejection: the mode request is simply deferred.
	ErrNotReady = errors.New("mapperr: slot readiness gate not satisfied")
)

// Outcome is the compact result of a data-plane operation (spec §7).
type Outcome int

const (
	// Pass indicates the operation completed and, for boundary
	// processing, that no element triggered mute.
	Pass Outcome = iota
	// Muted indicates a boundary action suppressed emission. This is an
	// expected control-flow outcome, not an error.
	Muted
	// Err indicates an error occurred; inspect the accompanying error
	// value for the kind.
	Err
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Muted:
		return "muted"
	case Err:
		return "error"
	default:
		return "unknown"
	}
}
