// Package rangeresolve implements the per-slot, per-extreme range
// resolution order of spec §4.3: an explicit admin-message value wins,
// otherwise the slot's previously-resolved value is kept, otherwise the
// attached local signal's declared range is copied.
package rangeresolve

import (
	"fmt"

	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/slot"
)

// Extreme identifies which bound is being resolved.
type Extreme int

const (
	Min Extreme = iota
	Max
)

// Resolve applies the three-step resolution order of spec §4.3 to one
// slot/extreme pair and reports whether the slot's value changed.
//
// msgValue/msgPresent carry the admin message's numeric parameter for this
// extreme (e.g. @srcMin), already parsed into f64 — values arrive typed on
// the wire but are cast losslessly to f64 at this boundary, matching
// spec §3's "all numeric operations inside the engine are performed in
// f64".
func Resolve(s *slot.Slot, extreme Extreme, msgValue []float64, msgPresent bool) (bool, error) {
	if msgPresent {
		if length, known := s.Length(); known && len(msgValue) != length {
			return false, fmt.Errorf("%w: slot length %d, range length %d", mapperr.ErrLengthMismatch, length, len(msgValue))
		}
		return setExtreme(s, extreme, msgValue), nil
	}

	if _, has := getExtreme(s, extreme); has {
		return false, nil
	}

	if s.LocalSignalRange != nil {
		declared := declaredFor(s.LocalSignalRange, extreme)
		if declared != nil {
			return setExtreme(s, extreme, declared), nil
		}
	}

	return false, nil
}

func getExtreme(s *slot.Slot, extreme Extreme) ([]float64, bool) {
	if extreme == Min {
		return s.Min()
	}
	return s.Max()
}

func setExtreme(s *slot.Slot, extreme Extreme, v []float64) bool {
	if extreme == Min {
		return s.SetMin(v)
	}
	return s.SetMax(v)
}

func declaredFor(r *slot.DeclaredRange, extreme Extreme) []float64 {
	if extreme == Min {
		return r.Min
	}
	return r.Max
}

// ResolveAll resolves both extremes for a slot against one admin message's
// parameters for that slot, returning the total count of changed fields —
// the dirty-bit count that drives mode re-derivation (spec §4.3).
//
// A LengthMismatch on one extreme does not prevent the other from being
// resolved (spec §7: "Skip that field; continue processing other
// fields"). Both errors, if any, are joined in the returned error.
func ResolveAll(s *slot.Slot, minVal []float64, minPresent bool, maxVal []float64, maxPresent bool) (int, error) {
	changed := 0
	var errs []error

	if ch, err := Resolve(s, Min, minVal, minPresent); err != nil {
		errs = append(errs, fmt.Errorf("min: %w", err))
	} else if ch {
		changed++
	}

	if ch, err := Resolve(s, Max, maxVal, maxPresent); err != nil {
		errs = append(errs, fmt.Errorf("max: %w", err))
	} else if ch {
		changed++
	}

	if len(errs) == 0 {
		return changed, nil
	}
	if len(errs) == 1 {
		return changed, errs[0]
	}
	return changed, fmt.Errorf("%v; %v", errs[0], errs[1])
}
