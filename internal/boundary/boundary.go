// Package boundary implements the boundary processor of spec §4.6: the
// none/mute/clamp/fold/wrap policy applied elementwise to a prospective
// destination sample when it overflows the slot's declared range.
package boundary

import (
	"math"

	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/numeric"
	"github.com/vincentgoudard/libmapper/internal/value"
)

// Action is one of the five boundary policies of spec §4.6.
type Action uint8

const (
	None Action = iota
	Mute
	Clamp
	Fold
	Wrap
)

// ParseAction maps the admin-message @boundMin/@boundMax string to an
// Action (spec §6).
func ParseAction(s string) (Action, bool) {
	switch s {
	case "none":
		return None, true
	case "mute":
		return Mute, true
	case "clamp":
		return Clamp, true
	case "fold":
		return Fold, true
	case "wrap":
		return Wrap, true
	default:
		return 0, false
	}
}

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case Mute:
		return "mute"
	case Clamp:
		return "clamp"
	case Fold:
		return "fold"
	case Wrap:
		return "wrap"
	default:
		return "unknown"
	}
}

// Policy holds the pair of actions applied when a value undershoots (Min)
// or overshoots (Max) a slot's declared range.
type Policy struct {
	Min Action
	Max Action
}

// Process applies the policy elementwise to sample against (lo, hi), per
// spec §4.6. It returns mapperr.Pass if no element triggered Mute, or
// mapperr.Muted if any element did (the whole sample is then withheld by
// the caller — spec §4.6 step 4 "mute: mark the whole sample muted; no
// write is emitted downstream").
func Process(sample value.Sample, lo, hi []float64, policy Policy, dstType value.Type) mapperr.Outcome {
	muted := false
	for i := range sample.Values {
		l, h := lo[i], hi[i]
		minAction, maxAction := policy.Min, policy.Max

		if l > h {
			l, h = numeric.Swap(l, h)
			minAction, maxAction = numeric.Swap(minAction, maxAction)
		}

		if l == h || (minAction == None && maxAction == None) {
			continue
		}

		v := sample.Values[i].Float64()
		rng := h - l

		var out float64
		var elementMuted bool
		switch {
		case v < l:
			out, elementMuted = apply(minAction, maxAction, v, l, h, rng, true)
		case v > h:
			out, elementMuted = apply(maxAction, minAction, v, l, h, rng, false)
		default:
			out = v
		}

		if elementMuted {
			muted = true
			continue
		}
		sample.Values[i] = value.FromFloat64(dstType, out)
	}

	if muted {
		return mapperr.Muted
	}
	return mapperr.Pass
}

// apply executes one boundary action for a single violating element.
// violatedLo indicates whether the lower bound was the one violated
// (true) or the upper bound (false); otherAction is the action configured
// for the bound on the opposite side, used only by fold's one-reflection
// overshoot handling.
func apply(action, otherAction Action, v, lo, hi, rng float64, violatedLo bool) (out float64, muted bool) {
	bound := hi
	if violatedLo {
		bound = lo
	}

	switch action {
	case Mute:
		return 0, true
	case Clamp:
		return bound, false
	case Fold:
		var folded float64
		if violatedLo {
			folded = bound + math.Abs(v-bound) // reflect up from lo
		} else {
			folded = bound - math.Abs(v-bound) // reflect down from hi
		}
		// One reflection pass; if it now violates the other bound, apply
		// that bound's configured action once more (spec §4.6 step 4
		// "fold"), with no further recursion.
		if violatedLo && folded > hi {
			return foldOverflow(otherAction, folded, lo, hi, rng, false)
		}
		if !violatedLo && folded < lo {
			return foldOverflow(otherAction, folded, lo, hi, rng, true)
		}
		return folded, false
	case Wrap:
		mod := math.Mod(math.Abs(v-bound), rng)
		if violatedLo {
			return hi - mod, false
		}
		return lo + mod, false
	default: // None
		return v, false
	}
}

// foldOverflow re-applies the action configured for the *other* bound
// after a fold reflection overshoots it.
func foldOverflow(action Action, v, lo, hi, rng float64, violatedLo bool) (float64, bool) {
	bound := hi
	if violatedLo {
		bound = lo
	}
	switch action {
	case Mute:
		return 0, true
	case Clamp:
		return bound, false
	case Wrap:
		mod := math.Mod(math.Abs(v-bound), rng)
		if violatedLo {
			return hi - mod, false
		}
		return lo + mod, false
	default:
		return bound, false
	}
}
