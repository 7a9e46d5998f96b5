// Package numeric holds small generic numeric helpers shared by the slot
// calibration accumulator and the boundary processor, both of which widen
// or clamp elementwise bounds over the float kinds the engine deals in.
package numeric

import "golang.org/x/exp/constraints"

// Min returns the smaller of a and b.
func Min[T constraints.Float](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Float](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Swap returns b, a — used when a range's min/max arrive inverted (spec
// §4.6 step 1: "If lo > hi, swap them").
func Swap[T any](a, b T) (T, T) {
	return b, a
}
