// Package mode implements the map mode machine of spec §4.5: an explicit
// small state machine whose transitions are gated by a predicate over
// slot readiness, rather than the mutation-of-a-status-bitmask the
// original implementation used (spec §9 redesign note).
package mode

import (
	"fmt"

	"github.com/vincentgoudard/libmapper/internal/expr"
	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/slot"
)

// Mode is both the committed state and the requested transition target
// (spec §3/§4.5: undefined -> none | raw | linear | expression).
type Mode uint8

const (
	Undefined Mode = iota
	None
	Raw
	Linear
	Expression
)

func (m Mode) String() string {
	switch m {
	case Undefined:
		return "undefined"
	case None:
		return "none"
	case Raw:
		return "raw"
	case Linear:
		return "linear"
	case Expression:
		return "expression"
	default:
		return "unknown"
	}
}

// ParseMode maps the admin-message @mode string to a Mode (spec §6).
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "none":
		return None, true
	case "raw":
		return Raw, true
	case "linear":
		return Linear, true
	case "expression":
		return Expression, true
	default:
		return Undefined, false
	}
}

// Request describes a requested mode transition.
type Request struct {
	Mode Mode
	// ExpressionText, when non-empty and Mode == Expression, is compiled
	// directly instead of synthesizing a default (spec §4.5).
	ExpressionText string
}

// Commit is the result of a successful Derive: the new committed mode
// plus its compiled expression (nil for None and Raw).
type Commit struct {
	Mode       Mode
	Expression expr.Expression
}

// Derive computes the commit a mode request would produce, as a pure
// function of (current state, request, readiness, ranges) — spec §9's
// redesign note. It does not mutate sources/dest; the caller applies the
// commit (including history reallocation) only after Derive succeeds, and
// otherwise retains the prior mode untouched (spec §4.5, §7).
func Derive(current Mode, req Request, sources []*slot.Slot, dest *slot.Slot, compiler expr.Compiler) (Commit, error) {
	switch req.Mode {
	case None:
		return Commit{Mode: None}, nil

	case Raw:
		return deriveRaw(sources, dest)

	case Linear:
		return deriveLinear(sources, dest, compiler)

	case Expression:
		return deriveExpression(sources, dest, req.ExpressionText, compiler)

	default:
		return Commit{}, fmt.Errorf("%w: unrecognized mode request %v", mapperr.ErrNotReady, req.Mode)
	}
}

func deriveRaw(sources []*slot.Slot, dest *slot.Slot) (Commit, error) {
	if len(sources) < 1 {
		return Commit{}, fmt.Errorf("%w: raw mode requires at least one source", mapperr.ErrNotReady)
	}
	if !sources[0].Ready() || !dest.Ready() {
		return Commit{}, fmt.Errorf("%w: raw mode requires source[0] and destination type/length known", mapperr.ErrNotReady)
	}
	return Commit{Mode: Raw}, nil
}

func deriveLinear(sources []*slot.Slot, dest *slot.Slot, compiler expr.Compiler) (Commit, error) {
	if len(sources) != 1 {
		return Commit{}, fmt.Errorf("%w: linear mode requires exactly one source", mapperr.ErrNotReady)
	}
	src := sources[0]
	if !src.Ready() || !dest.Ready() {
		return Commit{}, fmt.Errorf("%w: linear mode requires type/length known", mapperr.ErrNotReady)
	}

	srcMin, srcMinOk := src.Min()
	srcMax, srcMaxOk := src.Max()
	dstMin, dstMinOk := dest.Min()
	dstMax, dstMaxOk := dest.Max()
	if !srcMinOk || !srcMaxOk || !dstMinOk || !dstMaxOk {
		return Commit{}, mapperr.ErrRangeUnknown
	}

	srcLen, _ := src.Length()
	dstLen, _ := dest.Length()
	overlap := srcLen
	if dstLen < overlap {
		overlap = dstLen
	}

	scale := make([]float64, dstLen)
	offset := make([]float64, dstLen)
	for i := 0; i < overlap; i++ {
		scale[i], offset[i] = linearCoefficients(srcMin[i], srcMax[i], dstMin[i], dstMax[i])
	}

	dstType, _ := dest.Type()
	text := expr.Linear(scale, offset)
	compiled, err := compiler.Compile(text, 1, []int{srcLen}, dstLen, dstType)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: %v", mapperr.ErrParse, err)
	}
	return Commit{Mode: Linear, Expression: compiled}, nil
}

// linearCoefficients implements the per-element formula of spec §4.5.
func linearCoefficients(srcMin, srcMax, dstMin, dstMax float64) (scale, offset float64) {
	switch {
	case srcMin == srcMax:
		return 0, dstMin
	case srcMin == dstMin && srcMax == dstMax:
		return 1, 0
	default:
		scale = (dstMax - dstMin) / (srcMax - srcMin)
		offset = (dstMax*srcMin - dstMin*srcMax) / (srcMin - srcMax)
		return scale, offset
	}
}

func deriveExpression(sources []*slot.Slot, dest *slot.Slot, text string, compiler expr.Compiler) (Commit, error) {
	if len(sources) < 1 {
		return Commit{}, fmt.Errorf("%w: expression mode requires at least one source", mapperr.ErrNotReady)
	}
	if !dest.Ready() {
		return Commit{}, fmt.Errorf("%w: expression mode requires destination type/length known", mapperr.ErrNotReady)
	}
	srcLengths := make([]int, len(sources))
	for i, s := range sources {
		if !s.Ready() {
			return Commit{}, fmt.Errorf("%w: expression mode requires every source type/length known", mapperr.ErrNotReady)
		}
		srcLengths[i], _ = s.Length()
	}

	dstLen, _ := dest.Length()
	if text == "" {
		text = defaultExpressionText(srcLengths, dstLen)
	}

	dstType, _ := dest.Type()
	compiled, err := compiler.Compile(text, len(sources), srcLengths, dstLen, dstType)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: %v", mapperr.ErrParse, err)
	}
	return Commit{Mode: Expression, Expression: compiled}, nil
}

// defaultExpressionText implements spec §4.5's "default synthesis when
// mode is requested without a string".
func defaultExpressionText(srcLengths []int, dstLen int) string {
	if len(srcLengths) == 1 {
		if srcLengths[0] == dstLen {
			return expr.Identity()
		}
		return expr.VectorSlice()
	}
	return expr.Mean()
}
