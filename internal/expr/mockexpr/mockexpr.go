// Package mockexpr is the reference expr.Compiler this repository ships.
// It understands exactly the small vocabulary the mode machine synthesizes
// (package expr's Identity/VectorSlice/Mean/Linear) plus two fixed
// history-using forms ("delta" and "avg3") that exercise bounded input and
// variable history. It is not a general expression language — that
// surface syntax is explicitly out of scope (spec §1 Non-goals) — but it
// lets the engine run and be tested end-to-end without a real compiler,
// per the design note in spec §9 ("substitute a mock that returns a fixed
// evaluator closure").
package mockexpr

import (
	"fmt"
	"strings"

	"github.com/vincentgoudard/libmapper/internal/expr"
	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/value"
)

// Compiler is the mock expr.Compiler.
type Compiler struct{}

// New returns a ready-to-use mock compiler.
func New() *Compiler { return &Compiler{} }

// Compile implements expr.Compiler.
func (c *Compiler) Compile(source string, numSources int, srcLengths []int, dstLength int, dstType value.Type) (expr.Expression, error) {
	switch {
	case source == expr.Identity():
		if numSources != 1 || srcLengths[0] != dstLength {
			return nil, fmt.Errorf("%w: identity requires one source of matching length", mapperr.ErrParse)
		}
		return &identityExpr{srcLen: srcLengths[0], dstLen: dstLength, dstType: dstType, src: source}, nil

	case source == expr.VectorSlice():
		if numSources != 1 {
			return nil, fmt.Errorf("%w: vslice requires exactly one source", mapperr.ErrParse)
		}
		return &vsliceExpr{srcLen: srcLengths[0], dstLen: dstLength, dstType: dstType, src: source}, nil

	case source == expr.Mean():
		if numSources < 1 {
			return nil, fmt.Errorf("%w: mean requires at least one source", mapperr.ErrParse)
		}
		return &meanExpr{srcLens: append([]int(nil), srcLengths...), dstLen: dstLength, dstType: dstType, src: source}, nil

	case strings.HasPrefix(source, "y=linear("):
		scale, offset, err := expr.ParseLinear(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", mapperr.ErrParse, err)
		}
		if numSources != 1 {
			return nil, fmt.Errorf("%w: linear requires exactly one source", mapperr.ErrParse)
		}
		if len(scale) != dstLength {
			return nil, fmt.Errorf("%w: linear coefficient length %d != dst length %d", mapperr.ErrParse, len(scale), dstLength)
		}
		return &linearExpr{srcLen: srcLengths[0], dstLen: dstLength, dstType: dstType, scale: scale, offset: offset, src: source}, nil

	case source == "y=delta(x)":
		if numSources != 1 || srcLengths[0] != dstLength {
			return nil, fmt.Errorf("%w: delta requires one source of matching length", mapperr.ErrParse)
		}
		return &deltaExpr{length: dstLength, dstType: dstType, src: source}, nil

	case source == "y=avg3(x)":
		if numSources != 1 || srcLengths[0] != dstLength {
			return nil, fmt.Errorf("%w: avg3 requires one source of matching length", mapperr.ErrParse)
		}
		return &avg3Expr{length: dstLength, dstType: dstType, src: source}, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized expression %q", mapperr.ErrParse, source)
	}
}

func fullTypestring(n int, t value.Type) []byte {
	ts := make([]byte, n)
	for i := range ts {
		ts[i] = t.Char()
	}
	return ts
}

// identityExpr implements y=x.
type identityExpr struct {
	srcLen, dstLen int
	dstType        value.Type
	src            string
}

func (e *identityExpr) InputHistorySize(int) int { return 1 }
func (e *identityExpr) OutputHistorySize() int { return 1 }
func (e *identityExpr) NumVariables() int { return 0 }
func (e *identityExpr) VariableHistorySize(int) int { return 0 }
func (e *identityExpr) VariableVectorLength(int) int { return 0 }
func (e *identityExpr) Source() string { return e.src }

func (e *identityExpr) Evaluate(sources []*value.Buffer, tt value.Timetag, output *value.Buffer, vars *expr.Variables, instanceID int) ([]byte, error) {
	in, err := sources[0].Read(0)
	if err != nil {
		return nil, err
	}
	out := value.Sample{Values: make([]value.Value, e.dstLen)}
	for i := 0; i < e.dstLen; i++ {
		out.Values[i] = value.FromFloat64(e.dstType, in.Values[i].Float64())
	}
	if err := output.Write(out, tt); err != nil {
		return nil, err
	}
	return fullTypestring(e.dstLen, e.dstType), nil
}

// vsliceExpr truncates on the longer side between source and destination
// length (spec §4.5 default synthesis for mismatched lengths).
type vsliceExpr struct {
	srcLen, dstLen int
	dstType        value.Type
	src            string
}

func (e *vsliceExpr) InputHistorySize(int) int { return 1 }
func (e *vsliceExpr) OutputHistorySize() int { return 1 }
func (e *vsliceExpr) NumVariables() int { return 0 }
func (e *vsliceExpr) VariableHistorySize(int) int { return 0 }
func (e *vsliceExpr) VariableVectorLength(int) int { return 0 }
func (e *vsliceExpr) Source() string { return e.src }

func (e *vsliceExpr) Evaluate(sources []*value.Buffer, tt value.Timetag, output *value.Buffer, vars *expr.Variables, instanceID int) ([]byte, error) {
	in, err := sources[0].Read(0)
	if err != nil {
		return nil, err
	}
	n := e.srcLen
	if e.dstLen < n {
		n = e.dstLen
	}
	out := value.Sample{Values: make([]value.Value, e.dstLen)}
	ts := make([]byte, e.dstLen)
	for i := 0; i < e.dstLen; i++ {
		if i < n {
			out.Values[i] = value.FromFloat64(e.dstType, in.Values[i].Float64())
			ts[i] = e.dstType.Char()
		} else {
			out.Values[i] = value.Value{Type: e.dstType}
			ts[i] = 'N'
		}
	}
	if err := output.Write(out, tt); err != nil {
		return nil, err
	}
	return ts, nil
}

// meanExpr is the elementwise mean across sources, padding shorter
// sources with zero and slicing longer ones to dstLen (spec §4.5 default
// synthesis for multiple sources).
type meanExpr struct {
	srcLens []int
	dstLen  int
	dstType value.Type
	src     string
}

func (e *meanExpr) InputHistorySize(int) int { return 1 }
func (e *meanExpr) OutputHistorySize() int { return 1 }
func (e *meanExpr) NumVariables() int { return 0 }
func (e *meanExpr) VariableHistorySize(int) int { return 0 }
func (e *meanExpr) VariableVectorLength(int) int { return 0 }
func (e *meanExpr) Source() string { return e.src }

func (e *meanExpr) Evaluate(sources []*value.Buffer, tt value.Timetag, output *value.Buffer, vars *expr.Variables, instanceID int) ([]byte, error) {
	sums := make([]float64, e.dstLen)
	for si, buf := range sources {
		in, err := buf.Read(0)
		if err != nil {
			return nil, err
		}
		for i := 0; i < e.dstLen; i++ {
			if i < e.srcLens[si] {
				sums[i] += in.Values[i].Float64()
			}
			// shorter sources pad with zero: nothing to add.
		}
	}
	out := value.Sample{Values: make([]value.Value, e.dstLen)}
	n := float64(len(sources))
	for i := 0; i < e.dstLen; i++ {
		out.Values[i] = value.FromFloat64(e.dstType, sums[i]/n)
	}
	if err := output.Write(out, tt); err != nil {
		return nil, err
	}
	return fullTypestring(e.dstLen, e.dstType), nil
}

// linearExpr implements y=x*scale+offset elementwise (spec §4.5).
type linearExpr struct {
	srcLen, dstLen int
	dstType        value.Type
	scale, offset  []float64
	src            string
}

func (e *linearExpr) InputHistorySize(int) int { return 1 }
func (e *linearExpr) OutputHistorySize() int { return 1 }
func (e *linearExpr) NumVariables() int { return 0 }
func (e *linearExpr) VariableHistorySize(int) int { return 0 }
func (e *linearExpr) VariableVectorLength(int) int { return 0 }
func (e *linearExpr) Source() string { return e.src }

func (e *linearExpr) Evaluate(sources []*value.Buffer, tt value.Timetag, output *value.Buffer, vars *expr.Variables, instanceID int) ([]byte, error) {
	in, err := sources[0].Read(0)
	if err != nil {
		return nil, err
	}
	n := e.srcLen
	if e.dstLen < n {
		n = e.dstLen
	}
	out := value.Sample{Values: make([]value.Value, e.dstLen)}
	ts := make([]byte, e.dstLen)
	for i := 0; i < e.dstLen; i++ {
		if i < n {
			f := in.Values[i].Float64()*e.scale[i] + e.offset[i]
			out.Values[i] = value.FromFloat64(e.dstType, f)
			ts[i] = e.dstType.Char()
		} else {
			out.Values[i] = value.Value{Type: e.dstType}
			ts[i] = 'N'
		}
	}
	if err := output.Write(out, tt); err != nil {
		return nil, err
	}
	return ts, nil
}

// deltaExpr demonstrates bounded input history: y = x(0) - x(1).
type deltaExpr struct {
	length  int
	dstType value.Type
	src     string
}

func (e *deltaExpr) InputHistorySize(int) int { return 2 }
func (e *deltaExpr) OutputHistorySize() int { return 1 }
func (e *deltaExpr) NumVariables() int { return 0 }
func (e *deltaExpr) VariableHistorySize(int) int { return 0 }
func (e *deltaExpr) VariableVectorLength(int) int { return 0 }
func (e *deltaExpr) Source() string { return e.src }

func (e *deltaExpr) Evaluate(sources []*value.Buffer, tt value.Timetag, output *value.Buffer, vars *expr.Variables, instanceID int) ([]byte, error) {
	cur, err := sources[0].Read(0)
	if err != nil {
		return nil, err
	}
	prev, err := sources[0].Read(1)
	if err != nil {
		// Not enough history yet: treat prior sample as zero rather than
		// failing the whole map.
		prev = value.Sample{Values: make([]value.Value, e.length)}
	}
	out := value.Sample{Values: make([]value.Value, e.length)}
	for i := 0; i < e.length; i++ {
		out.Values[i] = value.FromFloat64(e.dstType, cur.Values[i].Float64()-prev.Values[i].Float64())
	}
	if err := output.Write(out, tt); err != nil {
		return nil, err
	}
	return fullTypestring(e.length, e.dstType), nil
}

// avg3Expr demonstrates the variable-history table: a running average of
// the last 3 input samples, tracked in variable 0 (a length-matching
// accumulator) rather than via input history directly.
type avg3Expr struct {
	length  int
	dstType value.Type
	src     string
}

func (e *avg3Expr) InputHistorySize(int) int { return 1 }
func (e *avg3Expr) OutputHistorySize() int { return 1 }
func (e *avg3Expr) NumVariables() int { return 1 }
func (e *avg3Expr) VariableHistorySize(int) int { return 3 }
func (e *avg3Expr) VariableVectorLength(int) int { return e.length }
func (e *avg3Expr) Source() string { return e.src }

func (e *avg3Expr) Evaluate(sources []*value.Buffer, tt value.Timetag, output *value.Buffer, vars *expr.Variables, instanceID int) ([]byte, error) {
	in, err := sources[0].Read(0)
	if err != nil {
		return nil, err
	}
	accum := vars.Buffer(instanceID, 0)
	if err := accum.Write(in, tt); err != nil {
		return nil, err
	}

	out := value.Sample{Values: make([]value.Value, e.length)}
	n := accum.Size()
	for i := 0; i < e.length; i++ {
		var sum float64
		for k := 0; k < n; k++ {
			s, err := accum.Read(k)
			if err != nil {
				return nil, err
			}
			sum += s.Values[i].Float64()
		}
		out.Values[i] = value.FromFloat64(e.dstType, sum/float64(n))
	}
	if err := output.Write(out, tt); err != nil {
		return nil, err
	}
	return fullTypestring(e.length, e.dstType), nil
}
