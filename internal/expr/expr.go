// Package expr defines the compiled-expression contract the map engine
// consumes (spec §4.4) and the per-instance variable-history table the
// engine must size before every Evaluate call.
//
// The engine treats a compiled Expression as opaque: Evaluate is the only
// hot-path call. How an expression's source text gets turned into one is
// out of scope (spec §1 Non-goals: "the expression language's surface
// syntax"); see package mockexpr for the reference Compiler this repo
// ships so the engine is testable without a real parser, per the design
// note in spec §9.
package expr

import "github.com/vincentgoudard/libmapper/internal/value"

// Expression is a compiled expression object.
type Expression interface {
	// InputHistorySize reports how many historical samples of source i
	// this expression needs available before it can evaluate.
	InputHistorySize(i int) int
	// OutputHistorySize reports how many historical destination samples
	// this expression needs available (normally 1).
	OutputHistorySize() int
	// NumVariables reports how many expression-internal state variables
	// this expression declares.
	NumVariables() int
	// VariableHistorySize reports the history depth variable v needs.
	VariableHistorySize(v int) int
	// VariableVectorLength reports the vector length of variable v.
	VariableVectorLength(v int) int

	// Evaluate writes exactly one new destination sample into output
	// (advancing its position) and returns a typestring of length
	// output.Length(), one element type char (or 'N' for "omit this
	// element") per destination element (spec §4.4).
	//
	// Sources and vars must already contain buffers sized at the
	// capacities this Expression reports; the engine's responsibility is
	// to guarantee that before calling Evaluate (spec §4.4: "the engine
	// is required to ensure all per-instance histories referenced by E
	// exist at their requested capacities before calling evaluate").
	Evaluate(sources []*value.Buffer, sourceTimetag value.Timetag, output *value.Buffer, vars *Variables, instanceID int) (typestring []byte, err error)

	// Source returns the original text this expression was compiled
	// from, used for admin-message round-tripping (@expression) and
	// logging.
	Source() string
}

// Compiler turns synthesized or user-supplied expression text into an
// Expression. The mode machine calls Compile on every mode commit that
// needs one; a compile failure rejects the mode transition and leaves the
// map's prior mode untouched (spec §4.5, §7 ParseError).
type Compiler interface {
	Compile(source string, numSources int, srcLengths []int, dstLength int, dstType value.Type) (Expression, error)
}

// Variables is the per-instance variable-history table an Expression may
// use for internal state (spec §3 "Instance", §4.4). The Map owns one
// Variables table per compiled expression and reallocates it on every
// mode commit to the sizes the expression reports.
type Variables struct {
	capacities []int
	lengths    []int
	perInst    map[int][]*value.Buffer
}

// NewVariables allocates an (initially instance-less) table for the given
// per-variable capacities and vector lengths.
func NewVariables(capacities, lengths []int) *Variables {
	return &Variables{
		capacities: append([]int(nil), capacities...),
		lengths:    append([]int(nil), lengths...),
		perInst:    make(map[int][]*value.Buffer),
	}
}

// NumVariables returns the number of variables this table was sized for.
func (v *Variables) NumVariables() int { return len(v.capacities) }

// EnsureInstance allocates (if necessary) the variable buffers for
// instanceID, at the table's current capacities/lengths.
func (v *Variables) EnsureInstance(instanceID int) []*value.Buffer {
	if bufs, ok := v.perInst[instanceID]; ok {
		return bufs
	}
	bufs := make([]*value.Buffer, len(v.capacities))
	for i := range bufs {
		bufs[i] = value.NewBuffer(value.Float64, v.lengths[i], v.capacities[i])
	}
	v.perInst[instanceID] = bufs
	return bufs
}

// Buffer returns the buffer for (instanceID, varIdx), allocating the
// instance's variable set if this is its first use.
func (v *Variables) Buffer(instanceID, varIdx int) *value.Buffer {
	return v.EnsureInstance(instanceID)[varIdx]
}

// Realloc resizes every existing instance's variable buffers to new
// capacities/lengths, and remembers them for future instances — called
// after every mode commit (spec §4.5).
func (v *Variables) Realloc(capacities, lengths []int, isInput bool) error {
	v.capacities = append([]int(nil), capacities...)
	v.lengths = append([]int(nil), lengths...)
	for id, bufs := range v.perInst {
		fresh := make([]*value.Buffer, len(capacities))
		for i := range fresh {
			if i < len(bufs) && bufs[i].Length() == lengths[i] {
				if err := bufs[i].Realloc(capacities[i], isInput); err != nil {
					return err
				}
				fresh[i] = bufs[i]
			} else {
				fresh[i] = value.NewBuffer(value.Float64, lengths[i], capacities[i])
			}
		}
		v.perInst[id] = fresh
	}
	return nil
}
