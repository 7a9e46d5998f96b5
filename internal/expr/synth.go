package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// The mode machine synthesizes expression source text in a small fixed
// vocabulary (spec §4.5); the forms below are exactly the ones it emits.
// Parsing an arbitrary user-authored expression language is explicitly out
// of scope (spec §1 Non-goals), so the reference compiler in package
// mockexpr understands only this vocabulary plus two fixed history-using
// forms, "y=delta(x)" and "y=avg3(x)".

// Identity returns the synthesized text for "y=x": one source, equal
// lengths, no transform.
func Identity() string { return "y=x" }

// VectorSlice returns the synthesized text for a length-adapting copy:
// one source, unequal lengths, truncate on the longer side.
func VectorSlice() string { return "y=vslice(x)" }

// Mean returns the synthesized text for an elementwise mean across
// multiple sources, padding shorter sources with zero and slicing longer
// ones to the destination length.
func Mean() string { return "y=mean(x)" }

// Linear returns the synthesized text for "y=x*scale+offset", with one
// scale/offset pair per destination element (spec §4.5).
func Linear(scale, offset []float64) string {
	var sb strings.Builder
	sb.WriteString("y=linear(")
	writeFloats(&sb, scale)
	sb.WriteString(";")
	writeFloats(&sb, offset)
	sb.WriteString(")")
	return sb.String()
}

func writeFloats(sb *strings.Builder, vs []float64) {
	for i, v := range vs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
}

// ParseLinear extracts the scale/offset vectors from text synthesized by
// Linear. It is used only by the reference compiler; a real compiler
// would not need this.
func ParseLinear(text string) (scale, offset []float64, err error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "y=linear("), ")")
	parts := strings.SplitN(inner, ";", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("malformed linear expression: %q", text)
	}
	scale, err = parseFloats(parts[0])
	if err != nil {
		return nil, nil, err
	}
	offset, err = parseFloats(parts[1])
	if err != nil {
		return nil, nil, err
	}
	if len(scale) != len(offset) {
		return nil, nil, fmt.Errorf("linear expression scale/offset length mismatch: %d vs %d", len(scale), len(offset))
	}
	return scale, offset, nil
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}
