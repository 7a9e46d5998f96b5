package mockexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentgoudard/libmapper/internal/expr"
	"github.com/vincentgoudard/libmapper/internal/value"
)

func TestIdentityRoundTrip(t *testing.T) {
	c := New()
	e, err := c.Compile(expr.Identity(), 1, []int{2}, 2, value.Float64)
	require.NoError(t, err)

	src := value.NewBuffer(value.Int32, 2, 1)
	src.Write(value.Sample{Values: []value.Value{{Type: value.Int32, I32: 3}, {Type: value.Int32, I32: 4}}}, value.Timetag{})
	dst := value.NewBuffer(value.Float64, 2, 1)

	ts, err := e.Evaluate([]*value.Buffer{src}, value.Timetag{}, dst, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{'d', 'd'}, ts)

	out, _ := dst.Read(0)
	assert.Equal(t, 3.0, out.Values[0].Float64())
	assert.Equal(t, 4.0, out.Values[1].Float64())
}

func TestVectorSliceTruncatesToShorterSide(t *testing.T) {
	c := New()
	e, err := c.Compile(expr.VectorSlice(), 1, []int{4}, 2, value.Float32)
	require.NoError(t, err)

	src := value.NewBuffer(value.Int32, 4, 1)
	src.Write(value.Sample{Values: []value.Value{
		{Type: value.Int32, I32: 1}, {Type: value.Int32, I32: 2},
		{Type: value.Int32, I32: 3}, {Type: value.Int32, I32: 4},
	}}, value.Timetag{})
	dst := value.NewBuffer(value.Float32, 2, 1)

	ts, err := e.Evaluate([]*value.Buffer{src}, value.Timetag{}, dst, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{'f', 'f'}, ts)

	out, _ := dst.Read(0)
	assert.Equal(t, 1.0, out.Values[0].Float64())
	assert.Equal(t, 2.0, out.Values[1].Float64())
}

func TestMeanAcrossSources(t *testing.T) {
	c := New()
	e, err := c.Compile(expr.Mean(), 2, []int{1, 1}, 1, value.Float64)
	require.NoError(t, err)

	a := value.NewBuffer(value.Float64, 1, 1)
	a.Write(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, 2)}}, value.Timetag{})
	b := value.NewBuffer(value.Float64, 1, 1)
	b.Write(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, 4)}}, value.Timetag{})
	dst := value.NewBuffer(value.Float64, 1, 1)

	_, err = e.Evaluate([]*value.Buffer{a, b}, value.Timetag{}, dst, nil, 0)
	require.NoError(t, err)

	out, _ := dst.Read(0)
	assert.Equal(t, 3.0, out.Values[0].Float64())
}

func TestDeltaUsesZeroWhenNoHistory(t *testing.T) {
	c := New()
	e, err := c.Compile("y=delta(x)", 1, []int{1}, 1, value.Float64)
	require.NoError(t, err)

	src := value.NewBuffer(value.Float64, 1, 2)
	src.Write(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, 5)}}, value.Timetag{})
	dst := value.NewBuffer(value.Float64, 1, 1)

	_, err = e.Evaluate([]*value.Buffer{src}, value.Timetag{}, dst, nil, 0)
	require.NoError(t, err)
	out, _ := dst.Read(0)
	assert.Equal(t, 5.0, out.Values[0].Float64())

	src.Write(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, 8)}}, value.Timetag{})
	_, err = e.Evaluate([]*value.Buffer{src}, value.Timetag{}, dst, nil, 0)
	require.NoError(t, err)
	out, _ = dst.Read(0)
	assert.Equal(t, 3.0, out.Values[0].Float64())
}

func TestAvg3AccumulatesPerInstance(t *testing.T) {
	c := New()
	e, err := c.Compile("y=avg3(x)", 1, []int{1}, 1, value.Float64)
	require.NoError(t, err)

	vars := expr.NewVariables([]int{e.VariableHistorySize(0)}, []int{e.VariableVectorLength(0)})
	src := value.NewBuffer(value.Float64, 1, 1)
	dst := value.NewBuffer(value.Float64, 1, 1)

	for _, v := range []float64{2, 4, 6} {
		src.Write(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, v)}}, value.Timetag{})
		_, err := e.Evaluate([]*value.Buffer{src}, value.Timetag{}, dst, vars, 0)
		require.NoError(t, err)
	}

	out, _ := dst.Read(0)
	assert.InDelta(t, 4.0, out.Values[0].Float64(), 1e-9) // (2+4+6)/3
}

func TestCompileUnrecognizedExpression(t *testing.T) {
	c := New()
	_, err := c.Compile("y=bogus(x)", 1, []int{1}, 1, value.Float64)
	require.Error(t, err)
}
