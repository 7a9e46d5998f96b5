package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentgoudard/libmapper/internal/value"
)

func TestBuildBasicFrame(t *testing.T) {
	values := []value.Value{value.FromFloat64(value.Float64, 1.5), value.FromFloat64(value.Int32, 2)}
	frame, err := Build(values, 1, []byte{'d', 'i'}, nil, -1, false)
	require.NoError(t, err)
	require.Len(t, frame.Args, 2)
	assert.Equal(t, ArgFloat64, frame.Args[0].Kind)
	assert.Equal(t, 1.5, frame.Args[0].F64)
	assert.Equal(t, ArgInt32, frame.Args[1].Kind)
	assert.Equal(t, int32(2), frame.Args[1].I32)
}

func TestBuildOmitsNullElements(t *testing.T) {
	values := []value.Value{value.FromFloat64(value.Float64, 1), {}}
	frame, err := Build(values, 1, []byte{'d', 'N'}, nil, -1, false)
	require.NoError(t, err)
	assert.Equal(t, ArgNil, frame.Args[1].Kind)
}

func TestBuildReleaseFrameRequiresIDMap(t *testing.T) {
	_, err := Build(nil, 1, []byte{'d'}, nil, -1, false)
	require.Error(t, err)

	frame, err := Build(nil, 1, []byte{'d'}, &InstanceIDMap{Origin: 1, Public: 2}, -1, false)
	require.NoError(t, err)
	assert.Equal(t, ArgNil, frame.Args[0].Kind)
}

func TestBuildAppendsInstanceTag(t *testing.T) {
	values := []value.Value{value.FromFloat64(value.Float64, 1)}
	frame, err := Build(values, 1, []byte{'d'}, &InstanceIDMap{Origin: 7, Public: 9}, -1, true)
	require.NoError(t, err)
	require.Len(t, frame.Args, 4) // value + "@instance" + origin + public
	assert.Equal(t, ArgString, frame.Args[1].Kind)
	assert.Equal(t, "@instance", frame.Args[1].Str)
	assert.Equal(t, int32(7), frame.Args[2].I32)
	assert.Equal(t, int32(9), frame.Args[3].I32)
}

func TestBuildAppendsSlotTag(t *testing.T) {
	values := []value.Value{value.FromFloat64(value.Float64, 1)}
	frame, err := Build(values, 1, []byte{'d'}, nil, 3, false)
	require.NoError(t, err)
	require.Len(t, frame.Args, 3)
	assert.Equal(t, "@slot", frame.Args[1].Str)
	assert.Equal(t, int32(3), frame.Args[2].I32)
}
