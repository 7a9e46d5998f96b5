// Package message implements the wire-frame assembly of spec §4.8: given
// a destination sample and its typestring, build the argument list a
// transport.Sender transmits.
package message

import (
	"fmt"

	"github.com/vincentgoudard/libmapper/internal/value"
)

// ArgKind tags one wire argument's representation (spec §6's supported
// argument types: i32, f32, f64, string, timetag, nil).
type ArgKind uint8

const (
	ArgInt32 ArgKind = iota
	ArgFloat32
	ArgFloat64
	ArgString
	ArgTimetag
	ArgNil
)

// Arg is one typed wire argument.
type Arg struct {
	Kind ArgKind
	I32  int32
	F32  float32
	F64  float64
	Str  string
	TT   value.Timetag
}

func intArg(v int32) Arg    { return Arg{Kind: ArgInt32, I32: v} }
func stringArg(s string) Arg { return Arg{Kind: ArgString, Str: s} }

// InstanceIDMap carries the origin/public instance id pair appended when
// a map's send_as_instance flag is set (spec §4.8 step 2, invariant 5).
type InstanceIDMap struct {
	Origin int32
	Public int32
}

// Frame is the assembled wire frame; Path is left for the caller (the
// device/transport layer owns addressing, spec §1 "out of scope").
type Frame struct {
	Args []Arg
}

// Build assembles a wire frame from a destination sample per spec §4.8.
//
// values is nil for a "release" announcement, in which case idMap must be
// present and every element is emitted as nil (step 1). typestring has
// length dstLen*count; count > 1 repeats the same values/typestring
// pattern (multiple copies of one sample), matching libmapper's
// instance-batching wire form.
func Build(values []value.Value, count int, typestring []byte, idMap *InstanceIDMap, slotIndex int, sendAsInstance bool) (Frame, error) {
	if count < 1 {
		count = 1
	}
	if len(typestring) == 0 {
		return Frame{}, fmt.Errorf("message: empty typestring")
	}
	if len(typestring)%count != 0 {
		return Frame{}, fmt.Errorf("message: typestring length %d not divisible by count %d", len(typestring), count)
	}
	dstLen := len(typestring) / count

	release := values == nil
	if release && idMap == nil {
		return Frame{}, fmt.Errorf("message: release frame requires an instance id map")
	}

	args := make([]Arg, 0, len(typestring)+4)
	for k := 0; k < len(typestring); k++ {
		if release {
			args = append(args, Arg{Kind: ArgNil})
			continue
		}
		idx := k % dstLen
		switch typestring[k] {
		case 'N':
			args = append(args, Arg{Kind: ArgNil})
		case 'i':
			args = append(args, Arg{Kind: ArgInt32, I32: int32(values[idx].Float64())})
		case 'f':
			args = append(args, Arg{Kind: ArgFloat32, F32: float32(values[idx].Float64())})
		case 'd':
			args = append(args, Arg{Kind: ArgFloat64, F64: values[idx].Float64()})
		default:
			return Frame{}, fmt.Errorf("message: unrecognized typestring char %q at index %d", typestring[k], k)
		}
	}

	if sendAsInstance && idMap != nil {
		args = append(args, stringArg("@instance"), intArg(idMap.Origin), intArg(idMap.Public))
	}
	if slotIndex >= 0 {
		args = append(args, stringArg("@slot"), intArg(int32(slotIndex)))
	}

	return Frame{Args: args}, nil
}
