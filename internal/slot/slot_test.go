package slot

import (
	"testing"

	"github.com/vincentgoudard/libmapper/internal/value"
)

func TestReadyRequiresTypeAndLength(t *testing.T) {
	s := New(Source)
	if s.Ready() {
		t.Fatalf("empty slot should not be ready")
	}
	s.SetType(value.Int32)
	if s.Ready() {
		t.Fatalf("slot with only type known should not be ready")
	}
	s.SetLength(2)
	if !s.Ready() {
		t.Fatalf("slot with type and length known should be ready")
	}
}

func TestSetTypeIdempotent(t *testing.T) {
	s := New(Source)
	if !s.SetType(value.Int32) {
		t.Fatalf("first SetType should report a change")
	}
	if s.SetType(value.Int32) {
		t.Fatalf("repeated SetType with the same value should report no change")
	}
	if !s.SetType(value.Float64) {
		t.Fatalf("SetType with a different value should report a change")
	}
}

func TestInstanceLazyAllocation(t *testing.T) {
	s := New(Source)
	s.SetType(value.Float64)
	s.SetLength(3)

	if s.HasInstance(0) {
		t.Fatalf("instance should not exist before first use")
	}
	buf := s.Instance(0)
	if buf.Length() != 3 {
		t.Fatalf("buffer length = %d, want 3", buf.Length())
	}
	if !s.HasInstance(0) {
		t.Fatalf("instance should exist after first access")
	}
	if s.Instance(0) != buf {
		t.Fatalf("Instance should return the same buffer on repeat access")
	}
}

func TestCalibrateSeedsThenWidens(t *testing.T) {
	s := New(Source)
	s.BeginCalibration()

	changed := s.Calibrate(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, 5)}})
	if !changed {
		t.Fatalf("first calibration sample should report a change")
	}
	min, _ := s.Min()
	max, _ := s.Max()
	if min[0] != 5 || max[0] != 5 {
		t.Fatalf("min/max after first sample = %v/%v; want 5/5", min, max)
	}

	changed = s.Calibrate(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, 9)}})
	if !changed {
		t.Fatalf("widening sample should report a change")
	}
	max, _ = s.Max()
	if max[0] != 9 {
		t.Fatalf("max after widening = %v; want 9", max)
	}

	changed = s.Calibrate(value.Sample{Values: []value.Value{value.FromFloat64(value.Float64, 7)}})
	if changed {
		t.Fatalf("sample within existing range should not report a change")
	}
}

func TestSlotReallocResizesExistingInstances(t *testing.T) {
	s := New(Source)
	s.SetType(value.Int32)
	s.SetLength(1)
	buf := s.Instance(0)
	buf.Write(value.Sample{Values: []value.Value{{Type: value.Int32, I32: 1}}}, value.Timetag{})

	if err := s.Realloc(4, true); err != nil {
		t.Fatalf("realloc: %v", err)
	}
	if s.HistoryCapacity() != 4 {
		t.Fatalf("history capacity = %d, want 4", s.HistoryCapacity())
	}
	if s.Instance(0).Capacity() != 4 {
		t.Fatalf("existing instance capacity = %d, want 4", s.Instance(0).Capacity())
	}

	// Future instances are allocated at the new capacity too.
	if s.Instance(1).Capacity() != 4 {
		t.Fatalf("new instance capacity = %d, want 4", s.Instance(1).Capacity())
	}
}
