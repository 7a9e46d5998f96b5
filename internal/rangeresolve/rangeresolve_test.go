package rangeresolve

import (
	"errors"
	"testing"

	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/slot"
)

func TestResolveMessageValueWins(t *testing.T) {
	s := slot.New(slot.Source)
	s.SetLength(2)
	changed, err := Resolve(s, Min, []float64{1, 2}, true)
	if err != nil || !changed {
		t.Fatalf("changed=%v err=%v; want true, nil", changed, err)
	}
	min, ok := s.Min()
	if !ok || min[0] != 1 || min[1] != 2 {
		t.Fatalf("min = %v, %v; want [1 2] true", min, ok)
	}
}

func TestResolveKeepsPreviousWhenMessageAbsent(t *testing.T) {
	s := slot.New(slot.Source)
	s.SetMin([]float64{5})
	changed, err := Resolve(s, Min, nil, false)
	if err != nil || changed {
		t.Fatalf("changed=%v err=%v; want false, nil", changed, err)
	}
	min, _ := s.Min()
	if min[0] != 5 {
		t.Fatalf("min = %v; want [5]", min)
	}
}

func TestResolveFallsBackToLocalSignalRange(t *testing.T) {
	s := slot.New(slot.Source)
	s.LocalSignalRange = &slot.DeclaredRange{Min: []float64{7}, Max: []float64{9}}
	changed, err := Resolve(s, Min, nil, false)
	if err != nil || !changed {
		t.Fatalf("changed=%v err=%v; want true, nil", changed, err)
	}
	min, _ := s.Min()
	if min[0] != 7 {
		t.Fatalf("min = %v; want [7]", min)
	}
}

func TestResolveLengthMismatch(t *testing.T) {
	s := slot.New(slot.Source)
	s.SetLength(2)
	_, err := Resolve(s, Min, []float64{1}, true)
	if !errors.Is(err, mapperr.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestResolveAllContinuesPastOneFieldError(t *testing.T) {
	s := slot.New(slot.Source)
	s.SetLength(2)
	// Min has a length mismatch; Max is well-formed and should still
	// apply (spec: "skip that field; continue processing other fields").
	changed, err := ResolveAll(s, []float64{1}, true, []float64{3, 4}, true)
	if err == nil {
		t.Fatalf("expected a combined error for the bad Min field")
	}
	if !errors.Is(err, mapperr.ErrLengthMismatch) {
		t.Fatalf("expected wrapped ErrLengthMismatch, got %v", err)
	}
	if changed != 1 {
		t.Fatalf("changed = %d, want 1 (max only)", changed)
	}
	max, ok := s.Max()
	if !ok || max[0] != 3 || max[1] != 4 {
		t.Fatalf("max = %v, %v; want [3 4] true", max, ok)
	}
}

func TestResolveAllNoOpReturnsZero(t *testing.T) {
	s := slot.New(slot.Source)
	changed, err := ResolveAll(s, nil, false, nil, false)
	if err != nil || changed != 0 {
		t.Fatalf("changed=%d err=%v; want 0, nil", changed, err)
	}
}
