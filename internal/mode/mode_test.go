package mode

import (
	"errors"
	"testing"

	"github.com/vincentgoudard/libmapper/internal/expr/mockexpr"
	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/slot"
	"github.com/vincentgoudard/libmapper/internal/value"
)

func readySlot(t value.Type, length int) *slot.Slot {
	s := slot.New(slot.Source)
	s.SetType(t)
	s.SetLength(length)
	return s
}

func TestDeriveRawRequiresReadiness(t *testing.T) {
	src := slot.New(slot.Source)
	dst := slot.New(slot.Destination)
	if _, err := Derive(Undefined, Request{Mode: Raw}, []*slot.Slot{src}, dst, mockexpr.New()); !errors.Is(err, mapperr.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	src = readySlot(value.Int32, 2)
	dst = readySlot(value.Float32, 2)
	commit, err := Derive(Undefined, Request{Mode: Raw}, []*slot.Slot{src}, dst, mockexpr.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commit.Mode != Raw || commit.Expression != nil {
		t.Fatalf("raw commit should have nil expression, got %+v", commit)
	}
}

func TestDeriveLinearRequiresRange(t *testing.T) {
	src := readySlot(value.Int32, 1)
	dst := readySlot(value.Float32, 1)
	if _, err := Derive(Undefined, Request{Mode: Linear}, []*slot.Slot{src}, dst, mockexpr.New()); !errors.Is(err, mapperr.ErrRangeUnknown) {
		t.Fatalf("expected ErrRangeUnknown, got %v", err)
	}
}

func TestDeriveLinearCoefficients(t *testing.T) {
	src := readySlot(value.Int32, 1)
	src.SetMin([]float64{0})
	src.SetMax([]float64{10})
	dst := readySlot(value.Float32, 1)
	dst.SetMin([]float64{0})
	dst.SetMax([]float64{10})

	commit, err := Derive(Undefined, Request{Mode: Linear}, []*slot.Slot{src}, dst, mockexpr.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commit.Mode != Linear || commit.Expression == nil {
		t.Fatalf("expected a compiled linear expression, got %+v", commit)
	}
	// Equal source and destination ranges give scale=1, offset=0.
	if commit.Expression.Source() != "y=linear(1;0)" {
		t.Fatalf("expected y=linear(1;0), got %q", commit.Expression.Source())
	}
}

func TestDeriveExpressionRejectsOnParseFailure(t *testing.T) {
	src := readySlot(value.Int32, 1)
	dst := readySlot(value.Float32, 1)
	_, err := Derive(Undefined, Request{Mode: Expression, ExpressionText: "y=nonsense(x)"}, []*slot.Slot{src}, dst, mockexpr.New())
	if !errors.Is(err, mapperr.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestDeriveExpressionDefaultsToIdentityWhenLengthsMatch(t *testing.T) {
	src := readySlot(value.Int32, 1)
	dst := readySlot(value.Float32, 1)
	commit, err := Derive(Undefined, Request{Mode: Expression}, []*slot.Slot{src}, dst, mockexpr.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commit.Expression.Source() != "y=x" {
		t.Fatalf("expected default y=x, got %q", commit.Expression.Source())
	}
}

func TestDeriveExpressionDefaultsToMeanForMultipleSources(t *testing.T) {
	s1 := readySlot(value.Int32, 1)
	s2 := readySlot(value.Int32, 1)
	dst := readySlot(value.Float32, 1)
	commit, err := Derive(Undefined, Request{Mode: Expression}, []*slot.Slot{s1, s2}, dst, mockexpr.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commit.Expression.Source() != "y=mean(x)" {
		t.Fatalf("expected default y=mean(x), got %q", commit.Expression.Source())
	}
}
