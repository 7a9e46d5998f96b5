package pathintern

import "testing"

func TestInternIsStableAndDistinct(t *testing.T) {
	a := Intern("/synth1/volume")
	b := Intern("/synth1/volume")
	c := Intern("/mixer1/gain")
	if a != b {
		t.Fatalf("Intern should be stable across calls: %v != %v", a, b)
	}
	if a == c {
		t.Fatalf("distinct paths hashed to the same key: %v", a)
	}
}

func TestTableInternAndLookup(t *testing.T) {
	tbl := NewTable()
	if tbl.Has("/synth1/volume") {
		t.Fatalf("path should not be present before interning")
	}
	k := tbl.Intern("/synth1/volume")
	if !tbl.Has("/synth1/volume") {
		t.Fatalf("path should be present after interning")
	}
	got, ok := tbl.Lookup(k)
	if !ok || got != "/synth1/volume" {
		t.Fatalf("Lookup(%v) = %q, %v; want /synth1/volume, true", k, got, ok)
	}
}

func TestTableInternIsIdempotent(t *testing.T) {
	tbl := NewTable()
	k1 := tbl.Intern("/synth1/volume")
	k2 := tbl.Intern("/synth1/volume")
	if k1 != k2 {
		t.Fatalf("repeated Intern of the same path returned different keys: %v != %v", k1, k2)
	}
}
