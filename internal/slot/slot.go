// Package slot implements one endpoint of a map — a source or the
// destination — including its per-instance history ring buffers and
// calibration accumulator (spec §3, §4.2).
package slot

import (
	"github.com/vincentgoudard/libmapper/internal/numeric"
	"github.com/vincentgoudard/libmapper/internal/value"
)

// Direction distinguishes a source slot (index 0..n-1) from the single
// destination slot.
type Direction uint8

const (
	Source Direction = iota
	Destination
)

// StatusFlags track the readiness gates of spec §3/§4.5.
type StatusFlags uint8

const (
	TypeKnown StatusFlags = 1 << iota
	LengthKnown
	LinkKnown
)

// Has reports whether all bits of want are set in f.
func (f StatusFlags) Has(want StatusFlags) bool {
	return f&want == want
}

// Slot is one endpoint of a Map.
type Slot struct {
	Direction Direction

	typ      value.Type
	typSet   bool
	length   int
	lenSet   bool
	status   StatusFlags
	minVal   []float64 // nil if unset
	maxVal   []float64 // nil if unset

	// CauseUpdate controls whether ingesting into this slot triggers an
	// emit (spec §4.7). Only meaningful for source slots.
	CauseUpdate bool

	// Calibrating latches once the first calibration sample is observed,
	// per spec §4.2.
	Calibrating bool

	// LocalSignalRange, when non-nil, is the declared range of the local
	// signal this slot is attached to — the third-priority source in the
	// range resolver (spec §4.3).
	LocalSignalRange *DeclaredRange

	instances map[int]*value.Buffer
	histCap   int
}

// DeclaredRange is the range a local Signal declares, consumed by the
// range resolver as a fallback when no admin message or prior value is
// present (spec §4.3).
type DeclaredRange struct {
	Min []float64
	Max []float64
}

// New creates an empty slot with no type/length/range known yet. History
// capacity for newly-allocated per-instance buffers defaults to 1 until
// the mode machine requests otherwise.
func New(dir Direction) *Slot {
	return &Slot{
		Direction: dir,
		instances: make(map[int]*value.Buffer),
		histCap:   1,
	}
}

// Type returns the slot's element type and whether it is known.
func (s *Slot) Type() (value.Type, bool) { return s.typ, s.typSet }

// SetType sets the element type, marking TYPE_KNOWN. Returns true if the
// value changed.
func (s *Slot) SetType(t value.Type) bool {
	if s.typSet && s.typ == t {
		return false
	}
	s.typ = t
	s.typSet = true
	s.status |= TypeKnown
	return true
}

// Length returns the slot's vector length and whether it is known.
func (s *Slot) Length() (int, bool) { return s.length, s.lenSet }

// SetLength sets the vector length, marking LENGTH_KNOWN. Returns true if
// the value changed.
func (s *Slot) SetLength(n int) bool {
	if s.lenSet && s.length == n {
		return false
	}
	s.length = n
	s.lenSet = true
	s.status |= LengthKnown
	return true
}

// SetLinked marks LINK_KNOWN (transport attached).
func (s *Slot) SetLinked() { s.status |= LinkKnown }

// Status returns the slot's current readiness flags.
func (s *Slot) Status() StatusFlags { return s.status }

// Ready reports whether the slot knows its type and length (the per-slot
// half of a Map's READY gate, spec §3).
func (s *Slot) Ready() bool { return s.status.Has(TypeKnown | LengthKnown) }

// Min returns the slot's minimum range, and whether it is set.
func (s *Slot) Min() ([]float64, bool) { return s.minVal, s.minVal != nil }

// Max returns the slot's maximum range, and whether it is set.
func (s *Slot) Max() ([]float64, bool) { return s.maxVal, s.maxVal != nil }

// SetMin replaces the minimum range. Returns true if the value changed.
func (s *Slot) SetMin(v []float64) bool {
	if sliceEq(s.minVal, v) {
		return false
	}
	s.minVal = append([]float64(nil), v...)
	return true
}

// SetMax replaces the maximum range. Returns true if the value changed.
func (s *Slot) SetMax(v []float64) bool {
	if sliceEq(s.maxVal, v) {
		return false
	}
	s.maxVal = append([]float64(nil), v...)
	return true
}

func sliceEq(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Instance returns (allocating if necessary) the per-instance history
// buffer for the given instance id. Allocation happens lazily on first use
// (spec §3 "Instance").
func (s *Slot) Instance(id int) *value.Buffer {
	if buf, ok := s.instances[id]; ok {
		return buf
	}
	buf := value.NewBuffer(s.typ, s.length, s.histCap)
	s.instances[id] = buf
	return buf
}

// HasInstance reports whether a per-instance buffer already exists.
func (s *Slot) HasInstance(id int) bool {
	_, ok := s.instances[id]
	return ok
}

// Instances returns the set of instance ids with allocated buffers.
func (s *Slot) Instances() []int {
	ids := make([]int, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	return ids
}

// HistoryCapacity returns the capacity new per-instance buffers are
// allocated with.
func (s *Slot) HistoryCapacity() int { return s.histCap }

// Realloc resizes every existing per-instance buffer to newCapacity and
// remembers it as the capacity for future instances, per spec §4.1/§4.5.
func (s *Slot) Realloc(newCapacity int, isInput bool) error {
	s.histCap = newCapacity
	for _, buf := range s.instances {
		if err := buf.Realloc(newCapacity, isInput); err != nil {
			return err
		}
	}
	return nil
}

// BeginCalibration widens nothing yet, but latches Calibrating so the next
// observed sample seeds min/max (spec §4.2).
func (s *Slot) BeginCalibration() {
	s.Calibrating = true
	s.minVal = nil
	s.maxVal = nil
}

// Calibrate observes a source sample while calibration is active. On the
// first sample it seeds min=max=sample elementwise; on later samples it
// elementwise-widens. Returns true if either bound changed, the signal the
// mode machine uses to decide whether to re-derive linear coefficients
// (spec §4.2, §4.5).
func (s *Slot) Calibrate(sample value.Sample) bool {
	if s.minVal == nil || s.maxVal == nil {
		s.minVal = make([]float64, len(sample.Values))
		s.maxVal = make([]float64, len(sample.Values))
		for i, v := range sample.Values {
			f := v.Float64()
			s.minVal[i] = f
			s.maxVal[i] = f
		}
		return true
	}

	changed := false
	for i, v := range sample.Values {
		f := v.Float64()
		if widened := numeric.Min(s.minVal[i], f); widened != s.minVal[i] {
			s.minVal[i] = widened
			changed = true
		}
		if widened := numeric.Max(s.maxVal[i], f); widened != s.maxVal[i] {
			s.maxVal[i] = widened
			changed = true
		}
	}
	return changed
}
