package value

import (
	"fmt"

	"github.com/vincentgoudard/libmapper/internal/mapperr"
)

// Buffer is a typed, fixed-capacity ring of vector samples with timetags:
// the per-instance history ring buffer of spec §4.1.
//
// Invariants (spec §3):
//   - length and element type are fixed after allocation.
//   - position == -1 iff no sample has ever been written.
//   - otherwise the most recent sample is at position, and
//     history[(position-k) mod capacity] is the k-th prior sample while
//     k < size.
type Buffer struct {
	typ      Type
	length   int
	capacity int
	history  []Sample
	position int
	size     int
}

// NewBuffer allocates a zero-initialized buffer for vectors of the given
// type and length, with room for `capacity` historical samples.
func NewBuffer(typ Type, length, capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer{
		typ:      typ,
		length:   length,
		capacity: capacity,
		history:  make([]Sample, capacity),
		position: -1,
	}
	for i := range b.history {
		b.history[i] = zeroSample(typ, length)
	}
	return b
}

func zeroSample(typ Type, length int) Sample {
	vs := make([]Value, length)
	for i := range vs {
		vs[i] = Value{Type: typ}
	}
	return Sample{Values: vs}
}

// Type returns the buffer's fixed element type.
func (b *Buffer) Type() Type { return b.typ }

// Length returns the buffer's fixed vector length.
func (b *Buffer) Length() int { return b.length }

// Capacity returns the buffer's current history capacity (spec's H).
func (b *Buffer) Capacity() int { return b.capacity }

// Size returns the number of historical samples currently retained.
func (b *Buffer) Size() int { return b.size }

// Position returns the ring index of the most recent write, or -1 if the
// buffer has never been written.
func (b *Buffer) Position() int { return b.position }

// Write advances the ring by one slot and stores sample/timetag there.
// Fails with ErrLengthMismatch if the sample's vector length does not
// match the buffer's length.
func (b *Buffer) Write(sample Sample, tt Timetag) error {
	if len(sample.Values) != b.length {
		return fmt.Errorf("%w: buffer length %d, sample length %d", mapperr.ErrLengthMismatch, b.length, len(sample.Values))
	}
	b.position = (b.position + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	cp := sample.Clone()
	cp.Timetag = tt
	b.history[b.position] = cp
	return nil
}

// Read returns the sample written k steps ago; k=0 is most recent.
func (b *Buffer) Read(k int) (Sample, error) {
	if b.position == -1 {
		return Sample{}, mapperr.ErrNotYetWritten
	}
	if k < 0 || k >= b.size {
		return Sample{}, fmt.Errorf("%w: k=%d size=%d", mapperr.ErrOutOfHistory, k, b.size)
	}
	idx := ((b.position-k)%b.capacity + b.capacity) % b.capacity
	return b.history[idx], nil
}

// Realloc rebuilds the buffer at a new capacity, per spec §4.1.
//
// Contract:
//   - preserves causal order of retained samples: for every k in
//     [0, min(size_before, new_capacity)-1], Read(k) after Realloc returns
//     the same sample as before.
//   - on growth with isInput=true, new cells are zero-initialized and
//     placed before the oldest retained sample in modular order.
//   - on shrink, retains the new_capacity most recent samples.
//   - for output buffers (isInput=false), the rebuilt buffer is zeroed and
//     position is reset to -1 (spec's "replace the tricky in-place copy
//     ... with a deterministic rebuild into a fresh buffer" design note,
//     §9).
func (b *Buffer) Realloc(newCapacity int, isInput bool) error {
	if newCapacity < 1 {
		return fmt.Errorf("%w: capacity must be >= 1", mapperr.ErrAllocFailure)
	}

	if !isInput {
		b.capacity = newCapacity
		b.history = make([]Sample, newCapacity)
		for i := range b.history {
			b.history[i] = zeroSample(b.typ, b.length)
		}
		b.position = -1
		b.size = 0
		return nil
	}

	retained := b.size
	if retained > newCapacity {
		retained = newCapacity
	}

	// Gather the retained samples oldest-first so we can rebuild a fresh
	// ring with deterministic placement.
	oldest := make([]Sample, retained)
	for i := 0; i < retained; i++ {
		k := retained - 1 - i // k=0 is most recent; we want oldest first
		s, err := b.Read(k)
		if err != nil {
			return fmt.Errorf("%w: realloc read: %v", mapperr.ErrAllocFailure, err)
		}
		oldest[i] = s
	}

	fresh := make([]Sample, newCapacity)
	for i := range fresh {
		fresh[i] = zeroSample(b.typ, b.length)
	}
	// Place retained samples at the start of the fresh ring so that the
	// most recent retained sample lands at index retained-1, and new
	// (zeroed) cells sit before the oldest retained sample in modular
	// order, exactly as spec's growth contract requires.
	for i, s := range oldest {
		fresh[i] = s
	}

	b.capacity = newCapacity
	b.history = fresh
	if retained == 0 {
		b.position = -1
		b.size = 0
	} else {
		b.position = retained - 1
		b.size = retained
	}
	return nil
}
