// Package pathintern interns OSC-style device/signal paths
// ("/<device>/<signal>") to uint64 keys, replacing the bare char* linear
// scans of the original connection.c with O(1) hashed lookup — consistent
// with spec §9's general direction of swapping source idioms for
// safer/cheaper Go equivalents (SPEC_FULL.md §9 "Path interning").
package pathintern

import "github.com/cespare/xxhash/v2"

// Key is an interned path's hash. Collisions are neither resolved nor
// detected: the table keeps the first string interned under a Key, and a
// later, different path with an equal Key maps to that entry (paths come from a
// closed, validated set — the local device/signal directory — not
// untrusted input), matching the teacher's O(1)-lookup-by-id idiom
// (orders map[uint64]*OrderNode) rather than adding collision chains this
// engine will never need.
type Key uint64

// Intern hashes path to its Key.
func Intern(path string) Key {
	return Key(xxhash.Sum64String(path))
}

// Table interns paths on first use and resolves a Key back to the string
// it was derived from, for logging and admin-message @scope membership
// tests without repeated string comparison on the ingest hot path.
type Table struct {
	byKey map[Key]string
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{byKey: make(map[Key]string)}
}

// Intern records path (if not already present) and returns its Key.
func (t *Table) Intern(path string) Key {
	k := Intern(path)
	if _, ok := t.byKey[k]; !ok {
		t.byKey[k] = path
	}
	return k
}

// Lookup returns the path a Key was interned from, if any.
func (t *Table) Lookup(k Key) (string, bool) {
	p, ok := t.byKey[k]
	return p, ok
}

// Has reports whether path has already been interned in t.
func (t *Table) Has(path string) bool {
	_, ok := t.byKey[Intern(path)]
	return ok
}
