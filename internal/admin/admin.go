// Package admin decodes and applies the admin message schema of spec §6
// against a mapengine.Map: the control-plane surface that populates
// types, lengths, ranges, modes, and flags as discovery/configuration
// messages arrive. Every attribute update is idempotent — a revision
// counter only advances when a value actually changes (spec §3
// Lifecycle) — and field-level failures follow the per-kind policy of
// spec §7 rather than aborting the whole message, except OutOfBounds,
// which rejects the message outright before any mutation.
package admin

import (
	"fmt"

	"github.com/vincentgoudard/libmapper/internal/boundary"
	"github.com/vincentgoudard/libmapper/internal/mapengine"
	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/mode"
	"github.com/vincentgoudard/libmapper/internal/pathintern"
	"github.com/vincentgoudard/libmapper/internal/rangeresolve"
	"github.com/vincentgoudard/libmapper/internal/value"
)

// Message is a decoded admin message: every field is a pointer/slice so
// "not present on the wire" is distinguishable from "present with a zero
// value", matching the resolution-order semantics of spec §4.3.
type Message struct {
	Slot *int

	SrcType *byte // 'i' | 'f' | 'd'
	DstType *byte
	SrcLength *int
	DstLength *int

	SrcMin, SrcMax []float64
	DstMin, DstMax []float64

	Mute        *bool
	Calibrating *bool

	BoundMin *string
	BoundMax *string

	Expression     *string
	SendAsInstance *bool
	Scope          []string
	Mode           *string

	// Properties is the free-form property bag (spec §6), namespaced by
	// the caller to avoid colliding with the recognized keys above.
	Properties map[string]interface{}
}

// Apply decodes msg against m, returning the count of fields that
// actually changed (spec §7 propagation: "admin-plane operations return
// a count of fields updated; 0 is a legitimate no-op, not an error").
//
// An out-of-range @slot rejects the whole message before any mutation
// (spec §7 OutOfBounds policy). Every other per-field error — a
// LengthMismatch on a range array, a ParseError compiling an expression —
// is collected and returned alongside whatever other fields did apply
// successfully, rather than aborting the message.
func Apply(m *mapengine.Map, msg Message) (int, error) {
	slotIdx := 0
	if msg.Slot != nil {
		slotIdx = *msg.Slot
		if slotIdx < 0 || slotIdx >= len(m.Sources) {
			return 0, fmt.Errorf("%w: @slot=%d, n_sources=%d", mapperr.ErrOutOfBounds, slotIdx, len(m.Sources))
		}
	}
	src := m.Sources[slotIdx]

	changed := 0
	var errs []error
	note := func(didChange bool) {
		if didChange {
			changed++
			m.Revision++
		}
	}

	if msg.SrcType != nil {
		if t, ok := value.ParseType(*msg.SrcType); ok {
			note(src.SetType(t))
		} else {
			errs = append(errs, fmt.Errorf("@srcType: unrecognized type char %q", *msg.SrcType))
		}
	}
	if msg.DstType != nil {
		if t, ok := value.ParseType(*msg.DstType); ok {
			note(m.Dest.SetType(t))
		} else {
			errs = append(errs, fmt.Errorf("@dstType: unrecognized type char %q", *msg.DstType))
		}
	}
	if msg.SrcLength != nil {
		note(src.SetLength(*msg.SrcLength))
	}
	if msg.DstLength != nil {
		note(m.Dest.SetLength(*msg.DstLength))
	}

	if n, err := rangeresolve.ResolveAll(src, msg.SrcMin, msg.SrcMin != nil, msg.SrcMax, msg.SrcMax != nil); err != nil {
		errs = append(errs, fmt.Errorf("source %d range: %w", slotIdx, err))
		changed += n
		m.Revision += n
	} else {
		note3(&changed, &m.Revision, n)
	}
	if n, err := rangeresolve.ResolveAll(m.Dest, msg.DstMin, msg.DstMin != nil, msg.DstMax, msg.DstMax != nil); err != nil {
		errs = append(errs, fmt.Errorf("destination range: %w", err))
		changed += n
		m.Revision += n
	} else {
		note3(&changed, &m.Revision, n)
	}

	if msg.Mute != nil && *msg.Mute != m.Muted {
		m.Muted = *msg.Mute
		changed++
		m.Revision++
	}

	if msg.Calibrating != nil && *msg.Calibrating != m.Calibrating {
		m.Calibrating = *msg.Calibrating
		if m.Calibrating {
			for _, s := range m.Sources {
				s.BeginCalibration()
			}
		}
		changed++
		m.Revision++
	}

	if msg.BoundMin != nil {
		if a, ok := boundary.ParseAction(*msg.BoundMin); ok {
			if a != m.BoundMin {
				m.BoundMin = a
				changed++
				m.Revision++
			}
		} else {
			errs = append(errs, fmt.Errorf("@boundMin: unrecognized action %q", *msg.BoundMin))
		}
	}
	if msg.BoundMax != nil {
		if a, ok := boundary.ParseAction(*msg.BoundMax); ok {
			if a != m.BoundMax {
				m.BoundMax = a
				changed++
				m.Revision++
			}
		} else {
			errs = append(errs, fmt.Errorf("@boundMax: unrecognized action %q", *msg.BoundMax))
		}
	}

	if msg.SendAsInstance != nil && *msg.SendAsInstance != m.SendAsInstance {
		m.SendAsInstance = *msg.SendAsInstance
		changed++
		m.Revision++
	}

	if msg.Scope != nil {
		fresh := make(map[pathintern.Key]struct{}, len(msg.Scope))
		for _, s := range msg.Scope {
			fresh[m.ScopePaths.Intern(s)] = struct{}{}
		}
		if !scopeEqual(m.Scope, fresh) {
			m.Scope = fresh
			changed++
			m.Revision++
		}
	}

	for k, v := range msg.Properties {
		if isReservedKey(k) {
			errs = append(errs, fmt.Errorf("property %q collides with a recognized parameter name", k))
			continue
		}
		if existing, ok := m.Properties[k]; !ok || existing != v {
			m.Properties[k] = v
			changed++
			m.Revision++
		}
	}

	// Mode (and the expression text that may accompany it) is applied
	// last, since it depends on type/length/range already being current.
	if msg.Mode != nil {
		requested, ok := mode.ParseMode(*msg.Mode)
		if !ok {
			errs = append(errs, fmt.Errorf("@mode: unrecognized mode %q", *msg.Mode))
		} else {
			text := ""
			if msg.Expression != nil {
				text = *msg.Expression
			}
			if err := m.RequestMode(requested, text); err != nil {
				errs = append(errs, fmt.Errorf("@mode=%s: %w", *msg.Mode, err))
			} else {
				changed++ // RequestMode already bumped m.Revision itself
			}
		}
	}

	if len(errs) == 0 {
		return changed, nil
	}
	return changed, joinErrors(errs)
}

func note3(changed *int, revision *int, n int) {
	*changed += n
	*revision += n
}

func scopeEqual(a map[pathintern.Key]struct{}, b map[pathintern.Key]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

var reservedKeys = map[string]bool{
	"slot": true, "srcType": true, "dstType": true, "srcLength": true, "dstLength": true,
	"srcMin": true, "srcMax": true, "dstMin": true, "dstMax": true, "mute": true,
	"calibrating": true, "boundMin": true, "boundMax": true, "expression": true,
	"sendAsInstance": true, "scope": true, "mode": true,
}

func isReservedKey(k string) bool { return reservedKeys[k] }

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
