// Package mapengine implements the top-level Map: the owner of source and
// destination slots, the compiled expression and its variable table, and
// the Ingest/Emit data-plane operations of spec §4.7.
package mapengine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vincentgoudard/libmapper/internal/boundary"
	"github.com/vincentgoudard/libmapper/internal/expr"
	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/mlog"
	"github.com/vincentgoudard/libmapper/internal/mode"
	"github.com/vincentgoudard/libmapper/internal/pathintern"
	"github.com/vincentgoudard/libmapper/internal/slot"
	"github.com/vincentgoudard/libmapper/internal/value"
)

// LifecycleAction identifies the kind of lifecycle event a Map commit
// produces (spec §6 "Map lifecycle events (produced)").
type LifecycleAction string

const (
	Established LifecycleAction = "established"
	Modified    LifecycleAction = "modified"
	Destroyed   LifecycleAction = "destroyed"
)

// LifecycleEvent is handed to a Map's registered hook on every commit. The
// CorrelationID is a fresh UUID generated for each raised event, a detail
// the distilled spec leaves implicit (see SPEC_FULL.md §9 "Map lifecycle
// hook").
type LifecycleEvent struct {
	CorrelationID uuid.UUID
	Action        LifecycleAction
	SignalPath    string
	SlotIndex     int
}

// LifecycleHook receives lifecycle events; nil is a valid no-op hook.
type LifecycleHook func(LifecycleEvent)

// Map is the top-level owner described in spec §3/§4.7.
type Map struct {
	Sources []*slot.Slot
	Dest    *slot.Slot

	ModeState  mode.Mode
	Expression expr.Expression
	Vars       *expr.Variables
	Compiler   expr.Compiler

	Muted          bool
	Calibrating    bool
	BoundMin       boundary.Action
	BoundMax       boundary.Action
	SendAsInstance bool
	UserExpression string

	// DestSlotIndex, when >= 0, is appended as an "@slot" tag by the
	// message builder (spec §4.8 step 3) — set when this map's
	// destination is itself a slot of a further map.
	DestSlotIndex int

	// Scope holds the set of instance-publisher paths this map honors,
	// keyed by interned path (SPEC_FULL.md §9 "Path interning") rather
	// than raw strings so membership is a hashed-key lookup. ScopePaths
	// resolves a member back to its original string for logging.
	//
	// Scope is carried as control-plane state only: no data-plane
	// operation currently filters instance events by membership (see
	// DESIGN.md "scope enforcement").
	Scope      map[pathintern.Key]struct{}
	ScopePaths *pathintern.Table
	Properties map[string]interface{}

	// SignalPath identifies the destination signal for lifecycle events.
	SignalPath string
	Hook       LifecycleHook

	Revision int

	lastTypestring map[int][]byte
}

// New creates a Map with n source slots and one destination slot, all
// undefined until discovery messages populate them (spec §3 Lifecycle).
func New(n int, compiler expr.Compiler) *Map {
	if n < 1 {
		n = 1
	}
	sources := make([]*slot.Slot, n)
	for i := range sources {
		sources[i] = slot.New(slot.Source)
		sources[i].CauseUpdate = true
	}
	return &Map{
		Sources:        sources,
		Dest:           slot.New(slot.Destination),
		ModeState:      mode.Undefined,
		Compiler:       compiler,
		BoundMin:       boundary.None,
		BoundMax:       boundary.None,
		DestSlotIndex:  -1,
		Scope:          make(map[pathintern.Key]struct{}),
		ScopePaths:     pathintern.NewTable(),
		Properties:     make(map[string]interface{}),
		lastTypestring: make(map[int][]byte),
	}
}

// Ready reports the map-level READY gate of spec §3: every slot knows its
// type and length.
func (m *Map) Ready() bool {
	if !m.Dest.Ready() {
		return false
	}
	for _, s := range m.Sources {
		if !s.Ready() {
			return false
		}
	}
	return true
}

// Active reports whether the map currently performs transformations on
// ingest — ready, and committed to a real mode (not undefined or none).
func (m *Map) Active() bool {
	return m.Ready() && (m.ModeState == mode.Raw || m.ModeState == mode.Linear || m.ModeState == mode.Expression)
}

// InScope reports whether path is a member of the map's scope set, an
// empty scope meaning "no restriction" (every path is in scope).
func (m *Map) InScope(path string) bool {
	if len(m.Scope) == 0 {
		return true
	}
	_, ok := m.Scope[pathintern.Intern(path)]
	return ok
}

// RequestMode drives the mode machine (spec §4.5) and, on success, commits
// the new mode and reallocates history (spec §4.1) to the sizes the newly
// compiled expression reports. On failure the prior mode is left
// untouched and the error is returned for the caller to report.
func (m *Map) RequestMode(modeName mode.Mode, expressionText string) error {
	req := mode.Request{Mode: modeName, ExpressionText: expressionText}
	commit, err := mode.Derive(m.ModeState, req, m.Sources, m.Dest, m.Compiler)
	if err != nil {
		return err
	}
	if err := m.applyCommit(commit); err != nil {
		return err
	}
	m.UserExpression = expressionText
	m.Revision++
	m.raise(Modified)
	return nil
}

// applyCommit reallocates every slot's per-instance histories and the
// variable table to the sizes the new mode/expression reports, then
// installs the commit (spec §4.5 "After any mode commit, history
// reallocation is performed").
func (m *Map) applyCommit(commit mode.Commit) error {
	switch commit.Mode {
	case mode.None:
		m.ModeState = mode.None
		m.Expression = nil
		return nil

	case mode.Raw:
		if err := m.Sources[0].Realloc(1, true); err != nil {
			return fmt.Errorf("%w", mapperr.ErrAllocFailure)
		}
		if err := m.Dest.Realloc(1, false); err != nil {
			return fmt.Errorf("%w", mapperr.ErrAllocFailure)
		}
		m.ModeState = mode.Raw
		m.Expression = nil
		return nil

	case mode.Linear, mode.Expression:
		e := commit.Expression
		for i, s := range m.Sources {
			h := e.InputHistorySize(i)
			if h < 1 {
				h = 1
			}
			if err := s.Realloc(h, true); err != nil {
				return fmt.Errorf("%w", mapperr.ErrAllocFailure)
			}
		}
		outH := e.OutputHistorySize()
		if outH < 1 {
			outH = 1
		}
		if err := m.Dest.Realloc(outH, false); err != nil {
			return fmt.Errorf("%w", mapperr.ErrAllocFailure)
		}

		n := e.NumVariables()
		capacities := make([]int, n)
		lengths := make([]int, n)
		for v := 0; v < n; v++ {
			capacities[v] = e.VariableHistorySize(v)
			lengths[v] = e.VariableVectorLength(v)
		}
		if m.Vars == nil {
			m.Vars = expr.NewVariables(capacities, lengths)
		} else if err := m.Vars.Realloc(capacities, lengths, true); err != nil {
			return fmt.Errorf("%w", mapperr.ErrAllocFailure)
		}

		m.ModeState = commit.Mode
		m.Expression = e
		return nil

	default:
		return fmt.Errorf("%w: unrecognized commit mode", mapperr.ErrAllocFailure)
	}
}

// recomputeLinear re-derives linear coefficients after calibration widens
// a source range (spec §4.2 "Any widening in linear mode triggers the
// mode machine to re-derive the linear coefficients"). Failure here is
// non-fatal: the prior coefficients are retained and the event logged,
// since calibration is a background data-plane event, not an explicit
// admin request that a caller is waiting to see rejected.
func (m *Map) recomputeLinear() {
	commit, err := mode.Derive(m.ModeState, mode.Request{Mode: mode.Linear}, m.Sources, m.Dest, m.Compiler)
	if err != nil {
		mlog.Logger.Warn().Err(err).Msg("linear re-derivation after calibration failed; retaining prior coefficients")
		return
	}
	if err := m.applyCommit(commit); err != nil {
		mlog.Logger.Warn().Err(err).Msg("linear re-derivation history reallocation failed; retaining prior coefficients")
	}
}

// Ingest implements spec §4.7: write the sample into the source slot's
// per-instance history, run calibration bookkeeping, and — unless the map
// is inactive, muted, or the slot is not a cause-update slot — evaluate
// the transformation and apply the boundary processor.
func (m *Map) Ingest(slotIndex, instanceID int, sample value.Sample, tt value.Timetag) (mapperr.Outcome, error) {
	if slotIndex < 0 || slotIndex >= len(m.Sources) {
		return mapperr.Err, fmt.Errorf("%w: slot %d", mapperr.ErrOutOfBounds, slotIndex)
	}
	src := m.Sources[slotIndex]
	buf := src.Instance(instanceID)
	if err := buf.Write(sample, tt); err != nil {
		return mapperr.Err, err
	}

	if m.Calibrating {
		if changed := src.Calibrate(sample); changed && m.ModeState == mode.Linear {
			m.recomputeLinear()
		}
	}

	if !m.Active() || m.Muted || !src.CauseUpdate {
		return mapperr.Pass, nil
	}

	dstLen, _ := m.Dest.Length()
	dstType, _ := m.Dest.Type()
	destBuf := m.Dest.Instance(instanceID)

	var typestring []byte
	switch m.ModeState {
	case mode.Raw:
		srcLen, _ := src.Length()
		srcType, _ := src.Type()
		n := srcLen
		if dstLen < n {
			n = dstLen
		}
		out := value.Sample{Values: make([]value.Value, dstLen)}
		ts := make([]byte, dstLen)
		for i := 0; i < dstLen; i++ {
			if i < n {
				out.Values[i] = value.FromFloat64(dstType, sample.Values[i].Float64())
				ts[i] = srcType.Char()
			} else {
				out.Values[i] = value.Value{Type: dstType}
				ts[i] = 'N'
			}
		}
		if err := destBuf.Write(out, tt); err != nil {
			return mapperr.Err, err
		}
		typestring = ts

	case mode.Linear, mode.Expression:
		sources := make([]*value.Buffer, len(m.Sources))
		for i, s := range m.Sources {
			sources[i] = s.Instance(instanceID)
		}
		ts, err := m.Expression.Evaluate(sources, tt, destBuf, m.Vars, instanceID)
		if err != nil {
			return mapperr.Err, err
		}
		typestring = ts

	default:
		return mapperr.Pass, nil
	}

	dstSample, err := destBuf.Read(0)
	if err != nil {
		return mapperr.Err, err
	}

	lo, loSet := m.Dest.Min()
	hi, hiSet := m.Dest.Max()
	outcome := mapperr.Pass
	if loSet && hiSet {
		outcome = boundary.Process(dstSample, lo, hi, boundary.Policy{Min: m.BoundMin, Max: m.BoundMax}, dstType)
	}

	m.lastTypestring[instanceID] = typestring
	if outcome == mapperr.Muted {
		return mapperr.Muted, nil
	}
	return outcome, nil
}

// LastSample returns the destination sample most recently written for an
// instance by Ingest, together with its typestring, and whether one exists
// (false if the instance has never been evaluated). A sample that the
// boundary processor muted is returned like any other.
func (m *Map) LastSample(instanceID int) (value.Sample, []byte, bool) {
	if !m.Dest.HasInstance(instanceID) {
		return value.Sample{}, nil, false
	}
	ts, ok := m.lastTypestring[instanceID]
	if !ok {
		return value.Sample{}, nil, false
	}
	s, err := m.Dest.Instance(instanceID).Read(0)
	if err != nil {
		return value.Sample{}, nil, false
	}
	return s, ts, true
}

func (m *Map) raise(action LifecycleAction) {
	if m.Hook == nil {
		return
	}
	m.Hook(LifecycleEvent{
		CorrelationID: uuid.New(),
		Action:        action,
		SignalPath:    m.SignalPath,
		SlotIndex:     m.DestSlotIndex,
	})
}

// Establish raises the "established" lifecycle event (spec §6) each time it
// is called; the caller invokes it after a new map's first successful
// commit.
func (m *Map) Establish() { m.raise(Established) }

// Destroy raises the "destroyed" lifecycle event (spec §6); the Map
// itself holds no external resources to release beyond its own slots.
func (m *Map) Destroy() { m.raise(Destroyed) }
