// Package device implements the minimal single-threaded poll loop of
// spec §5: a device owns a private set of Maps and a transport.Dispatcher,
// and is the sole place in the engine where a blocking call (Poll) is
// allowed. Ingest/Emit on the owned Maps never block.
package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/vincentgoudard/libmapper/internal/mapengine"
	"github.com/vincentgoudard/libmapper/internal/mapperr"
	"github.com/vincentgoudard/libmapper/internal/message"
	"github.com/vincentgoudard/libmapper/internal/mlog"
	"github.com/vincentgoudard/libmapper/internal/pathintern"
	"github.com/vincentgoudard/libmapper/internal/transport"
	"github.com/vincentgoudard/libmapper/internal/value"
)

// Config holds device poll-loop tuning.
type Config struct {
	Name string
	// PollTimeoutMillis bounds how long one Poll call may block waiting
	// for the first inbound frame (spec §5 "bounded by a caller-supplied
	// timeout").
	PollTimeoutMillis int
}

// DefaultConfig returns reasonable defaults for a demo/test device.
func DefaultConfig() Config {
	return Config{Name: "device", PollTimeoutMillis: 50}
}

// route associates a destination wire path with the Map that produces it
// and the slot index within that Map that a given source path feeds.
type route struct {
	destPath string
	m        *mapengine.Map
	slot     int
}

// Device owns a private set of Maps; no Map state is shared across
// devices (spec §5 "Multiple devices in one process ... share no Map
// state"). Inbound paths are interned into the device's own slot
// registry (SPEC_FULL.md §9 "Path interning"), so routing an inbound
// frame to its Map/slot is a hashed-key lookup rather than a string
// comparison on the ingest hot path.
type Device struct {
	config     Config
	dispatcher transport.Dispatcher

	mu     sync.Mutex
	maps   []*mapengine.Map
	paths  *pathintern.Table
	routes map[pathintern.Key]route

	stop chan struct{}
	done chan struct{}
}

// New creates a Device bound to dispatcher. The device does not start
// polling until Start is called.
func New(config Config, dispatcher transport.Dispatcher) *Device {
	return &Device{
		config:     config,
		dispatcher: dispatcher,
		paths:      pathintern.NewTable(),
		routes:     make(map[pathintern.Key]route),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// AddMap registers m with the device and wires srcPath (the wire address
// of the upstream signal feeding source slot index slot) to call Ingest
// on m whenever a frame arrives on that path.
func (d *Device) AddMap(m *mapengine.Map, destPath string, srcPath string, slot int) {
	d.mu.Lock()
	d.maps = append(d.maps, m)
	d.mu.Unlock()

	key := d.paths.Intern(srcPath)
	d.routes[key] = route{destPath: destPath, m: m, slot: slot}
	d.dispatcher.Register(srcPath, d.handleInbound)
}

func (d *Device) handleInbound(path string, frame message.Frame, sourceAddr string) {
	r, ok := d.routes[d.paths.Intern(path)]
	if !ok {
		return
	}
	src := r.m.Sources[r.slot]
	typ, typOk := src.Type()
	length, lenOk := src.Length()
	if !typOk || !lenOk {
		mlog.Logger.Debug().Str("path", path).Msg("dropping inbound frame: source slot not yet typed")
		return
	}

	sample, instanceID, err := decodeSample(frame, typ, length)
	if err != nil {
		mlog.Logger.Warn().Err(err).Str("path", path).Msg("dropping malformed inbound frame")
		return
	}

	d.ingestAndEmit(r.m, r.slot, instanceID, r.destPath, sample)
}

// Ingest drives a Map's ingest/emit pipeline directly — the "signal-update
// handler" of spec §5 for a programmatically-driven source (tests, the
// cmd/mapperd demo) rather than one arriving over the dispatcher.
func (d *Device) Ingest(m *mapengine.Map, destPath string, slot, instanceID int, sample value.Sample) (mapperr.Outcome, error) {
	tt := timetagNow()
	outcome, err := m.Ingest(slot, instanceID, sample, tt)
	if err != nil || outcome != mapperr.Pass {
		return outcome, err
	}
	return outcome, d.emit(m, destPath, instanceID)
}

func (d *Device) ingestAndEmit(m *mapengine.Map, slot, instanceID int, destPath string, sample value.Sample) {
	tt := timetagNow()
	outcome, err := m.Ingest(slot, instanceID, sample, tt)
	if err != nil {
		mlog.Logger.Warn().Err(err).Msg("ingest failed")
		return
	}
	if outcome != mapperr.Pass {
		return
	}
	if err := d.emit(m, destPath, instanceID); err != nil {
		mlog.Logger.Warn().Err(err).Msg("emit failed")
	}
}

func (d *Device) emit(m *mapengine.Map, destPath string, instanceID int) error {
	sample, typestring, ok := m.LastSample(instanceID)
	if !ok {
		return nil
	}
	var idMap *message.InstanceIDMap
	if m.SendAsInstance {
		idMap = &message.InstanceIDMap{Origin: int32(instanceID), Public: int32(instanceID)}
	}
	frame, err := message.Build(sample.Values, 1, typestring, idMap, m.DestSlotIndex, m.SendAsInstance)
	if err != nil {
		return fmt.Errorf("build emit frame: %w", err)
	}
	return d.dispatcher.Send(destPath, frame)
}

// Start launches the poll loop in its own goroutine; Stop (or ctx-less
// shutdown) must be called to release it.
func (d *Device) Start() {
	go d.pollLoop()
}

func (d *Device) pollLoop() {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		if _, err := d.dispatcher.Poll(d.config.PollTimeoutMillis); err != nil {
			mlog.Logger.Warn().Err(err).Msg("poll error")
		}
	}
}

// Stop signals the poll loop to exit and waits for it to do so. Map
// destruction is the caller's responsibility, serialized against poll by
// this call returning first (spec §5 "A Map destroy is serialized against
// poll by the device").
func (d *Device) Stop() {
	close(d.stop)
	<-d.done
}

func decodeSample(frame message.Frame, typ value.Type, length int) (value.Sample, int, error) {
	if len(frame.Args) < length {
		return value.Sample{}, 0, fmt.Errorf("device: frame has %d args, need %d", len(frame.Args), length)
	}
	values := make([]value.Value, length)
	for i := 0; i < length; i++ {
		a := frame.Args[i]
		switch a.Kind {
		case message.ArgInt32:
			values[i] = value.FromFloat64(typ, float64(a.I32))
		case message.ArgFloat32:
			values[i] = value.FromFloat64(typ, float64(a.F32))
		case message.ArgFloat64:
			values[i] = value.FromFloat64(typ, a.F64)
		case message.ArgNil:
			return value.Sample{}, 0, fmt.Errorf("device: nil element at index %d unsupported for ingest", i)
		default:
			return value.Sample{}, 0, fmt.Errorf("device: unsupported arg kind at index %d", i)
		}
	}

	instanceID := 0
	for i := length; i+1 < len(frame.Args); i++ {
		if frame.Args[i].Kind == message.ArgString && frame.Args[i].Str == "@instance" {
			instanceID = int(frame.Args[i+1].I32)
			break
		}
	}

	return value.Sample{Values: values}, instanceID, nil
}

func timetagNow() value.Timetag {
	now := time.Now()
	return value.Timetag{Seconds: uint32(now.Unix()), Fraction: uint32(now.Nanosecond())}
}
