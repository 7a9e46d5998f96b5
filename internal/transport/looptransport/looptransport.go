// Package looptransport is an in-process transport.Dispatcher test
// double: Send enqueues directly into a channel Poll later drains to
// registered handlers, with no network involved. It exists so
// internal/device and internal/mapengine are testable and runnable
// end-to-end without a real OSC/multicast layer (spec §1/§6 scope the
// real transport out; spec §9's "testable without X" design note applies
// equally here).
package looptransport

import (
	"errors"
	"time"

	"github.com/vincentgoudard/libmapper/internal/message"
	"github.com/vincentgoudard/libmapper/internal/transport"
)

var errFull = errors.New("looptransport: queue full")

type frame struct {
	path       string
	msg        message.Frame
	sourceAddr string
}

// Loop is a single-process transport.Dispatcher; every Device sharing one
// Loop observes every other Device's Send calls, the in-process analogue
// of a multicast fabric.
type Loop struct {
	queue    chan frame
	handlers map[string]transport.Handler
}

// New returns a Loop with room for `capacity` pending frames.
func New(capacity int) *Loop {
	if capacity < 1 {
		capacity = 1
	}
	return &Loop{
		queue:    make(chan frame, capacity),
		handlers: make(map[string]transport.Handler),
	}
}

// Send implements transport.Sender. It never blocks the caller: when the
// queue is full the frame is dropped and an error is returned, matching
// the "ingest/emit never block" guarantee of spec §5.
func (l *Loop) Send(path string, msg message.Frame) error {
	select {
	case l.queue <- frame{path: path, msg: msg, sourceAddr: "loop"}:
		return nil
	default:
		return errFull
	}
}

// Register implements transport.Dispatcher.
func (l *Loop) Register(path string, h transport.Handler) {
	l.handlers[path] = h
}

// Poll implements transport.Dispatcher: it is the sole blocking call,
// draining whatever is queued (up to timeoutMillis worth of waiting for
// the first frame if the queue is currently empty) to registered
// handlers.
func (l *Loop) Poll(timeoutMillis int) (int, error) {
	dispatched := 0

	select {
	case f := <-l.queue:
		l.dispatch(f)
		dispatched++
	case <-time.After(time.Duration(timeoutMillis) * time.Millisecond):
		return dispatched, nil
	}

	for {
		select {
		case f := <-l.queue:
			l.dispatch(f)
			dispatched++
		default:
			return dispatched, nil
		}
	}
}

func (l *Loop) dispatch(f frame) {
	if h, ok := l.handlers[f.path]; ok {
		h(f.path, f.msg, f.sourceAddr)
	}
}
