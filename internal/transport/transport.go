// Package transport defines the contract the core consumes from a real
// network/OSC layer (spec §6 "Transport contract (consumed)"). Discovery,
// multicast, and wire codecs are out of scope (spec §1); this package
// only names the interfaces a real transport would implement and a
// looptransport test double for exercising devices without one.
package transport

import "github.com/vincentgoudard/libmapper/internal/message"

// Sender transmits an addressed frame. The core only ever calls Send; it
// never inspects delivery status beyond the returned error.
type Sender interface {
	Send(path string, frame message.Frame) error
}

// Handler receives a dispatched frame addressed to path, from sourceAddr
// (an opaque transport-level origin, e.g. "host:port").
type Handler func(path string, frame message.Frame, sourceAddr string)

// Dispatcher delivers inbound frames to registered handlers and is the
// only blocking call in the whole engine (spec §5 "only the poll call may
// block").
type Dispatcher interface {
	Sender
	// Register associates a handler with an exact path.
	Register(path string, h Handler)
	// Poll blocks up to the caller-supplied timeout (in milliseconds, 0
	// for "return immediately if nothing is pending") draining queued
	// inbound frames to their registered handlers, and returns the number
	// dispatched.
	Poll(timeoutMillis int) (int, error)
}
