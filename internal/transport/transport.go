// Package transport defines the connection layer the game server runs on.
// Hosts assign connection ids, deliver inbound frames as events and queue
// outbound frames per connection.
package transport

import (
	"context"
	"errors"
)

var (
	ErrUnknownConn = errors.New("unknown connection")
	ErrQueueFull   = errors.New("send queue full")
	ErrClosed      = errors.New("connection closed")
)

// EventKind tags an Event.
type EventKind uint8

const (
	EventConnect EventKind = iota + 1
	EventReceive
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventReceive:
		return "receive"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is a connection lifecycle change or an inbound frame.
type Event struct {
	Kind    EventKind
	Conn    uint32
	Channel uint8
	Data    []byte // EventReceive only; owned by the receiver
	Addr    string
}

// Host is a listening transport.
//
// Every removed connection produces exactly one EventDisconnect, whether the
// remote side left, timed out or was dropped through Disconnect.
type Host interface {
	Run(ctx context.Context) error
	Events() <-chan Event
	Send(conn uint32, frames ...[]byte) error
	Disconnect(conn uint32) error
}
