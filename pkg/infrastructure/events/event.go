package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is an immutable fact appended to a stream. Version is the 1-based
// position within the stream and is zero until the store assigns it.
type Event interface {
	ID() string
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

// EventHandler receives events for the types it subscribed to
type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// EventStore is an append-only, per-stream ordered log
type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

type envelope struct {
	id        string
	eventType string
	stream    string
	data      interface{}
	at        time.Time
	version   int
}

func (e envelope) ID() string           { return e.id }
func (e envelope) Type() string         { return e.eventType }
func (e envelope) StreamID() string     { return e.stream }
func (e envelope) Data() interface{}    { return e.data }
func (e envelope) Timestamp() time.Time { return e.at }
func (e envelope) Version() int         { return e.version }

// NewEvent creates an unversioned event stamped with the current time
func NewEvent(eventType, streamID string, data interface{}) Event {
	return envelope{
		id:        uuid.NewString(),
		eventType: eventType,
		stream:    streamID,
		data:      data,
		at:        time.Now(),
	}
}

// sequenced returns a copy of event placed at version within streamID
func sequenced(event Event, streamID string, version int) Event {
	return envelope{
		id:        event.ID(),
		eventType: event.Type(),
		stream:    streamID,
		data:      event.Data(),
		at:        event.Timestamp(),
		version:   version,
	}
}
