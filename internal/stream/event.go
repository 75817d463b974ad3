// Package stream implements the streaming query API's event schema and a
// bounded-error producer: {type, data, timestamp, correlation_id} events
// validated before every send, aborting the stream once the total number
// of malformed events exceeds a limit.
package stream

import "time"

// EventType enumerates the external streaming event kinds.
type EventType string

const (
	EventStatus   EventType = "status"
	EventMetadata EventType = "metadata"
	EventToken    EventType = "token"
	EventSources  EventType = "sources"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

// Event is one frame of the streaming query API.
type Event struct {
	Type          EventType `json:"type"`
	Data          any       `json:"data"`
	Timestamp     float64   `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

// Validate reports whether e is well-formed enough to send. An event
// with an unrecognized Type, or a Type whose Data is nil when the type
// requires a payload, is invalid and must not be written to the wire.
func (e Event) Validate() bool {
	if e.CorrelationID == "" {
		return false
	}
	switch e.Type {
	case EventStatus, EventMetadata, EventToken, EventSources, EventError:
		return e.Data != nil
	case EventDone:
		return true
	default:
		return false
	}
}

// New builds an Event stamped with the current time.
func New(t EventType, correlationID string, data any) Event {
	return Event{Type: t, Data: data, Timestamp: float64(time.Now().UnixNano()) / 1e9, CorrelationID: correlationID}
}

// StatusData is the payload for an EventStatus frame.
type StatusData struct {
	Stage string `json:"stage"`
}

// MetadataData is the payload for an EventMetadata frame.
type MetadataData struct {
	Entities map[string]any `json:"entities,omitempty"`
	Routing  string         `json:"routing,omitempty"`
}

// TokenData is the payload for an EventToken frame.
type TokenData struct {
	Text string `json:"text"`
}

// SourcesData is the payload for an EventSources frame.
type SourcesData struct {
	Sources []any `json:"sources"`
}

// ErrorData is the payload for an EventError frame.
type ErrorData struct {
	Message string `json:"message"`
}

// DoneData is the payload for the terminating EventDone frame.
type DoneData struct {
	TotalExecutionTimeMS float64 `json:"total_execution_time_ms"`
}
