package dialogue

import (
	"sync"
	"time"
)

// EventKind identifies the type of conversation event.
type EventKind string

const (
	EventConversationStart EventKind = "conversation_start"
	EventConversationEnd   EventKind = "conversation_end"
	EventTurnStart         EventKind = "turn_start"
	EventResponseComplete  EventKind = "response_complete"
	EventInterrupted       EventKind = "interrupted"
	EventUserInput         EventKind = "user_input"
	EventSearch            EventKind = "search"
	EventToolQuery         EventKind = "tool_query"
	EventTrim              EventKind = "trim"
	EventSummarized        EventKind = "summarized"
	EventEndProposed       EventKind = "end_proposed"
	EventEndConfirmed      EventKind = "end_confirmed"
	EventEndCancelled      EventKind = "end_cancelled"
	EventRepetition        EventKind = "repetition"
	EventWarning           EventKind = "warning"
	EventError             EventKind = "error"
)

// Event is a typed event emitted by the conversation engine.
type Event struct {
	Kind           EventKind              `json:"kind"`
	Timestamp      time.Time              `json:"timestamp"`
	ConversationID string                 `json:"conversation_id"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a channel.
type EventEmitter struct {
	conversationID string
	ch             chan Event
	closed         bool
	mu             sync.Mutex
}

// NewEventEmitter creates a new EventEmitter with a buffered channel.
func NewEventEmitter(conversationID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		conversationID: conversationID,
		ch:             make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel. If the emitter is closed, the event is
// silently dropped.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:           kind,
		Timestamp:      time.Now(),
		ConversationID: e.conversationID,
		Data:           data,
	}
	select {
	case e.ch <- event:
	default:
		// Channel full; drop event to avoid blocking the turn loop.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
