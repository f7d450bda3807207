package tpke

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/canopy-network/canopy/lib/tpke/log"
)

// EventType represents the type of a trade event
type EventType string

const (
	EventContextCreated       EventType = "context_created"
	EventKeysRegistered       EventType = "keys_registered"
	EventPublished            EventType = "published"
	EventReEncryptionReceived EventType = "reencryption_received"
	EventCombined             EventType = "combined"
	EventDecrypted            EventType = "decrypted"
	EventRejected             EventType = "rejected"
)

// Event is a single record of something that happened to a trade. Events
// carry public data only.
type Event struct {
	EventID   string    `json:"event_id"`
	TradeID   string    `json:"trade_id"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`

	State     TradeState `json:"state"`
	ContextID string     `json:"context_id,omitempty"`
	Group     string     `json:"group,omitempty"`
	Threshold int        `json:"threshold,omitempty"`
	Total     int        `json:"total,omitempty"`

	// Node index for per-node events, hex encoded
	Index string `json:"index,omitempty"`
	// Responses received so far
	Received int `json:"received,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// EventHandler receives trade events. Applications implement it to record
// events according to their needs. Handlers are called with the trade lock
// held and must not call back into the trade.
type EventHandler interface {
	// OnStateChange is called after every successful transition
	OnStateChange(event *Event)

	// OnReEncryption is called for every accepted node contribution
	OnReEncryption(event *Event)

	// OnRejected is called when an input is refused
	OnRejected(event *Event)
}

// NullEventHandler is a no-op implementation of EventHandler
type NullEventHandler struct{}

func (NullEventHandler) OnStateChange(*Event)  {}
func (NullEventHandler) OnReEncryption(*Event) {}
func (NullEventHandler) OnRejected(*Event)     {}

// LogEventHandler writes every event as a structured log line.
type LogEventHandler struct {
	Logger log.Logger
}

// NewLogEventHandler returns a handler logging through l.
func NewLogEventHandler(l log.Logger) *LogEventHandler {
	return &LogEventHandler{Logger: l.Named("trade")}
}

func (h *LogEventHandler) OnStateChange(e *Event) {
	h.Logger.Infow("state change", eventFields(e)...)
}

func (h *LogEventHandler) OnReEncryption(e *Event) {
	h.Logger.Debugw("re-encryption received", eventFields(e)...)
}

func (h *LogEventHandler) OnRejected(e *Event) {
	h.Logger.Warnw("input rejected", eventFields(e)...)
}

func eventFields(e *Event) []interface{} {
	fields := []interface{}{
		"event_id", e.EventID,
		"trade_id", e.TradeID,
		"event", string(e.EventType),
		"state", e.State.String(),
	}
	if e.Index != "" {
		fields = append(fields, "index", e.Index)
	}
	if e.Received > 0 {
		fields = append(fields, "received", e.Received)
	}
	if e.Error != "" {
		fields = append(fields, "error", e.Error)
	}
	for k, v := range e.Metadata {
		fields = append(fields, k, v)
	}
	return fields
}

// EventBuilder helps construct events with proper defaults
type EventBuilder struct {
	event *Event
}

// NewEventBuilder starts an event stamped with clock.
func NewEventBuilder(clock clockwork.Clock, tradeID string, eventType EventType, state TradeState) *EventBuilder {
	return &EventBuilder{
		event: &Event{
			EventID:   uuid.NewString(),
			TradeID:   tradeID,
			Timestamp: clock.Now(),
			EventType: eventType,
			State:     state,
			Success:   true,
			Metadata:  make(map[string]interface{}),
		},
	}
}

// WithContext records the public parameters of tc.
func (b *EventBuilder) WithContext(tc *ThresholdContext) *EventBuilder {
	b.event.ContextID = tc.ID()
	b.event.Group = tc.group.Name()
	b.event.Threshold = tc.threshold
	b.event.Total = tc.total
	return b
}

// WithIndex records the node index the event is about.
func (b *EventBuilder) WithIndex(idx Scalar) *EventBuilder {
	b.event.Index = scalarLabel(idx)
	return b
}

// WithReceived records how many responses have arrived.
func (b *EventBuilder) WithReceived(n int) *EventBuilder {
	b.event.Received = n
	return b
}

// WithError marks the event as failed.
func (b *EventBuilder) WithError(err error) *EventBuilder {
	if err != nil {
		b.event.Success = false
		b.event.Error = err.Error()
	}
	return b
}

// WithMetadata adds a free-form key.
func (b *EventBuilder) WithMetadata(key string, value interface{}) *EventBuilder {
	b.event.Metadata[key] = value
	return b
}

// Build returns the constructed event
func (b *EventBuilder) Build() *Event {
	return b.event
}
