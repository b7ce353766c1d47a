package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMatterFieldUpdated       EventType = "matter_field_updated"
	EventMatterStatusTransitioned EventType = "matter_status_transitioned"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID int64 `json:"user_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	MatterID  string    `json:"matter_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// MatterFieldUpdatedPayload payload.
type MatterFieldUpdatedPayload struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	FieldType string `json:"field_type"`
	Value     any    `json:"value"`
}

// MatterStatusTransitionedPayload payload.
type MatterStatusTransitionedPayload struct {
	StatusFieldID string  `json:"status_field_id"`
	FromStatusID  *string `json:"from_status_id,omitempty"`
	ToStatusID    string  `json:"to_status_id"`
	ToTerminal    bool    `json:"to_terminal"`
}
