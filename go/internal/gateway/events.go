package gateway

import (
	"encoding/json"
	"time"

	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

// SessionEvent represents the base structure for all session events
type SessionEvent struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Session UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of session event
type EventType string

const (
	EventTypeSessionUpdated     EventType = "SessionUpdated"
	EventTypePlayerJoined       EventType = "PlayerJoined"
	EventTypePlayerUpdated      EventType = "PlayerUpdated"
	EventTypeQuestionsCommitted EventType = "QuestionsCommitted"
	EventTypeBuzzSubmitted      EventType = "BuzzSubmitted"
	EventTypeBuzzCleared        EventType = "BuzzCleared"
	EventTypeAnswerValidated    EventType = "AnswerValidated"
	EventTypeGenerationFailed   EventType = "GenerationFailed"
	EventTypeQueueSync          EventType = "QueueSync"
)

// QueueSyncPayload carries the authoritative buzz queue pushed by the
// periodic poll backstop. Clients replace, never merge, their local queue
// with it.
type QueueSyncPayload struct {
	SessionID string              `json:"session_id"`
	Queue     []models.QueueEntry `json:"queue"`
	SyncedAt  time.Time           `json:"synced_at"`
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *SessionEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeSessionUpdated:
		var payload events.SessionUpdatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayerJoined:
		var payload events.PlayerJoinedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayerUpdated:
		var payload events.PlayerUpdatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeQuestionsCommitted:
		var payload events.QuestionsCommittedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeBuzzSubmitted:
		var payload events.BuzzSubmittedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeBuzzCleared:
		var payload events.BuzzClearedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAnswerValidated:
		var payload events.AnswerValidatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGenerationFailed:
		var payload events.GenerationFailedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeQueueSync:
		var payload QueueSyncPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
