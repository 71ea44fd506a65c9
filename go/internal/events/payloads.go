package events

import (
	"time"
)

// Event payload types shared between the session/buzz apps, the outbox and
// the gateway. Buzz payloads are advisory: consumers re-fetch the
// authoritative queue instead of trusting the payload shape.

// Event type names as stored in the outbox and published on the bus.
const (
	TypeSessionUpdated      = "SessionUpdated"
	TypePlayerJoined        = "PlayerJoined"
	TypePlayerUpdated       = "PlayerUpdated"
	TypeQuestionsCommitted  = "QuestionsCommitted"
	TypeBuzzSubmitted       = "BuzzSubmitted"
	TypeBuzzCleared         = "BuzzCleared"
	TypeAnswerValidated     = "AnswerValidated"
	TypeGenerationRequested = "GenerationRequested"
	TypeGenerationFailed    = "GenerationFailed"
)

// SessionUpdatedPayload is the payload for a SessionUpdated event
type SessionUpdatedPayload struct {
	SessionID            string    `json:"session_id"`
	Status               string    `json:"status"`
	CurrentQuestionIndex int       `json:"current_question_index"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	JoinedAt   time.Time `json:"joined_at"`
}

// PlayerUpdatedPayload is the payload for a PlayerUpdated event, emitted
// when an existing roster row changes without a new seat being created,
// such as a seat re-binding to a new device identity.
type PlayerUpdatedPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QuestionsCommittedPayload is the payload for a QuestionsCommitted event
type QuestionsCommittedPayload struct {
	SessionID     string    `json:"session_id"`
	QuestionCount int       `json:"question_count"`
	CommittedAt   time.Time `json:"committed_at"`
}

// BuzzSubmittedPayload is the payload for a BuzzSubmitted event
type BuzzSubmittedPayload struct {
	SessionID   string `json:"session_id"`
	PlayerID    string `json:"player_id"`
	TimestampMS int64  `json:"timestamp_ms"`
}

// BuzzClearedPayload is the payload for a BuzzCleared event. PlayerID is
// empty for a full reset.
type BuzzClearedPayload struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id,omitempty"`
	ClearedAt time.Time `json:"cleared_at"`
}

// AnswerValidatedPayload is the payload for an AnswerValidated event
type AnswerValidatedPayload struct {
	SessionID        string    `json:"session_id"`
	PlayerID         string    `json:"player_id,omitempty"`
	Points           int       `json:"points"`
	Topic            string    `json:"topic"`
	MovedNext        bool      `json:"moved_next"`
	NewQuestionIndex int       `json:"new_question_index"`
	NewStatus        string    `json:"new_status"`
	ValidatedAt      time.Time `json:"validated_at"`
}

// GenerationRequestedPayload is the payload for a GenerationRequested event
type GenerationRequestedPayload struct {
	SessionID         string      `json:"session_id"`
	DebtAmount        int         `json:"debt_amount"`
	QuestionsPerTopic int         `json:"questions_per_topic"`
	Topics            []TopicSpec `json:"topics"`
	RequestedAt       time.Time   `json:"requested_at"`
}

// TopicSpec names one topic to generate questions for.
type TopicSpec struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
}

// GenerationFailedPayload is the payload for a GenerationFailed event
type GenerationFailedPayload struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failed_at"`
}
