package buzz

import (
	"github.com/google/uuid"
)

// RejectReason classifies a rejected buzz submission.
type RejectReason string

const (
	RejectReasonAlreadyBuzzed RejectReason = "ALREADY_BUZZED"
	RejectReasonNotPlaying    RejectReason = "NOT_PLAYING"
)

// SubmitRequest represents a buzz signal from a player.
type SubmitRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	PlayerID  uuid.UUID `json:"player_id"`
}

// SubmitResult is the typed outcome of a buzz submission. Rejections are
// results, not errors: duplicate presses and out-of-phase presses are part
// of normal play.
type SubmitResult struct {
	Accepted    bool         `json:"accepted"`
	Reason      RejectReason `json:"reason,omitempty"`
	TimestampMS int64        `json:"timestamp_ms,omitempty"`
}

// QueueRow is one live buzz row joined with the player's display name,
// in store order (timestamp ascending, insertion order as tie-break).
type QueueRow struct {
	PlayerID    uuid.UUID
	PlayerName  string
	TimestampMS int64
}
