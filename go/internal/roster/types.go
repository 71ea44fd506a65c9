package roster

import (
	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

// JoinRequest represents a participant asking for a seat in a session.
// The moderator flag is never part of the request: it is derived from the
// session's stored moderator identity when the row is created.
type JoinRequest struct {
	SessionID uuid.UUID          `json:"session_id"`
	LocalID   string             `json:"local_id"`
	Name      string             `json:"name"`
	Topics    []models.TopicPick `json:"topics"`
	AccountID *string            `json:"account_id,omitempty"`
}

// JoinResult reports the seat the participant ended up in. Rebound is true
// when an existing roster row was re-bound to a new local identity instead
// of a fresh row being created.
type JoinResult struct {
	Player  *models.Player `json:"player"`
	Rebound bool           `json:"rebound"`
}
