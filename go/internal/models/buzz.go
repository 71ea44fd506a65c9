package models

import (
	"time"

	"github.com/google/uuid"
)

// Buzz records a player's attempt to answer the current question first.
// TimestampMS is the server-observed arrival time in milliseconds since
// epoch. The store enforces at most one live buzz per (session, player).
type Buzz struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	TimestampMS int64     `json:"timestamp_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// QueueEntry is one slot of the derived buzz queue: buzzes for the current
// question ordered by arrival, each annotated with its delay behind the
// first entry. DeltaMS is always relative to the queue's current head and
// is recomputed whenever any entry is removed.
type QueueEntry struct {
	PlayerID    uuid.UUID `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	TimestampMS int64     `json:"timestamp_ms"`
	DeltaMS     int64     `json:"delta_ms"`
}
