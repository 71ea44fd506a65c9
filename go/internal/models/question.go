package models

import (
	"github.com/google/uuid"
)

// Question is one entry of a session's ordered question set. The whole set
// is written once when the moderator starts the game and is immutable
// afterwards; Position is the 0-based slot in play order.
type Question struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	Topic      string     `json:"topic"`
	Prompt     string     `json:"prompt"`
	Answer     string     `json:"answer"`
	Difficulty Difficulty `json:"difficulty"`
	Position   int        `json:"position"`
}
