package models

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty defines the declared difficulty of a topic.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyExpert Difficulty = "EXPERT"
)

// TopicPick is a subject area a player declared for the game, with the
// difficulty the questions in it should be generated at.
type TopicPick struct {
	Name       string     `json:"name"`
	Difficulty Difficulty `json:"difficulty"`
}

// Player represents a participant bound to a session. LocalID is the opaque
// durable identity persisted on the participant's device; AccountID is set
// when the participant is signed in. Exactly one player per session is the
// moderator.
type Player struct {
	ID          uuid.UUID      `json:"id"`
	SessionID   uuid.UUID      `json:"session_id"`
	LocalID     string         `json:"local_id"`
	Name        string         `json:"name"`
	IsModerator bool           `json:"is_moderator"`
	Score       int            `json:"score"`
	Topics      []TopicPick    `json:"topics"`
	TopicScores map[string]int `json:"topic_scores"`
	AccountID   *string        `json:"account_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TallyFor returns the player's correct-answer count for a topic.
func (p *Player) TallyFor(topic string) int {
	if p.TopicScores == nil {
		return 0
	}
	return p.TopicScores[topic]
}
