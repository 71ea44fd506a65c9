package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the lifecycle state of a session.
type GameStatus string

const (
	GameStatusLobby      GameStatus = "LOBBY"
	GameStatusGenerating GameStatus = "GENERATING"
	GameStatusPlaying    GameStatus = "PLAYING"
	GameStatusResults    GameStatus = "RESULTS"
)

// Session represents one game instance, addressed by a short join code.
// Status transitions are the only permitted mutation path; sessions are
// never deleted, only superseded by status.
type Session struct {
	ID                   uuid.UUID  `json:"id"`
	Code                 string     `json:"code"`
	Status               GameStatus `json:"status"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	DebtAmount           int        `json:"debt_amount"`
	QuestionsPerTopic    int        `json:"questions_per_topic"`
	ModeratorLocalID     string     `json:"moderator_local_id"`
	AccountID            *string    `json:"account_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
