package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

// CreateSessionRequest opens a new room. The creator becomes the moderator
// and is identified by their durable local identity.
type CreateSessionRequest struct {
	ModeratorLocalID string  `json:"moderator_local_id"`
	AccountID        *string `json:"account_id,omitempty"`
}

// ValidateAnswerRequest is the moderator's adjudication of the current
// question. PlayerID is nil when nobody is credited (time-out, skip).
// MoveNext=false with a player drops only that player's buzz and leaves
// the question open for the next in line.
type ValidateAnswerRequest struct {
	SessionID      uuid.UUID  `json:"session_id"`
	PlayerID       *uuid.UUID `json:"player_id,omitempty"`
	Points         int        `json:"points"`
	Topic          string     `json:"topic"`
	MoveNext       bool       `json:"move_next"`
	TotalQuestions int        `json:"total_questions"`
}

// ValidateAnswerResult carries everything a caller needs to update local
// projections without a follow-up read.
type ValidateAnswerResult struct {
	ScoreUpdated      bool              `json:"score_updated"`
	PlayerScore       int               `json:"player_score,omitempty"`
	PlayerTopicScores map[string]int    `json:"player_topic_scores,omitempty"`
	NewQuestionIndex  int               `json:"new_question_index"`
	NewStatus         models.GameStatus `json:"new_status"`
	GameOver          bool              `json:"game_over"`
}

// RejoinRequest asks for a full resume snapshot. LocalID is matched first;
// DisplayName is the fallback that re-binds the matching seat.
type RejoinRequest struct {
	SessionID   uuid.UUID `json:"session_id"`
	DisplayName string    `json:"display_name"`
	LocalID     string    `json:"local_id"`
}

// RejoinSnapshot is one consistent view of a session: status and cursor,
// the roster, the question set and the live buzz queue, read in a single
// transaction so a resuming client can never observe a torn adjudication.
// Player is nil when no seat matched; the caller falls back to a fresh
// join using the session metadata alone.
type RejoinSnapshot struct {
	Session   *models.Session     `json:"session"`
	Player    *models.Player      `json:"player,omitempty"`
	Players   []models.Player     `json:"players,omitempty"`
	Questions []models.Question   `json:"questions,omitempty"`
	Queue     []models.QueueEntry `json:"queue,omitempty"`
}

// ActiveSession is one unfinished session owned by an account.
type ActiveSession struct {
	SessionID   uuid.UUID         `json:"session_id"`
	Code        string            `json:"code"`
	Status      models.GameStatus `json:"status"`
	PlayerCount int               `json:"player_count"`
	CreatedAt   time.Time         `json:"created_at"`
}

// HistoryEntry is one finished game in an account's dashboard.
type HistoryEntry struct {
	SessionID   uuid.UUID `json:"session_id"`
	Code        string    `json:"code"`
	PlayerCount int       `json:"player_count"`
	TopScore    int       `json:"top_score"`
	TopPlayer   string    `json:"top_player"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Dashboard aggregates an account's live and finished sessions in one read.
type Dashboard struct {
	ActiveSessions []ActiveSession `json:"active_sessions"`
	History        []HistoryEntry  `json:"history"`
}
