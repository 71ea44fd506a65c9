package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository.
// The app only writes; draining the outbox is the listener's job, reading
// the repository through its own EventStore interface.
type OutboxRepository interface {
	InsertOutboxEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error
}

// App handles outbox business logic
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository) *App {
	return &App{
		repo: repo,
	}
}

// InsertSessionUpdated inserts a SessionUpdated event into the outbox
func (a *App) InsertSessionUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypeSessionUpdated, payload)
}

// InsertPlayerJoined inserts a PlayerJoined event into the outbox
func (a *App) InsertPlayerJoined(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypePlayerJoined, payload)
}

// InsertPlayerUpdated inserts a PlayerUpdated event into the outbox
func (a *App) InsertPlayerUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypePlayerUpdated, payload)
}

// InsertQuestionsCommitted inserts a QuestionsCommitted event into the outbox
func (a *App) InsertQuestionsCommitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypeQuestionsCommitted, payload)
}

// InsertBuzzSubmitted inserts a BuzzSubmitted event into the outbox
func (a *App) InsertBuzzSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypeBuzzSubmitted, payload)
}

// InsertBuzzCleared inserts a BuzzCleared event into the outbox
func (a *App) InsertBuzzCleared(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypeBuzzCleared, payload)
}

// InsertAnswerValidated inserts an AnswerValidated event into the outbox
func (a *App) InsertAnswerValidated(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypeAnswerValidated, payload)
}

// InsertGenerationRequested inserts a GenerationRequested event into the outbox
func (a *App) InsertGenerationRequested(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypeGenerationRequested, payload)
}

// InsertGenerationFailed inserts a GenerationFailed event into the outbox
func (a *App) InsertGenerationFailed(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, events.TypeGenerationFailed, payload)
}

func (a *App) insertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("invalid %s payload: event payload cannot be empty", eventType)
	}

	if err := a.repo.InsertOutboxEvent(ctx, sessionID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")

	return nil
}
