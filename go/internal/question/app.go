package question

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// QuestionRepository defines what the app layer needs from the repository
type QuestionRepository interface {
	CreateQuestionsBatch(ctx context.Context, questions []models.Question) error
	ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
	CountQuestionsBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// OutboxApp defines what the question manager needs from the outbox app
type OutboxApp interface {
	InsertQuestionsCommitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App handles question-set business logic
type App struct {
	repo   QuestionRepository
	outbox OutboxApp
}

// NewApp creates a new question App
func NewApp(repo QuestionRepository, outbox OutboxApp) *App {
	return &App{
		repo:   repo,
		outbox: outbox,
	}
}

// CommitSet assigns positions in the given order and persists the session's
// question set in one batch. The set is immutable after this point.
func (a *App) CommitSet(ctx context.Context, sessionID uuid.UUID, drafts []Draft) ([]models.Question, error) {
	if len(drafts) == 0 {
		return nil, ErrEmptySet
	}

	questions := make([]models.Question, len(drafts))
	for i, d := range drafts {
		questions[i] = models.Question{
			ID:         uuid.New(),
			SessionID:  sessionID,
			Topic:      d.Topic,
			Prompt:     d.Prompt,
			Answer:     d.Answer,
			Difficulty: d.Difficulty,
			Position:   i,
		}
	}

	if err := a.repo.CreateQuestionsBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to commit question set: %w", err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("count", len(questions)).
		Msg("question set committed")

	a.emitQuestionsCommitted(ctx, sessionID, len(questions))
	return questions, nil
}

// List returns the session's question set in play order.
func (a *App) List(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	questions, err := a.repo.ListQuestionsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session questions: %w", err)
	}
	return questions, nil
}

// Count returns the size of the session's committed set.
func (a *App) Count(ctx context.Context, sessionID uuid.UUID) (int, error) {
	count, err := a.repo.CountQuestionsBySession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to count session questions: %w", err)
	}
	return count, nil
}

func (a *App) emitQuestionsCommitted(ctx context.Context, sessionID uuid.UUID, count int) {
	payload, err := json.Marshal(events.QuestionsCommittedPayload{
		SessionID:     sessionID.String(),
		QuestionCount: count,
		CommittedAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal QuestionsCommitted payload")
		return
	}
	if err := a.outbox.InsertQuestionsCommitted(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to emit QuestionsCommitted event")
	}
}
