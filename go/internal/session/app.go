package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Code generation retries this many times on a join-code collision before
// giving up. Collisions are rare at the scale a 6-digit space serves.
const maxCodeAttempts = 5

// SessionRepository defines what the app layer needs from the repository
type SessionRepository interface {
	CreateSession(ctx context.Context, code, moderatorLocalID string, accountID *string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	StartGenerating(ctx context.Context, sessionID uuid.UUID, debtAmount, questionsPerTopic int) (*models.Session, error)
	StartPlaying(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	RevertToLobby(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	ValidateAnswer(ctx context.Context, req ValidateAnswerRequest) (*ValidateAnswerResult, error)
	Rejoin(ctx context.Context, req RejoinRequest) (*RejoinSnapshot, error)
	Dashboard(ctx context.Context, accountID string) (*Dashboard, error)
}

// TopicSource defines what the session app needs from the roster app
type TopicSource interface {
	DeclaredTopics(ctx context.Context, sessionID uuid.UUID) ([]models.TopicPick, error)
}

// QuestionCounter defines what the session app needs from the question app
type QuestionCounter interface {
	Count(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// OutboxApp defines what the session app needs from the outbox app
type OutboxApp interface {
	InsertSessionUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertAnswerValidated(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertGenerationRequested(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertGenerationFailed(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App handles session lifecycle business logic
type App struct {
	repo      SessionRepository
	topics    TopicSource
	questions QuestionCounter
	outbox    OutboxApp
	newCode   func() string
}

// NewApp creates a new session App
func NewApp(repo SessionRepository, topics TopicSource, questions QuestionCounter, outbox OutboxApp) *App {
	return &App{
		repo:      repo,
		topics:    topics,
		questions: questions,
		outbox:    outbox,
		newCode:   GenerateCode,
	}
}

// WithCodeGenerator overrides join-code generation, used in tests to force
// collisions deterministically.
func (a *App) WithCodeGenerator(fn func() string) *App {
	a.newCode = fn
	return a
}

// Create opens a session in the Lobby state under a fresh join code,
// retrying on the unlikely code collision.
func (a *App) Create(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		session, err := a.repo.CreateSession(ctx, a.newCode(), req.ModeratorLocalID, req.AccountID)
		if err == nil {
			log.Info().
				Str("session_id", session.ID.String()).
				Str("code", session.Code).
				Msg("session created")
			return session, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to allocate session code after %d attempts: %w", maxCodeAttempts, lastErr)
}

// Get retrieves a session by id.
func (a *App) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return a.repo.GetSession(ctx, sessionID)
}

// GetByCode retrieves a session by join code.
func (a *App) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	return a.repo.GetSessionByCode(ctx, code)
}

// StartGenerating moves the session out of the Lobby, records the game
// settings and asks the generation worker for a question set covering every
// topic the roster declared.
func (a *App) StartGenerating(ctx context.Context, sessionID uuid.UUID, debtAmount, questionsPerTopic int) (*models.Session, error) {
	if debtAmount <= 0 || questionsPerTopic <= 0 {
		return nil, fmt.Errorf("debt amount and questions per topic must be positive")
	}

	session, err := a.repo.StartGenerating(ctx, sessionID, debtAmount, questionsPerTopic)
	if err != nil {
		return nil, err
	}

	topics, err := a.topics.DeclaredTopics(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	specs := make([]events.TopicSpec, len(topics))
	for i, pick := range topics {
		specs[i] = events.TopicSpec{Name: pick.Name, Difficulty: string(pick.Difficulty)}
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("topics", len(specs)).
		Int("questions_per_topic", questionsPerTopic).
		Msg("session generating question set")

	a.emitGenerationRequested(ctx, session, specs)
	a.emitSessionUpdated(ctx, session)
	return session, nil
}

// StartPlaying moves the session into play. It refuses to start without a
// committed question set.
func (a *App) StartPlaying(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	count, err := a.questions.Count(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoQuestions
	}

	session, err := a.repo.StartPlaying(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("questions", count).
		Msg("session started playing")

	a.emitSessionUpdated(ctx, session)
	return session, nil
}

// FailGeneration returns a stuck session to the Lobby after question-set
// generation gave up, keeping the settings for a retry.
func (a *App) FailGeneration(ctx context.Context, sessionID uuid.UUID, reason string) (*models.Session, error) {
	session, err := a.repo.RevertToLobby(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log.Warn().
		Str("session_id", sessionID.String()).
		Str("reason", reason).
		Msg("question generation failed, session returned to lobby")

	a.emitGenerationFailed(ctx, sessionID, reason)
	a.emitSessionUpdated(ctx, session)
	return session, nil
}

// ValidateAnswer applies the moderator's adjudication atomically and
// broadcasts the outcome. An adjudication against a session that is not
// playing surfaces ErrNotPlaying rather than partial effects.
func (a *App) ValidateAnswer(ctx context.Context, req ValidateAnswerRequest) (*ValidateAnswerResult, error) {
	result, err := a.repo.ValidateAnswer(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", req.SessionID.String()).
		Int("points", req.Points).
		Bool("move_next", req.MoveNext).
		Int("new_question_index", result.NewQuestionIndex).
		Str("new_status", string(result.NewStatus)).
		Msg("answer validated")

	a.emitAnswerValidated(ctx, req, result)
	return result, nil
}

// Skip advances past the current question without crediting anyone.
func (a *App) Skip(ctx context.Context, sessionID uuid.UUID, totalQuestions int) (*ValidateAnswerResult, error) {
	return a.ValidateAnswer(ctx, ValidateAnswerRequest{
		SessionID:      sessionID,
		MoveNext:       true,
		TotalQuestions: totalQuestions,
	})
}

// Rejoin returns one consistent snapshot of the session for a resuming
// client.
func (a *App) Rejoin(ctx context.Context, req RejoinRequest) (*RejoinSnapshot, error) {
	snapshot, err := a.repo.Rejoin(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", req.SessionID.String()).
		Bool("matched", snapshot.Player != nil).
		Msg("rejoin snapshot served")

	return snapshot, nil
}

// AccountDashboard returns the account's live sessions and finished-game
// history.
func (a *App) AccountDashboard(ctx context.Context, accountID string) (*Dashboard, error) {
	dashboard, err := a.repo.Dashboard(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account dashboard: %w", err)
	}
	return dashboard, nil
}

func (a *App) emitSessionUpdated(ctx context.Context, session *models.Session) {
	payload, err := json.Marshal(events.SessionUpdatedPayload{
		SessionID:            session.ID.String(),
		Status:               string(session.Status),
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		UpdatedAt:            session.UpdatedAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal SessionUpdated payload")
		return
	}
	if err := a.outbox.InsertSessionUpdated(ctx, session.ID, payload); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to emit SessionUpdated event")
	}
}

func (a *App) emitAnswerValidated(ctx context.Context, req ValidateAnswerRequest, result *ValidateAnswerResult) {
	p := events.AnswerValidatedPayload{
		SessionID:        req.SessionID.String(),
		Points:           req.Points,
		Topic:            req.Topic,
		MovedNext:        req.MoveNext,
		NewQuestionIndex: result.NewQuestionIndex,
		NewStatus:        string(result.NewStatus),
		ValidatedAt:      time.Now().UTC(),
	}
	if req.PlayerID != nil {
		p.PlayerID = req.PlayerID.String()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal AnswerValidated payload")
		return
	}
	if err := a.outbox.InsertAnswerValidated(ctx, req.SessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID.String()).Msg("failed to emit AnswerValidated event")
	}
}

func (a *App) emitGenerationRequested(ctx context.Context, session *models.Session, topics []events.TopicSpec) {
	payload, err := json.Marshal(events.GenerationRequestedPayload{
		SessionID:         session.ID.String(),
		DebtAmount:        session.DebtAmount,
		QuestionsPerTopic: session.QuestionsPerTopic,
		Topics:            topics,
		RequestedAt:       time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal GenerationRequested payload")
		return
	}
	if err := a.outbox.InsertGenerationRequested(ctx, session.ID, payload); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to emit GenerationRequested event")
	}
}

func (a *App) emitGenerationFailed(ctx context.Context, sessionID uuid.UUID, reason string) {
	payload, err := json.Marshal(events.GenerationFailedPayload{
		SessionID: sessionID.String(),
		Reason:    reason,
		FailedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal GenerationFailed payload")
		return
	}
	if err := a.outbox.InsertGenerationFailed(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to emit GenerationFailed event")
	}
}
