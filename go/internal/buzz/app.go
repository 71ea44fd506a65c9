package buzz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// BuzzRepository defines what the app layer needs from the repository
type BuzzRepository interface {
	InsertBuzz(ctx context.Context, sessionID, playerID uuid.UUID, timestampMS int64) (*models.Buzz, error)
	ListQueueRows(ctx context.Context, sessionID uuid.UUID) ([]QueueRow, error)
	DeleteBuzzesBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
	DeletePlayerBuzz(ctx context.Context, sessionID, playerID uuid.UUID) error
}

// OutboxApp defines what the arbiter needs from the outbox app
type OutboxApp interface {
	InsertBuzzSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertBuzzCleared(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App is the buzz arbiter: it accepts buzz signals, establishes the total
// order among them and clears queue state on adjudication or reset. The
// store's UNIQUE(session_id, player_id) constraint is the arbiter's only
// lock-like primitive.
type App struct {
	repo   BuzzRepository
	outbox OutboxApp
	clock  clockwork.Clock
}

// NewApp creates a new buzz arbiter App
func NewApp(repo BuzzRepository, outbox OutboxApp) *App {
	return &App{
		repo:   repo,
		outbox: outbox,
		clock:  clockwork.NewRealClock(),
	}
}

// WithClock replaces the arbiter's clock. Used by tests.
func (a *App) WithClock(clock clockwork.Clock) *App {
	a.clock = clock
	return a
}

// Submit attempts to record a buzz for the player. Rejections come back as
// typed results: NotPlaying when the session is out of phase, AlreadyBuzzed
// when the uniqueness constraint turned the insert away. Both preconditions
// are enforced by the store inside the single insert statement, so there is
// no window between a status check and the write. Store failures are
// surfaced as errors and never retried here; buzzing is latency-sensitive
// and retry policy belongs to the caller.
func (a *App) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	timestampMS := a.clock.Now().UnixMilli()

	b, err := a.repo.InsertBuzz(ctx, req.SessionID, req.PlayerID, timestampMS)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyBuzzed):
			return &SubmitResult{Accepted: false, Reason: RejectReasonAlreadyBuzzed}, nil
		case errors.Is(err, ErrNotPlaying):
			return &SubmitResult{Accepted: false, Reason: RejectReasonNotPlaying}, nil
		}
		return nil, err
	}

	log.Info().
		Str("session_id", req.SessionID.String()).
		Str("player_id", req.PlayerID.String()).
		Int64("timestamp_ms", b.TimestampMS).
		Msg("buzz accepted")

	a.emitBuzzSubmitted(ctx, b)

	return &SubmitResult{Accepted: true, TimestampMS: b.TimestampMS}, nil
}

// Queue returns the authoritative buzz queue for the session's current
// question, ordered ascending by arrival with deltas against the first
// entry. Pure read; serves both push-notified re-fetches and the 1 Hz
// fallback poll.
func (a *App) Queue(ctx context.Context, sessionID uuid.UUID) ([]models.QueueEntry, error) {
	rows, err := a.repo.ListQueueRows(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buzz queue: %w", err)
	}
	return ProjectQueue(rows), nil
}

// Clear deletes every live buzz for the session (moderator reset).
func (a *App) Clear(ctx context.Context, sessionID uuid.UUID) error {
	deleted, err := a.repo.DeleteBuzzesBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("deleted", deleted).
		Msg("buzz queue cleared")

	a.emitBuzzCleared(ctx, sessionID, nil)
	return nil
}

// ClearPlayer deletes only the given player's buzz, dropping them from the
// queue while the question stays open. The queue re-presents with deltas
// recomputed against the new first entry on the next read.
func (a *App) ClearPlayer(ctx context.Context, sessionID, playerID uuid.UUID) error {
	if err := a.repo.DeletePlayerBuzz(ctx, sessionID, playerID); err != nil {
		return err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("player_id", playerID.String()).
		Msg("player buzz cleared")

	a.emitBuzzCleared(ctx, sessionID, &playerID)
	return nil
}

// emitBuzzSubmitted inserts a BuzzSubmitted event into the outbox. Failures
// are logged, not returned: the buzz row is already committed and the poll
// path guarantees delivery of queue state regardless.
func (a *App) emitBuzzSubmitted(ctx context.Context, b *models.Buzz) {
	payload, err := json.Marshal(events.BuzzSubmittedPayload{
		SessionID:   b.SessionID.String(),
		PlayerID:    b.PlayerID.String(),
		TimestampMS: b.TimestampMS,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal BuzzSubmitted payload")
		return
	}
	if err := a.outbox.InsertBuzzSubmitted(ctx, b.SessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", b.SessionID.String()).Msg("failed to emit BuzzSubmitted event")
	}
}

func (a *App) emitBuzzCleared(ctx context.Context, sessionID uuid.UUID, playerID *uuid.UUID) {
	p := events.BuzzClearedPayload{
		SessionID: sessionID.String(),
		ClearedAt: a.clock.Now().UTC(),
	}
	if playerID != nil {
		p.PlayerID = playerID.String()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal BuzzCleared payload")
		return
	}
	if err := a.outbox.InsertBuzzCleared(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to emit BuzzCleared event")
	}
}
