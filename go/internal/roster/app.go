package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// RosterRepository defines what the app layer needs from the repository
type RosterRepository interface {
	CreatePlayer(ctx context.Context, req JoinRequest) (*models.Player, error)
	GetPlayerByLocalID(ctx context.Context, sessionID uuid.UUID, localID string) (*models.Player, error)
	GetPlayerByName(ctx context.Context, sessionID uuid.UUID, name string) (*models.Player, error)
	RebindLocalID(ctx context.Context, playerID uuid.UUID, localID string, accountID *string) (*models.Player, error)
	ListPlayersBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error)
}

// OutboxApp defines what the roster needs from the outbox app
type OutboxApp interface {
	InsertPlayerJoined(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertPlayerUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App handles roster business logic
type App struct {
	repo   RosterRepository
	outbox OutboxApp
}

// NewApp creates a new roster App
func NewApp(repo RosterRepository, outbox OutboxApp) *App {
	return &App{
		repo:   repo,
		outbox: outbox,
	}
}

// Join seats a participant in a session. The durable local identity is
// matched first; failing that, a roster row with the same display name is
// re-bound to the new identity. Name-based rebinding allows anyone typing
// an existing name to claim that seat, which is deliberate lobby behavior
// for couch play rather than an authentication mechanism.
func (a *App) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrEmptyName
	}

	if existing, err := a.repo.GetPlayerByLocalID(ctx, req.SessionID, req.LocalID); err == nil {
		return &JoinResult{Player: existing}, nil
	} else if !errors.Is(err, ErrPlayerNotFound) {
		return nil, err
	}

	if byName, err := a.repo.GetPlayerByName(ctx, req.SessionID, req.Name); err == nil {
		rebound, err := a.repo.RebindLocalID(ctx, byName.ID, req.LocalID, req.AccountID)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("session_id", req.SessionID.String()).
			Str("player_id", rebound.ID.String()).
			Str("name", rebound.Name).
			Msg("roster seat re-bound to new local identity")
		a.emitPlayerUpdated(ctx, rebound)
		return &JoinResult{Player: rebound, Rebound: true}, nil
	} else if !errors.Is(err, ErrPlayerNotFound) {
		return nil, err
	}

	player, err := a.repo.CreatePlayer(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	log.Info().
		Str("session_id", req.SessionID.String()).
		Str("player_id", player.ID.String()).
		Str("name", player.Name).
		Bool("moderator", player.IsModerator).
		Msg("player joined session")

	a.emitPlayerJoined(ctx, player)
	return &JoinResult{Player: player}, nil
}

// Players returns the session roster.
func (a *App) Players(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	players, err := a.repo.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session players: %w", err)
	}
	return players, nil
}

// DeclaredTopics collects the distinct topics declared across the roster,
// case-insensitively, preserving first-declared difficulty. When nobody
// declared anything it falls back to a single general-knowledge topic so
// generation always has work to do.
func (a *App) DeclaredTopics(ctx context.Context, sessionID uuid.UUID) ([]models.TopicPick, error) {
	players, err := a.repo.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to collect declared topics: %w", err)
	}

	var topics []models.TopicPick
	seen := make(map[string]bool)
	for _, player := range players {
		for _, pick := range player.Topics {
			key := strings.ToLower(pick.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			topics = append(topics, pick)
		}
	}

	if len(topics) == 0 {
		topics = append(topics, models.TopicPick{
			Name:       "General Knowledge",
			Difficulty: models.DifficultyMedium,
		})
	}

	return topics, nil
}

func (a *App) emitPlayerJoined(ctx context.Context, player *models.Player) {
	payload, err := json.Marshal(events.PlayerJoinedPayload{
		SessionID:  player.SessionID.String(),
		PlayerID:   player.ID.String(),
		PlayerName: player.Name,
		JoinedAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal PlayerJoined payload")
		return
	}
	if err := a.outbox.InsertPlayerJoined(ctx, player.SessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", player.SessionID.String()).Msg("failed to emit PlayerJoined event")
	}
}

// emitPlayerUpdated announces a mutation of an existing roster row, such as
// a seat re-bound to a new device identity. Failures are logged, not
// returned: the roster row is already committed.
func (a *App) emitPlayerUpdated(ctx context.Context, player *models.Player) {
	payload, err := json.Marshal(events.PlayerUpdatedPayload{
		SessionID:  player.SessionID.String(),
		PlayerID:   player.ID.String(),
		PlayerName: player.Name,
		Score:      player.Score,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal PlayerUpdated payload")
		return
	}
	if err := a.outbox.InsertPlayerUpdated(ctx, player.SessionID, payload); err != nil {
		log.Error().Err(err).Str("session_id", player.SessionID.String()).Msg("failed to emit PlayerUpdated event")
	}
}
