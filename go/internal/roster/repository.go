package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const playerColumns = `id, session_id, local_id, name, is_moderator, score, topics, topic_scores, account_id, created_at`

// CreatePlayer inserts a fresh roster row. The moderator flag is computed
// against the session's stored moderator identity in the same statement, so
// no request payload can mint a second moderator.
func (r *Repository) CreatePlayer(ctx context.Context, req JoinRequest) (*models.Player, error) {
	topicsBytes, err := json.Marshal(req.Topics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topics: %w", err)
	}

	query := `
		INSERT INTO players (id, session_id, local_id, name, is_moderator, topics, account_id)
		SELECT $1, s.id, $3, $4, s.moderator_local_id = $3, $5, $6
		FROM sessions s
		WHERE s.id = $2
		RETURNING ` + playerColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.New(), req.SessionID, req.LocalID, req.Name, topicsBytes, req.AccountID)

	player, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

// GetPlayerByLocalID looks a player up by the durable device identity.
func (r *Repository) GetPlayerByLocalID(ctx context.Context, sessionID uuid.UUID, localID string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE session_id = $1 AND local_id = $2`
	player, err := scanPlayer(r.pool.QueryRow(ctx, query, sessionID, localID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by local id: %w", err)
	}
	return player, nil
}

// GetPlayerByName looks a player up by display name within a session.
func (r *Repository) GetPlayerByName(ctx context.Context, sessionID uuid.UUID, name string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE session_id = $1 AND name = $2`
	player, err := scanPlayer(r.pool.QueryRow(ctx, query, sessionID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by name: %w", err)
	}
	return player, nil
}

// RebindLocalID re-binds an existing roster row to a new device identity,
// used when a participant rejoins under the same display name.
func (r *Repository) RebindLocalID(ctx context.Context, playerID uuid.UUID, localID string, accountID *string) (*models.Player, error) {
	query := `
		UPDATE players SET local_id = $2, account_id = COALESCE($3, account_id)
		WHERE id = $1
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, playerID, localID, accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to rebind player local id: %w", err)
	}
	return player, nil
}

// ListPlayersBySession returns the full roster, moderator first then by
// join time.
func (r *Repository) ListPlayersBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE session_id = $1 ORDER BY is_moderator DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read players: %w", err)
	}

	return players, nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var (
		p           models.Player
		topicsBytes []byte
		scoresBytes []byte
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.LocalID, &p.Name, &p.IsModerator, &p.Score,
		&topicsBytes, &scoresBytes, &p.AccountID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(topicsBytes) > 0 {
		if err := json.Unmarshal(topicsBytes, &p.Topics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
		}
	}
	p.TopicScores = make(map[string]int)
	if len(scoresBytes) > 0 {
		if err := json.Unmarshal(scoresBytes, &p.TopicScores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topic scores: %w", err)
		}
	}

	return &p, nil
}
