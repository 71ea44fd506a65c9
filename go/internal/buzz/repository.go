package buzz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

// Postgres unique_violation, raised by the UNIQUE(session_id, player_id)
// constraint on buzzes when a player double-presses.
const uniqueViolationCode = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// InsertBuzz writes a buzz row with the server-observed arrival timestamp.
// The insert is guarded on the session being in Playing within the same
// statement, so a buzz cannot land after a concurrent adjudication flipped
// the session to Results. A unique-constraint rejection maps to
// ErrAlreadyBuzzed; the row-level constraint, not application logic, is
// what makes concurrent duplicate presses lose.
func (r *Repository) InsertBuzz(ctx context.Context, sessionID, playerID uuid.UUID, timestampMS int64) (*models.Buzz, error) {
	const query = `
		INSERT INTO buzzes (id, session_id, player_id, timestamp_ms)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM sessions WHERE id = $2 AND status = 'PLAYING')
		RETURNING id, session_id, player_id, timestamp_ms, created_at`

	var b models.Buzz
	err := r.pool.QueryRow(ctx, query, uuid.New(), sessionID, playerID, timestampMS).
		Scan(&b.ID, &b.SessionID, &b.PlayerID, &b.TimestampMS, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotPlaying
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrAlreadyBuzzed
		}
		return nil, fmt.Errorf("failed to insert buzz: %w", err)
	}

	return &b, nil
}

// ListQueueRows returns the live buzz rows for a session joined with player
// names, ordered by arrival timestamp with insertion time as tie-break.
func (r *Repository) ListQueueRows(ctx context.Context, sessionID uuid.UUID) ([]QueueRow, error) {
	const query = `
		SELECT b.player_id, p.name, b.timestamp_ms
		FROM buzzes b
		JOIN players p ON p.id = b.player_id
		WHERE b.session_id = $1
		ORDER BY b.timestamp_ms ASC, b.created_at ASC, b.id ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buzz queue: %w", err)
	}
	defer rows.Close()

	var out []QueueRow
	for rows.Next() {
		var row QueueRow
		if err := rows.Scan(&row.PlayerID, &row.PlayerName, &row.TimestampMS); err != nil {
			return nil, fmt.Errorf("failed to scan buzz row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read buzz rows: %w", err)
	}

	return out, nil
}

// DeleteBuzzesBySession removes every live buzz for the session (full reset).
func (r *Repository) DeleteBuzzesBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM buzzes WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete buzzes by session: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeletePlayerBuzz removes only the given player's buzz, leaving the rest of
// the queue in place.
func (r *Repository) DeletePlayerBuzz(ctx context.Context, sessionID, playerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM buzzes WHERE session_id = $1 AND player_id = $2`, sessionID, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete player buzz: %w", err)
	}
	return nil
}
