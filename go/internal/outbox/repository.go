package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEventNotFound means the notified event id is missing or already sent.
var ErrEventNotFound = errors.New("outbox event not found or already sent")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// InsertOutboxEvent writes one event row. The insert trigger raises the
// NOTIFY that wakes the listener.
func (r *Repository) InsertOutboxEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO outbox_events (id, session_id, event_type, payload) VALUES ($1, $2, $3, $4)`,
		uuid.New(), sessionID, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// FetchUnsentOutbox returns the oldest unsent events up to limit, in
// insertion order so the fallback sweep preserves event ordering.
func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, event_type, payload, created_at, sent_at
		 FROM outbox_events
		 WHERE sent_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox events: %w", err)
	}

	return events, nil
}

// FetchOutboxByID returns one unsent event by id.
func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	var e OutboxEvent
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, event_type, payload, created_at, sent_at
		 FROM outbox_events
		 WHERE id = $1 AND sent_at IS NULL`, id).
		Scan(&e.ID, &e.SessionID, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &e, nil
}

// MarkOutboxSent stamps an event as delivered to the bus.
func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE outbox_events SET sent_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}
