package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Push delivery can drop an event between store and socket. The poller
// re-reads the authoritative buzz queue for every connected session once a
// second and pushes a full replacement, bounding how stale any client's
// queue view can get to one interval.
const DefaultPollInterval = time.Second

// QueueSource defines what the poller needs from the buzz app.
type QueueSource interface {
	Queue(ctx context.Context, sessionID uuid.UUID) ([]models.QueueEntry, error)
}

// Broadcaster defines what the poller needs from the connection manager.
type Broadcaster interface {
	ActiveSessions() []uuid.UUID
	BroadcastToSession(sessionID uuid.UUID, event *SessionEvent)
}

// QueuePoller is the poll backstop behind the push path.
type QueuePoller struct {
	source   QueueSource
	conns    Broadcaster
	clock    clockwork.Clock
	interval time.Duration
}

// NewQueuePoller creates a poller at the default 1s interval.
func NewQueuePoller(source QueueSource, conns Broadcaster) *QueuePoller {
	return &QueuePoller{
		source:   source,
		conns:    conns,
		clock:    clockwork.NewRealClock(),
		interval: DefaultPollInterval,
	}
}

// WithClock swaps the clock, used in tests.
func (p *QueuePoller) WithClock(clock clockwork.Clock) *QueuePoller {
	p.clock = clock
	return p
}

// Start runs the poll loop until the context is cancelled.
func (p *QueuePoller) Start(ctx context.Context) {
	log.Info().Dur("interval", p.interval).Msg("queue poller started")

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("queue poller shutting down")
			return
		case <-ticker.Chan():
			p.sweep(ctx)
		}
	}
}

// sweep pushes one QueueSync per connected session. A failed read skips the
// session for this tick; the next tick retries.
func (p *QueuePoller) sweep(ctx context.Context) {
	for _, sessionID := range p.conns.ActiveSessions() {
		queue, err := p.source.Queue(ctx, sessionID)
		if err != nil {
			log.Error().
				Err(err).
				Str("session_id", sessionID.String()).
				Msg("queue poll read failed")
			continue
		}

		payload, err := json.Marshal(QueueSyncPayload{
			SessionID: sessionID.String(),
			Queue:     queue,
			SyncedAt:  p.clock.Now().UTC(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal QueueSync payload")
			continue
		}

		p.conns.BroadcastToSession(sessionID, &SessionEvent{
			ID:        uuid.New().String(),
			SessionID: sessionID.String(),
			Type:      EventTypeQueueSync,
			Timestamp: p.clock.Now(),
			Data:      payload,
		})
	}
}
