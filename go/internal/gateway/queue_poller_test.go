package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

type fakeQueueSource struct {
	mu     sync.Mutex
	queues map[uuid.UUID][]models.QueueEntry
	errs   map[uuid.UUID]error
}

func (f *fakeQueueSource) Queue(ctx context.Context, sessionID uuid.UUID) ([]models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[sessionID]; err != nil {
		return nil, err
	}
	return f.queues[sessionID], nil
}

type fakeBroadcaster struct {
	sessions []uuid.UUID
	events   chan *SessionEvent
}

func (f *fakeBroadcaster) ActiveSessions() []uuid.UUID {
	return f.sessions
}

func (f *fakeBroadcaster) BroadcastToSession(sessionID uuid.UUID, event *SessionEvent) {
	f.events <- event
}

func TestQueuePollerPushesAuthoritativeQueue(t *testing.T) {
	sessionID := uuid.New()
	source := &fakeQueueSource{
		queues: map[uuid.UUID][]models.QueueEntry{
			sessionID: {
				{PlayerID: uuid.New(), PlayerName: "alice", TimestampMS: 1000, DeltaMS: 0},
				{PlayerID: uuid.New(), PlayerName: "bob", TimestampMS: 1200, DeltaMS: 200},
			},
		},
		errs: map[uuid.UUID]error{},
	}
	conns := &fakeBroadcaster{
		sessions: []uuid.UUID{sessionID},
		events:   make(chan *SessionEvent, 10),
	}

	clock := clockwork.NewFakeClock()
	poller := NewQueuePoller(source, conns).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Start(ctx)

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case event := <-conns.events:
		if event.Type != EventTypeQueueSync {
			t.Fatalf("expected QueueSync, got %s", event.Type)
		}
		var payload QueueSyncPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if len(payload.Queue) != 2 || payload.Queue[0].PlayerName != "alice" {
			t.Fatalf("unexpected queue payload: %+v", payload.Queue)
		}
		if payload.Queue[1].DeltaMS != 200 {
			t.Fatalf("expected delta 200, got %d", payload.Queue[1].DeltaMS)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no QueueSync broadcast after tick")
	}
}

func TestQueuePollerSkipsFailedReads(t *testing.T) {
	healthy := uuid.New()
	broken := uuid.New()
	source := &fakeQueueSource{
		queues: map[uuid.UUID][]models.QueueEntry{healthy: {}},
		errs:   map[uuid.UUID]error{broken: errors.New("store down")},
	}
	conns := &fakeBroadcaster{
		sessions: []uuid.UUID{broken, healthy},
		events:   make(chan *SessionEvent, 10),
	}

	clock := clockwork.NewFakeClock()
	poller := NewQueuePoller(source, conns).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Start(ctx)

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case event := <-conns.events:
		if event.SessionID != healthy.String() {
			t.Fatalf("expected broadcast for healthy session, got %s", event.SessionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("healthy session not swept despite failing sibling")
	}

	select {
	case event := <-conns.events:
		t.Fatalf("unexpected extra broadcast: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}
