package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeEventStore struct {
	events map[uuid.UUID]*OutboxEvent
	sent   map[uuid.UUID]bool
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		events: make(map[uuid.UUID]*OutboxEvent),
		sent:   make(map[uuid.UUID]bool),
	}
}

func (f *fakeEventStore) add(eventType string) *OutboxEvent {
	e := &OutboxEvent{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{}`),
		CreatedAt: time.Now(),
	}
	f.events[e.ID] = e
	return e
}

func (f *fakeEventStore) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	e, ok := f.events[id]
	if !ok || f.sent[id] {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (f *fakeEventStore) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	var out []OutboxEvent
	for id, e := range f.events {
		if !f.sent[id] && int32(len(out)) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	f.sent[id] = true
	return nil
}

type flakyPublisher struct {
	failures  int
	published []OutboxEvent
}

func (p *flakyPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("bus unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func testListener(store EventStore, pub Publisher) *Listener {
	cfg := DefaultListenerConfig()
	cfg.RetryDelay = time.Millisecond
	return &Listener{store: store, publisher: pub, cfg: cfg}
}

func TestHandleNotificationPublishesAndMarksSent(t *testing.T) {
	store := newFakeEventStore()
	event := store.add("BuzzSubmitted")
	pub := &flakyPublisher{}
	l := testListener(store, pub)

	if err := l.handleNotification(context.Background(), event.ID.String()); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].ID != event.ID {
		t.Fatalf("expected event published once, got %d", len(pub.published))
	}
	if !store.sent[event.ID] {
		t.Fatal("event not marked sent")
	}
}

func TestHandleNotificationRejectsBadID(t *testing.T) {
	l := testListener(newFakeEventStore(), &flakyPublisher{})
	if err := l.handleNotification(context.Background(), "not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed event id")
	}
}

func TestPublishWithRetryRecoversFromTransientFailure(t *testing.T) {
	store := newFakeEventStore()
	event := store.add("SessionUpdated")
	pub := &flakyPublisher{failures: 2}
	l := testListener(store, pub)

	if err := l.publishWithRetry(context.Background(), *event); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.published))
	}
}

func TestPublishWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	store := newFakeEventStore()
	event := store.add("SessionUpdated")
	pub := &flakyPublisher{failures: 100}
	l := testListener(store, pub)

	if err := l.publishWithRetry(context.Background(), *event); err == nil {
		t.Fatal("expected exhausted retries to fail")
	}
}

func TestProcessUnsentSweepsBacklog(t *testing.T) {
	store := newFakeEventStore()
	first := store.add("PlayerJoined")
	second := store.add("BuzzCleared")
	pub := &flakyPublisher{}
	l := testListener(store, pub)

	if err := l.processUnsent(context.Background()); err != nil {
		t.Fatalf("process unsent: %v", err)
	}
	if !store.sent[first.ID] || !store.sent[second.ID] {
		t.Fatal("expected backlog drained")
	}
	if len(pub.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.published))
	}
}

func TestInsertRejectsEmptyPayload(t *testing.T) {
	app := NewApp(&recordingRepo{})
	if err := app.InsertBuzzSubmitted(context.Background(), uuid.New(), nil); err == nil {
		t.Fatal("expected empty payload to be rejected")
	}
}

type recordingRepo struct {
	types []string
}

func (r *recordingRepo) InsertOutboxEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	r.types = append(r.types, eventType)
	return nil
}

func TestInsertStampsEventType(t *testing.T) {
	repo := &recordingRepo{}
	app := NewApp(repo)

	payload := []byte(`{"session_id":"s"}`)
	if err := app.InsertSessionUpdated(context.Background(), uuid.New(), payload); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := app.InsertGenerationRequested(context.Background(), uuid.New(), payload); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if len(repo.types) != 2 || repo.types[0] != "SessionUpdated" || repo.types[1] != "GenerationRequested" {
		t.Fatalf("unexpected event types: %v", repo.types)
	}
}
