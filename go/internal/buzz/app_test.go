package buzz

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

type fakeRepo struct {
	mu     sync.Mutex
	status models.GameStatus
	names  map[uuid.UUID]string
	rows   []fakeBuzzRow
	seq    int
}

type fakeBuzzRow struct {
	sessionID   uuid.UUID
	playerID    uuid.UUID
	timestampMS int64
	seq         int
}

func newFakeRepo(status models.GameStatus) *fakeRepo {
	return &fakeRepo{
		status: status,
		names:  make(map[uuid.UUID]string),
	}
}

func (f *fakeRepo) InsertBuzz(ctx context.Context, sessionID, playerID uuid.UUID, timestampMS int64) (*models.Buzz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != models.GameStatusPlaying {
		return nil, ErrNotPlaying
	}
	for _, row := range f.rows {
		if row.sessionID == sessionID && row.playerID == playerID {
			return nil, ErrAlreadyBuzzed
		}
	}
	f.seq++
	f.rows = append(f.rows, fakeBuzzRow{sessionID: sessionID, playerID: playerID, timestampMS: timestampMS, seq: f.seq})
	return &models.Buzz{
		ID:          uuid.New(),
		SessionID:   sessionID,
		PlayerID:    playerID,
		TimestampMS: timestampMS,
	}, nil
}

func (f *fakeRepo) ListQueueRows(ctx context.Context, sessionID uuid.UUID) ([]QueueRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []fakeBuzzRow
	for _, row := range f.rows {
		if row.sessionID == sessionID {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].timestampMS != matched[j].timestampMS {
			return matched[i].timestampMS < matched[j].timestampMS
		}
		return matched[i].seq < matched[j].seq
	})
	out := make([]QueueRow, len(matched))
	for i, row := range matched {
		out[i] = QueueRow{PlayerID: row.playerID, PlayerName: f.names[row.playerID], TimestampMS: row.timestampMS}
	}
	return out, nil
}

func (f *fakeRepo) DeleteBuzzesBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []fakeBuzzRow
	deleted := 0
	for _, row := range f.rows {
		if row.sessionID == sessionID {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeRepo) DeletePlayerBuzz(ctx context.Context, sessionID, playerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []fakeBuzzRow
	for _, row := range f.rows {
		if row.sessionID == sessionID && row.playerID == playerID {
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return nil
}

type fakeOutbox struct {
	mu        sync.Mutex
	submitted int
	cleared   int
}

func (f *fakeOutbox) InsertBuzzSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted++
	return nil
}

func (f *fakeOutbox) InsertBuzzCleared(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func TestSubmitAcceptsFirstBuzz(t *testing.T) {
	repo := newFakeRepo(models.GameStatusPlaying)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(5_000))
	app := NewApp(repo, &fakeOutbox{}).WithClock(clock)

	result, err := app.Submit(context.Background(), SubmitRequest{SessionID: uuid.New(), PlayerID: uuid.New()})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance, got reason %q", result.Reason)
	}
	if result.TimestampMS != 5_000 {
		t.Fatalf("expected timestamp 5000, got %d", result.TimestampMS)
	}
}

func TestSubmitRejectsWhenNotPlaying(t *testing.T) {
	for _, status := range []models.GameStatus{models.GameStatusLobby, models.GameStatusGenerating, models.GameStatusResults} {
		repo := newFakeRepo(status)
		app := NewApp(repo, &fakeOutbox{})

		result, err := app.Submit(context.Background(), SubmitRequest{SessionID: uuid.New(), PlayerID: uuid.New()})
		if err != nil {
			t.Fatalf("submit during %s: %v", status, err)
		}
		if result.Accepted {
			t.Fatalf("expected rejection during %s", status)
		}
		if result.Reason != RejectReasonNotPlaying {
			t.Fatalf("expected NOT_PLAYING during %s, got %q", status, result.Reason)
		}
	}
}

func TestSubmitStoresNothingAfterStatusFlip(t *testing.T) {
	repo := newFakeRepo(models.GameStatusPlaying)
	app := NewApp(repo, &fakeOutbox{}).WithClock(clockwork.NewFakeClockAt(time.UnixMilli(2_000)))
	sessionID := uuid.New()

	if _, err := app.Submit(context.Background(), SubmitRequest{SessionID: sessionID, PlayerID: uuid.New()}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The session moves to Results between this player's press and the
	// insert; the guarded write must leave no row behind.
	repo.status = models.GameStatusResults

	result, err := app.Submit(context.Background(), SubmitRequest{SessionID: sessionID, PlayerID: uuid.New()})
	if err != nil {
		t.Fatalf("submit after flip: %v", err)
	}
	if result.Accepted || result.Reason != RejectReasonNotPlaying {
		t.Fatalf("expected NOT_PLAYING rejection, got %+v", result)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected no orphan row after flip, got %d rows", len(repo.rows))
	}
}

func TestSubmitConcurrentDuplicatesYieldOneAcceptance(t *testing.T) {
	repo := newFakeRepo(models.GameStatusPlaying)
	app := NewApp(repo, &fakeOutbox{}).WithClock(clockwork.NewFakeClockAt(time.UnixMilli(1_000)))
	sessionID := uuid.New()
	playerID := uuid.New()

	const attempts = 16
	results := make([]*SubmitResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := app.Submit(context.Background(), SubmitRequest{SessionID: sessionID, PlayerID: playerID})
			if err != nil {
				t.Errorf("submit %d: %v", i, err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	accepted, rejected := 0, 0
	for _, result := range results {
		if result == nil {
			t.Fatal("missing result")
		}
		if result.Accepted {
			accepted++
		} else if result.Reason == RejectReasonAlreadyBuzzed {
			rejected++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly 1 acceptance, got %d", accepted)
	}
	if rejected != attempts-1 {
		t.Fatalf("expected %d ALREADY_BUZZED rejections, got %d", attempts-1, rejected)
	}
}

func TestQueueOrderIsTimestampAscending(t *testing.T) {
	repo := newFakeRepo(models.GameStatusPlaying)
	outbox := &fakeOutbox{}
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000))
	app := NewApp(repo, outbox).WithClock(clock)
	sessionID := uuid.New()

	playerA := uuid.New()
	playerB := uuid.New()
	playerC := uuid.New()
	repo.names[playerA] = "alice"
	repo.names[playerB] = "bruno"
	repo.names[playerC] = "carmen"

	// Submit out of wall-clock order relative to player naming: C, A, B.
	for _, p := range []uuid.UUID{playerC, playerA, playerB} {
		if _, err := app.Submit(context.Background(), SubmitRequest{SessionID: sessionID, PlayerID: p}); err != nil {
			t.Fatalf("submit: %v", err)
		}
		clock.Advance(120 * time.Millisecond)
	}

	queue, err := app.Queue(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(queue))
	}
	wantOrder := []uuid.UUID{playerC, playerA, playerB}
	wantDeltas := []int64{0, 120, 240}
	for i, entry := range queue {
		if entry.PlayerID != wantOrder[i] {
			t.Fatalf("entry %d: wrong player order", i)
		}
		if entry.DeltaMS != wantDeltas[i] {
			t.Fatalf("entry %d: expected delta %d, got %d", i, wantDeltas[i], entry.DeltaMS)
		}
	}
}

func TestClearPlayerRecomputesDeltas(t *testing.T) {
	repo := newFakeRepo(models.GameStatusPlaying)
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000))
	app := NewApp(repo, &fakeOutbox{}).WithClock(clock)
	sessionID := uuid.New()

	playerA := uuid.New()
	playerB := uuid.New()
	playerC := uuid.New()

	submitAt := func(p uuid.UUID, at int64) {
		t.Helper()
		clock2 := clockwork.NewFakeClockAt(time.UnixMilli(at))
		if _, err := app.WithClock(clock2).Submit(context.Background(), SubmitRequest{SessionID: sessionID, PlayerID: p}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	submitAt(playerA, 10_000)
	submitAt(playerB, 10_120)
	submitAt(playerC, 10_340)

	// Dropping the middle entry must leave C measured against A.
	if err := app.ClearPlayer(context.Background(), sessionID, playerB); err != nil {
		t.Fatalf("clear player: %v", err)
	}
	queue, err := app.Queue(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(queue))
	}
	if queue[0].PlayerID != playerA || queue[0].DeltaMS != 0 {
		t.Fatalf("expected A on the floor with delta 0, got %v delta %d", queue[0].PlayerID, queue[0].DeltaMS)
	}
	if queue[1].PlayerID != playerC || queue[1].DeltaMS != 340 {
		t.Fatalf("expected C with delta 340, got delta %d", queue[1].DeltaMS)
	}

	// Dropping the head must promote C with a delta against itself.
	if err := app.ClearPlayer(context.Background(), sessionID, playerA); err != nil {
		t.Fatalf("clear player: %v", err)
	}
	queue, err = app.Queue(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(queue))
	}
	if queue[0].PlayerID != playerC || queue[0].DeltaMS != 0 {
		t.Fatalf("expected C promoted to delta 0, got delta %d", queue[0].DeltaMS)
	}
}

func TestClearEmptiesQueue(t *testing.T) {
	repo := newFakeRepo(models.GameStatusPlaying)
	outbox := &fakeOutbox{}
	app := NewApp(repo, outbox).WithClock(clockwork.NewFakeClockAt(time.UnixMilli(1_000)))
	sessionID := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := app.Submit(context.Background(), SubmitRequest{SessionID: sessionID, PlayerID: uuid.New()}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := app.Clear(context.Background(), sessionID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	queue, err := app.Queue(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("expected empty queue, got %d entries", len(queue))
	}
	if outbox.cleared != 1 {
		t.Fatalf("expected 1 BuzzCleared event, got %d", outbox.cleared)
	}
}

func TestProjectQueueHeadRemoval(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	entries := ProjectQueue([]QueueRow{
		{PlayerID: a, TimestampMS: 1_120},
		{PlayerID: b, TimestampMS: 1_340},
	})
	if entries[0].DeltaMS != 0 {
		t.Fatalf("expected head delta 0, got %d", entries[0].DeltaMS)
	}
	if entries[1].DeltaMS != 220 {
		t.Fatalf("expected delta 220, got %d", entries[1].DeltaMS)
	}
}
