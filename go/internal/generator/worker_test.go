package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mdevlab/buzzroom/go/clients/triviagen"
	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/mdevlab/buzzroom/go/internal/question"
)

type scriptedSource struct {
	rateLimits int
	err        error
	drafts     []question.Draft
	calls      int
}

func (s *scriptedSource) Generate(ctx context.Context, req triviagen.GenerateRequest) ([]question.Draft, error) {
	s.calls++
	if s.rateLimits > 0 {
		s.rateLimits--
		return nil, triviagen.ErrRateLimited
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.drafts, nil
}

type fakeCommitter struct {
	committed [][]question.Draft
	err       error
}

func (f *fakeCommitter) CommitSet(ctx context.Context, sessionID uuid.UUID, drafts []question.Draft) ([]models.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.committed = append(f.committed, drafts)
	return make([]models.Question, len(drafts)), nil
}

type fakeSessionControl struct {
	started  []uuid.UUID
	failed   []string
	startErr error
}

func (f *fakeSessionControl) StartPlaying(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, sessionID)
	return &models.Session{ID: sessionID, Status: models.GameStatusPlaying}, nil
}

func (f *fakeSessionControl) FailGeneration(ctx context.Context, sessionID uuid.UUID, reason string) (*models.Session, error) {
	f.failed = append(f.failed, reason)
	return &models.Session{ID: sessionID, Status: models.GameStatusLobby}, nil
}

func testPayload(sessionID uuid.UUID) events.GenerationRequestedPayload {
	return events.GenerationRequestedPayload{
		SessionID:         sessionID.String(),
		QuestionsPerTopic: 2,
		Topics:            []events.TopicSpec{{Name: "Cinema", Difficulty: "MEDIUM"}},
	}
}

func someDrafts() []question.Draft {
	return []question.Draft{
		{Topic: "Cinema", Prompt: "q1", Answer: "a1", Difficulty: models.DifficultyMedium},
		{Topic: "Cinema", Prompt: "q2", Answer: "a2", Difficulty: models.DifficultyMedium},
	}
}

func TestHandleCommitsAndStartsPlaying(t *testing.T) {
	source := &scriptedSource{drafts: someDrafts()}
	committer := &fakeCommitter{}
	sessions := &fakeSessionControl{}
	w := &Worker{source: source, questions: committer, sessions: sessions, clock: clockwork.NewFakeClock()}

	sessionID := uuid.New()
	if err := w.Handle(context.Background(), testPayload(sessionID)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(committer.committed) != 1 || len(committer.committed[0]) != 2 {
		t.Fatalf("expected one committed set of 2, got %+v", committer.committed)
	}
	if len(sessions.started) != 1 || sessions.started[0] != sessionID {
		t.Fatalf("expected session started, got %+v", sessions.started)
	}
	if len(sessions.failed) != 0 {
		t.Fatalf("unexpected failure: %v", sessions.failed)
	}
}

func TestHandleRevertsOnTerminalProviderError(t *testing.T) {
	source := &scriptedSource{err: errors.New("malformed set")}
	committer := &fakeCommitter{}
	sessions := &fakeSessionControl{}
	w := &Worker{source: source, questions: committer, sessions: sessions, clock: clockwork.NewFakeClock()}

	if err := w.Handle(context.Background(), testPayload(uuid.New())); err != nil {
		t.Fatalf("expected nil after successful revert, got %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("terminal error retried: %d calls", source.calls)
	}
	if len(sessions.failed) != 1 {
		t.Fatalf("expected one FailGeneration, got %v", sessions.failed)
	}
	if len(committer.committed) != 0 {
		t.Fatal("questions committed despite failed generation")
	}
}

func TestGenerateWithBackoffRetriesRateLimits(t *testing.T) {
	source := &scriptedSource{rateLimits: 2, drafts: someDrafts()}
	clock := clockwork.NewFakeClock()

	type result struct {
		drafts []question.Draft
		err    error
	}
	done := make(chan result, 1)
	go func() {
		drafts, err := generateWithBackoff(context.Background(), clock, source, triviagen.GenerateRequest{
			Topics:            []triviagen.TopicRequest{{Name: "Cinema"}},
			QuestionsPerTopic: 2,
		})
		done <- result{drafts, err}
	}()

	// First retry waits 2s, second 4s.
	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)
	clock.BlockUntil(1)
	clock.Advance(4 * time.Second)

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("expected recovery, got %v", r.err)
		}
		if len(r.drafts) != 2 || source.calls != 3 {
			t.Fatalf("expected 3 calls and 2 drafts, got %d calls", source.calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backoff did not complete")
	}
}

func TestGenerateWithBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	source := &scriptedSource{rateLimits: 100}
	clock := clockwork.NewFakeClock()

	done := make(chan error, 1)
	go func() {
		_, err := generateWithBackoff(context.Background(), clock, source, triviagen.GenerateRequest{
			Topics:            []triviagen.TopicRequest{{Name: "Cinema"}},
			QuestionsPerTopic: 1,
		})
		done <- err
	}()

	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)
	clock.BlockUntil(1)
	clock.Advance(4 * time.Second)

	select {
	case err := <-done:
		if !errors.Is(err, triviagen.ErrRateLimited) {
			t.Fatalf("expected wrapped ErrRateLimited, got %v", err)
		}
		if source.calls != maxGenerateAttempts {
			t.Fatalf("expected %d attempts, got %d", maxGenerateAttempts, source.calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backoff did not give up")
	}
}
