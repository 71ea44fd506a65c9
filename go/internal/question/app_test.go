package question

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

type fakeQuestionRepo struct {
	batches [][]models.Question
}

func (f *fakeQuestionRepo) CreateQuestionsBatch(ctx context.Context, questions []models.Question) error {
	f.batches = append(f.batches, questions)
	return nil
}

func (f *fakeQuestionRepo) ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	var out []models.Question
	for _, batch := range f.batches {
		for _, q := range batch {
			if q.SessionID == sessionID {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) CountQuestionsBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	list, _ := f.ListQuestionsBySession(ctx, sessionID)
	return len(list), nil
}

type nopOutbox struct{}

func (nopOutbox) InsertQuestionsCommitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return nil
}

func TestCommitSetAssignsPositionsInOrder(t *testing.T) {
	repo := &fakeQuestionRepo{}
	app := NewApp(repo, nopOutbox{})
	sessionID := uuid.New()

	drafts := []Draft{
		{Topic: "Cinema", Prompt: "q1", Answer: "a1", Difficulty: models.DifficultyEasy},
		{Topic: "Cinema", Prompt: "q2", Answer: "a2", Difficulty: models.DifficultyEasy},
		{Topic: "History", Prompt: "q3", Answer: "a3", Difficulty: models.DifficultyExpert},
	}

	questions, err := app.CommitSet(context.Background(), sessionID, drafts)
	if err != nil {
		t.Fatalf("commit set: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if q.Position != i {
			t.Fatalf("question %d: expected position %d, got %d", i, i, q.Position)
		}
		if q.SessionID != sessionID {
			t.Fatalf("question %d: wrong session", i)
		}
		if q.ID == uuid.Nil {
			t.Fatalf("question %d: missing id", i)
		}
	}
}

func TestCommitSetRejectsEmpty(t *testing.T) {
	app := NewApp(&fakeQuestionRepo{}, nopOutbox{})
	if _, err := app.CommitSet(context.Background(), uuid.New(), nil); err != ErrEmptySet {
		t.Fatalf("expected ErrEmptySet, got %v", err)
	}
}
