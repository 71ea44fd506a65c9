package roster

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

type fakeRosterRepo struct {
	moderatorLocalID string
	players          []models.Player
}

func (f *fakeRosterRepo) CreatePlayer(ctx context.Context, req JoinRequest) (*models.Player, error) {
	p := models.Player{
		ID:          uuid.New(),
		SessionID:   req.SessionID,
		LocalID:     req.LocalID,
		Name:        req.Name,
		IsModerator: req.LocalID == f.moderatorLocalID && f.moderatorLocalID != "",
		Topics:      req.Topics,
		TopicScores: map[string]int{},
		AccountID:   req.AccountID,
	}
	f.players = append(f.players, p)
	return &p, nil
}

func (f *fakeRosterRepo) GetPlayerByLocalID(ctx context.Context, sessionID uuid.UUID, localID string) (*models.Player, error) {
	for i := range f.players {
		if f.players[i].SessionID == sessionID && f.players[i].LocalID == localID {
			return &f.players[i], nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (f *fakeRosterRepo) GetPlayerByName(ctx context.Context, sessionID uuid.UUID, name string) (*models.Player, error) {
	for i := range f.players {
		if f.players[i].SessionID == sessionID && f.players[i].Name == name {
			return &f.players[i], nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (f *fakeRosterRepo) RebindLocalID(ctx context.Context, playerID uuid.UUID, localID string, accountID *string) (*models.Player, error) {
	for i := range f.players {
		if f.players[i].ID == playerID {
			f.players[i].LocalID = localID
			if accountID != nil {
				f.players[i].AccountID = accountID
			}
			return &f.players[i], nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (f *fakeRosterRepo) ListPlayersBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	var out []models.Player
	for _, p := range f.players {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

type nopOutbox struct{}

func (nopOutbox) InsertPlayerJoined(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return nil
}

func (nopOutbox) InsertPlayerUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return nil
}

type recordingOutbox struct {
	types []string
}

func (r *recordingOutbox) InsertPlayerJoined(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	r.types = append(r.types, "PlayerJoined")
	return nil
}

func (r *recordingOutbox) InsertPlayerUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	r.types = append(r.types, "PlayerUpdated")
	return nil
}

func TestJoinCreatesNewPlayer(t *testing.T) {
	repo := &fakeRosterRepo{}
	app := NewApp(repo, nopOutbox{})
	sessionID := uuid.New()

	result, err := app.Join(context.Background(), JoinRequest{
		SessionID: sessionID,
		LocalID:   "device-1",
		Name:      "  Alice  ",
		Topics:    []models.TopicPick{{Name: "Cinema", Difficulty: models.DifficultyExpert}},
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Rebound {
		t.Fatal("expected fresh seat, got rebind")
	}
	if result.Player.Name != "Alice" {
		t.Fatalf("expected trimmed name Alice, got %q", result.Player.Name)
	}
}

func TestJoinRejectsEmptyName(t *testing.T) {
	app := NewApp(&fakeRosterRepo{}, nopOutbox{})
	_, err := app.Join(context.Background(), JoinRequest{SessionID: uuid.New(), LocalID: "d", Name: "   "})
	if err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestJoinSameLocalIDReturnsExistingSeat(t *testing.T) {
	repo := &fakeRosterRepo{}
	app := NewApp(repo, nopOutbox{})
	sessionID := uuid.New()

	first, err := app.Join(context.Background(), JoinRequest{SessionID: sessionID, LocalID: "device-1", Name: "Alice"})
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, err := app.Join(context.Background(), JoinRequest{SessionID: sessionID, LocalID: "device-1", Name: "Someone Else"})
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.Player.ID != first.Player.ID {
		t.Fatal("expected the same roster row for the same local identity")
	}
	if len(repo.players) != 1 {
		t.Fatalf("expected 1 roster row, got %d", len(repo.players))
	}
}

func TestJoinSameNameRebindsSeat(t *testing.T) {
	repo := &fakeRosterRepo{}
	outbox := &recordingOutbox{}
	app := NewApp(repo, outbox)
	sessionID := uuid.New()

	first, err := app.Join(context.Background(), JoinRequest{SessionID: sessionID, LocalID: "old-device", Name: "Alice"})
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, err := app.Join(context.Background(), JoinRequest{SessionID: sessionID, LocalID: "new-device", Name: "Alice"})
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if !second.Rebound {
		t.Fatal("expected seat rebind for matching name")
	}
	if second.Player.ID != first.Player.ID {
		t.Fatal("expected the original roster row")
	}
	if second.Player.LocalID != "new-device" {
		t.Fatalf("expected rebound local id, got %q", second.Player.LocalID)
	}

	// A rebind mutates an existing seat: PlayerUpdated, not a second join.
	want := []string{"PlayerJoined", "PlayerUpdated"}
	if len(outbox.types) != len(want) {
		t.Fatalf("expected events %v, got %v", want, outbox.types)
	}
	for i, w := range want {
		if outbox.types[i] != w {
			t.Fatalf("event %d: expected %s, got %s", i, w, outbox.types[i])
		}
	}
}

func TestJoinDerivesModeratorFromSession(t *testing.T) {
	repo := &fakeRosterRepo{moderatorLocalID: "mod-device"}
	app := NewApp(repo, nopOutbox{})
	sessionID := uuid.New()

	mod, err := app.Join(context.Background(), JoinRequest{SessionID: sessionID, LocalID: "mod-device", Name: "Host"})
	if err != nil {
		t.Fatalf("moderator join: %v", err)
	}
	if !mod.Player.IsModerator {
		t.Fatal("expected the session creator's identity to get the moderator seat")
	}

	guest, err := app.Join(context.Background(), JoinRequest{SessionID: sessionID, LocalID: "other-device", Name: "Guest"})
	if err != nil {
		t.Fatalf("guest join: %v", err)
	}
	if guest.Player.IsModerator {
		t.Fatal("expected a non-creator identity to join as a regular player")
	}
}

func TestDeclaredTopicsDeduplicatesCaseInsensitively(t *testing.T) {
	repo := &fakeRosterRepo{}
	app := NewApp(repo, nopOutbox{})
	sessionID := uuid.New()

	joins := []JoinRequest{
		{SessionID: sessionID, LocalID: "d1", Name: "Alice", Topics: []models.TopicPick{{Name: "Cinema", Difficulty: models.DifficultyExpert}}},
		{SessionID: sessionID, LocalID: "d2", Name: "Bruno", Topics: []models.TopicPick{{Name: "cinema", Difficulty: models.DifficultyEasy}, {Name: "History", Difficulty: models.DifficultyMedium}}},
	}
	for _, req := range joins {
		if _, err := app.Join(context.Background(), req); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	topics, err := app.DeclaredTopics(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("declared topics: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 distinct topics, got %d", len(topics))
	}
	if topics[0].Name != "Cinema" || topics[0].Difficulty != models.DifficultyExpert {
		t.Fatalf("expected first declaration to win, got %+v", topics[0])
	}
}

func TestDeclaredTopicsFallsBackToGeneralKnowledge(t *testing.T) {
	repo := &fakeRosterRepo{}
	app := NewApp(repo, nopOutbox{})
	sessionID := uuid.New()

	if _, err := app.Join(context.Background(), JoinRequest{SessionID: sessionID, LocalID: "d1", Name: "Alice"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	topics, err := app.DeclaredTopics(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("declared topics: %v", err)
	}
	if len(topics) != 1 || topics[0].Name != "General Knowledge" {
		t.Fatalf("expected general knowledge fallback, got %+v", topics)
	}
}
