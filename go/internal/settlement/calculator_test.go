package settlement

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

func player(name string, topics []string, tallies map[string]int) models.Player {
	picks := make([]models.TopicPick, len(topics))
	for i, t := range topics {
		picks[i] = models.TopicPick{Name: t, Difficulty: models.DifficultyMedium}
	}
	return models.Player{
		ID:          uuid.New(),
		Name:        name,
		Topics:      picks,
		TopicScores: tallies,
	}
}

func TestDebtsOwedToEveryStrictlyBetterPlayer(t *testing.T) {
	players := []models.Player{
		player("alice", []string{"Cinema"}, map[string]int{"Cinema": 0}),
		player("bob", nil, map[string]int{"Cinema": 2}),
		player("carol", nil, map[string]int{"Cinema": 3}),
	}

	debts := Debts(players, 5)
	want := []models.DebtRecord{
		{DebtorName: "alice", CreditorName: "bob", Topic: "Cinema", Amount: 5},
		{DebtorName: "alice", CreditorName: "carol", Topic: "Cinema", Amount: 5},
	}
	if !reflect.DeepEqual(debts, want) {
		t.Fatalf("expected %+v, got %+v", want, debts)
	}
}

func TestDebtsEqualTalliesSettleNothing(t *testing.T) {
	players := []models.Player{
		player("alice", []string{"History"}, map[string]int{"History": 2}),
		player("bob", []string{"History"}, map[string]int{"History": 2}),
	}
	if debts := Debts(players, 5); len(debts) != 0 {
		t.Fatalf("expected no debts on equal tallies, got %+v", debts)
	}
}

func TestDebtsOnlyDeclaredTopicsObligate(t *testing.T) {
	// bob out-scores alice on Cinema and alice out-scores bob on History,
	// but neither lead falls on a topic the loser declared.
	players := []models.Player{
		player("alice", []string{"History"}, map[string]int{"History": 3, "Cinema": 0}),
		player("bob", []string{"Cinema"}, map[string]int{"History": 1, "Cinema": 4}),
	}
	if debts := Debts(players, 2); len(debts) != 0 {
		t.Fatalf("expected no debts on undeclared topics, got %+v", debts)
	}
}

func TestDebtsPerTopicAndDeterministicOrder(t *testing.T) {
	players := []models.Player{
		player("alice", []string{"Cinema", "History"}, map[string]int{"Cinema": 1, "History": 0}),
		player("bob", []string{"Cinema"}, map[string]int{"Cinema": 2, "History": 2}),
	}

	debts := Debts(players, 3)
	want := []models.DebtRecord{
		{DebtorName: "alice", CreditorName: "bob", Topic: "Cinema", Amount: 3},
		{DebtorName: "alice", CreditorName: "bob", Topic: "History", Amount: 3},
	}
	if !reflect.DeepEqual(debts, want) {
		t.Fatalf("expected %+v, got %+v", want, debts)
	}

	// Same roster, same result.
	again := Debts(players, 3)
	if !reflect.DeepEqual(debts, again) {
		t.Fatalf("settlement not deterministic: %+v vs %+v", debts, again)
	}
}

func TestTotalSumsDebtorSide(t *testing.T) {
	debts := []models.DebtRecord{
		{DebtorName: "alice", CreditorName: "bob", Topic: "Cinema", Amount: 3},
		{DebtorName: "alice", CreditorName: "carol", Topic: "History", Amount: 3},
		{DebtorName: "bob", CreditorName: "alice", Topic: "Music", Amount: 3},
	}
	if got := Total(debts, "alice"); got != 6 {
		t.Fatalf("expected alice to owe 6, got %d", got)
	}
	if got := Total(debts, "carol"); got != 0 {
		t.Fatalf("expected carol to owe 0, got %d", got)
	}
}
