// Package settlement derives who owes whom after a finished game. It is a
// pure projection of final scores: given the same roster it always produces
// the same debt list, so it runs client-side-equivalent on every read of
// the results rather than being stored.
package settlement

import "github.com/mdevlab/buzzroom/go/internal/models"

// Debts computes the full settlement for a finished game. For every topic a
// player declared, every other player with a strictly greater tally on that
// topic is owed one fixed stake. Equal tallies settle nothing, and a topic
// only obligates the players who declared it.
func Debts(players []models.Player, debtAmount int) []models.DebtRecord {
	var debts []models.DebtRecord
	for _, debtor := range players {
		for _, pick := range debtor.Topics {
			own := debtor.TallyFor(pick.Name)
			for _, creditor := range players {
				if creditor.ID == debtor.ID {
					continue
				}
				if creditor.TallyFor(pick.Name) > own {
					debts = append(debts, models.DebtRecord{
						DebtorName:   debtor.Name,
						CreditorName: creditor.Name,
						Topic:        pick.Name,
						Amount:       debtAmount,
					})
				}
			}
		}
	}
	return debts
}

// Total sums a player's outgoing debts.
func Total(debts []models.DebtRecord, debtorName string) int {
	total := 0
	for _, d := range debts {
		if d.DebtorName == debtorName {
			total += d.Amount
		}
	}
	return total
}
