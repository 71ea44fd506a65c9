package models

// DebtRecord is one post-game settlement entry: the debtor declared Topic
// as one of their own subjects but was outscored in it by the creditor.
type DebtRecord struct {
	DebtorName   string `json:"debtor_name"`
	CreditorName string `json:"creditor_name"`
	Topic        string `json:"topic"`
	Amount       int    `json:"amount"`
}
