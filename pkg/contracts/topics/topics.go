package topics

const (
	// Apostas
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Ledger (depósitos e saques)
	LedgerTransactions = "ledger_transactions"
)
