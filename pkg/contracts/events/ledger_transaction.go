package events

// Evento emitido após um depósito ou saque.
type LedgerTransaction struct {
	TransactionID int64  `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
	Kind          string `json:"kind"` // "deposit" | "withdrawal"
	Amount        string `json:"amount"`
	BalanceAfter  string `json:"balance_after"`
	TsUnixMs      int64  `json:"ts_unix_ms"`
}
