package events

// Evento emitido após o commit de uma nova aposta (stake já debitado).
// Valores monetários trafegam como string decimal, ex: "30.00".
type BetPlaced struct {
	BetID        int64  `json:"bet_id"`
	UserID       int64  `json:"user_id"`
	Stake        string `json:"stake"`
	Prediction   string `json:"prediction"`
	BalanceAfter string `json:"balance_after"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
