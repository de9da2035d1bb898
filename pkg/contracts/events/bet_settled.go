package events

// Evento emitido após a liquidação de uma aposta.
type BetSettled struct {
	BetID    int64  `json:"bet_id"`
	UserID   int64  `json:"user_id"`
	Result   string `json:"result"` // "Win" | "Lose"
	Payout   string `json:"payout"` // "0" quando Lose
	TsUnixMs int64  `json:"ts_unix_ms"`
}
