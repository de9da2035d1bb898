package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/betting-ledger/internal/betting-service/repo"
)

// valores monetários sempre saem como string com duas casas
func money(d decimal.Decimal) string { return d.StringFixed(2) }

type ErrorResponse struct {
	Error string `json:"error"`
}

type UserResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type DashboardResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

func NewDashboardResponse(u *repo.User) DashboardResponse {
	return DashboardResponse{UserID: u.ID, Username: u.Username, Balance: money(u.Balance)}
}

type BetResponse struct {
	ID         int64      `json:"id"`
	Amount     string     `json:"amount"`
	Prediction string     `json:"prediction"`
	Result     string     `json:"result"`
	CreatedAt  time.Time  `json:"created_at"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}

func NewBetResponse(b repo.Bet) BetResponse {
	return BetResponse{
		ID:         b.ID,
		Amount:     money(b.Amount),
		Prediction: b.Prediction,
		Result:     string(b.Result),
		CreatedAt:  b.CreatedAt,
		SettledAt:  b.SettledAt,
	}
}

type TransactionResponse struct {
	ID        int64     `json:"id"`
	Amount    string    `json:"amount"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTransactionResponse(t repo.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID,
		Amount:    money(t.Amount),
		Type:      string(t.Kind),
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
}

type PlaceBetResponse struct {
	Message string      `json:"message"`
	Bet     BetResponse `json:"bet"`
	Balance string      `json:"balance"`
}

func NewPlaceBetResponse(b repo.Bet, balance decimal.Decimal) PlaceBetResponse {
	return PlaceBetResponse{Message: "bet placed", Bet: NewBetResponse(b), Balance: money(balance)}
}

type SettleResponse struct {
	Message      string      `json:"message"`
	Bet          BetResponse `json:"bet"`
	Payout       string      `json:"payout"`
	OwnerBalance string      `json:"owner_balance"`
}

func NewSettleResponse(b repo.Bet, payout, ownerBalance decimal.Decimal) SettleResponse {
	return SettleResponse{
		Message:      "bet result updated",
		Bet:          NewBetResponse(b),
		Payout:       money(payout),
		OwnerBalance: money(ownerBalance),
	}
}

type TransactionReceiptResponse struct {
	Message     string              `json:"message"`
	Transaction TransactionResponse `json:"transaction"`
	Balance     string              `json:"balance"`
}

func NewTransactionReceiptResponse(msg string, t repo.Transaction, balance decimal.Decimal) TransactionReceiptResponse {
	return TransactionReceiptResponse{Message: msg, Transaction: NewTransactionResponse(t), Balance: money(balance)}
}

type BetHistoryResponse struct {
	Bets []BetResponse `json:"bets"`
}

func NewBetHistoryResponse(bets []repo.Bet) BetHistoryResponse {
	out := make([]BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, NewBetResponse(b))
	}
	return BetHistoryResponse{Bets: out}
}

type TransactionHistoryResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

func NewTransactionHistoryResponse(txs []repo.Transaction) TransactionHistoryResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, NewTransactionResponse(t))
	}
	return TransactionHistoryResponse{Transactions: out}
}
