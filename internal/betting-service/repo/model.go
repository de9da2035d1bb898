package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetResult é o estado de uma aposta: Pending -> Win | Lose
type BetResult string

const (
	ResultPending BetResult = "Pending"
	ResultWin     BetResult = "Win"
	ResultLose    BetResult = "Lose"
)

// TransactionKind identifica o tipo de lançamento no ledger
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// TransactionStatusPending é o status padrão de um lançamento.
// Informativo apenas: o saldo muda na criação, não no avanço de status.
const TransactionStatusPending = "Pending"

// User é a conta persistida. PasswordHash é opaco para o core.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// Bet é o modelo persistido de aposta
type Bet struct {
	ID         int64
	UserID     int64
	Amount     decimal.Decimal
	Prediction string
	Result     BetResult
	CreatedAt  time.Time
	SettledAt  *time.Time
}

// Transaction é um lançamento de depósito ou saque
type Transaction struct {
	ID        int64
	UserID    int64
	Amount    decimal.Decimal
	Kind      TransactionKind
	Status    string
	CreatedAt time.Time
}
