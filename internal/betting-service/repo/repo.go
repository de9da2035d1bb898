package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadySettled    = errors.New("bet already settled")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrBalanceLimit      = errors.New("balance limit exceeded")
)

// MaxBalance é o limite exclusivo das colunas NUMERIC(20,2)
var MaxBalance = decimal.New(1, 18)

// Queries são as leituras disponíveis dentro e fora de uma unidade atômica
type Queries interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetBet(ctx context.Context, id int64) (*Bet, error)
	// ListBets e ListTransactions retornam do mais recente para o mais antigo
	ListBets(ctx context.Context, userID int64) ([]Bet, error)
	ListTransactions(ctx context.Context, userID int64) ([]Transaction, error)
}

// Tx é a visão de escrita de uma unidade atômica
type Tx interface {
	Queries

	// CreateUser preenche ID, Balance (zero) e CreatedAt.
	// Retorna ErrDuplicateUsername se o username já existe.
	CreateUser(ctx context.Context, u *User) error

	// AdjustBalance soma delta ao saldo de forma condicional: nunca deixa o
	// saldo negativo (ErrInsufficientFunds) nem chegar a MaxBalance
	// (ErrBalanceLimit) e retorna o saldo resultante.
	AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error)

	// InsertBet preenche ID e CreatedAt; Result deve ser Pending.
	InsertBet(ctx context.Context, b *Bet) error

	// SettleBet faz compare-and-swap de Pending para result.
	// ErrNotFound se a aposta não existe, ErrAlreadySettled se já liquidada.
	SettleBet(ctx context.Context, betID int64, result BetResult) (*Bet, error)

	// InsertTransaction preenche ID, Status (se vazio) e CreatedAt.
	InsertTransaction(ctx context.Context, t *Transaction) error
}

// Store é o colaborador de persistência. RunAtomic executa fn como uma
// unidade tudo-ou-nada: qualquer erro retornado desfaz todas as escritas.
type Store interface {
	Queries
	RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}
