// Package ledger é a fonte de verdade do saldo de cada usuário e da trilha
// de lançamentos (depósitos e saques) que explica as mudanças de saldo.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/radieske/betting-ledger/internal/betting-service/repo"
)

// ErrInvalidAmount: valor <= 0, com mais de duas casas decimais ou acima
// do que as colunas NUMERIC(20,2) comportam
var ErrInvalidAmount = errors.New("invalid amount")

const (
	// amountScale acompanha as colunas NUMERIC(20,2)
	amountScale = 2
	// expoentes fora de [minAmountExp, maxAmountExp] são recusados antes de
	// qualquer aritmética; "1e-2000000" ou "1e2000000" custariam um rescale enorme
	minAmountExp = -40
	maxAmountExp = 18
)

// MaxAmount é o limite exclusivo de valores, o mesmo dos saldos
var MaxAmount = repo.MaxBalance

// ValidateAmount exige valor positivo, abaixo de MaxAmount e representável
// em centavos, sem arredondamento silencioso
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if exp := amount.Exponent(); exp < minAmountExp || exp >= maxAmountExp {
		return ErrInvalidAmount
	}
	if amount.Cmp(MaxAmount) >= 0 {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return ErrInvalidAmount
	}
	return nil
}

// Credit soma amount ao saldo dentro da unidade atômica tx
func Credit(ctx context.Context, tx repo.Tx, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return tx.AdjustBalance(ctx, userID, amount)
}

// Debit subtrai amount do saldo dentro da unidade atômica tx.
// A checagem de saldo e o débito são uma única escrita condicional.
func Debit(ctx context.Context, tx repo.Tx, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return tx.AdjustBalance(ctx, userID, amount.Neg())
}

// Receipt é o resultado de um depósito ou saque
type Receipt struct {
	Transaction repo.Transaction
	Balance     decimal.Decimal
}

// Service expõe as operações de carteira usadas pela borda HTTP
type Service struct {
	store repo.Store
}

func NewService(store repo.Store) *Service { return &Service{store: store} }

// Deposit credita o saldo e registra o lançamento na mesma unidade atômica
func (s *Service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*Receipt, error) {
	return s.record(ctx, userID, amount, repo.KindDeposit)
}

// Withdraw debita o saldo e registra o lançamento na mesma unidade atômica.
// É apenas contábil: não há liquidação em meio de pagamento externo.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*Receipt, error) {
	return s.record(ctx, userID, amount, repo.KindWithdrawal)
}

func (s *Service) record(ctx context.Context, userID int64, amount decimal.Decimal, kind repo.TransactionKind) (*Receipt, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	var rc Receipt
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		if kind == repo.KindDeposit {
			rc.Balance, err = Credit(ctx, tx, userID, amount)
		} else {
			rc.Balance, err = Debit(ctx, tx, userID, amount)
		}
		if err != nil {
			return err
		}

		rc.Transaction = repo.Transaction{UserID: userID, Amount: amount, Kind: kind}
		return tx.InsertTransaction(ctx, &rc.Transaction)
	})
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// Balance retorna o saldo atual do usuário
func (s *Service) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Balance, nil
}

// Transactions lista os lançamentos do usuário, mais recentes primeiro
func (s *Service) Transactions(ctx context.Context, userID int64) ([]repo.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}
