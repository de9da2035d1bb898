// Package wager controla o ciclo de vida das apostas e a regra de pagamento.
//
// Uma aposta nasce Pending com o stake já debitado e termina, uma única vez,
// em Win (credita stake × multiplicador ao dono) ou Lose (sem movimentação).
package wager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/radieske/betting-ledger/internal/betting-service/ledger"
	"github.com/radieske/betting-ledger/internal/betting-service/repo"
)

var (
	ErrInvalidResult     = errors.New("invalid bet result")
	ErrInvalidPrediction = errors.New("invalid prediction")
	ErrNotBetOwner       = errors.New("bet belongs to another user")
)

// MaxPredictionLen acompanha a coluna bets.prediction
const MaxPredictionLen = 120

// DefaultPayoutMultiplier devolve o stake mais lucro igual
var DefaultPayoutMultiplier = decimal.NewFromInt(2)

// SettlePolicy define quem pode liquidar uma aposta
type SettlePolicy string

const (
	// SettleAnyUser: qualquer usuário autenticado liquida qualquer aposta
	SettleAnyUser SettlePolicy = "any"
	// SettleOwnerOnly: só o dono da aposta pode liquidá-la
	SettleOwnerOnly SettlePolicy = "owner"
)

func ParseSettlePolicy(s string) (SettlePolicy, error) {
	switch p := SettlePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case SettleAnyUser, SettleOwnerOnly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown settle policy %q", s)
	}
}

// ParseResult aceita apenas resultados terminais ("Win"/"Lose", sem
// diferenciar maiúsculas)
func ParseResult(s string) (repo.BetResult, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return repo.ResultWin, nil
	case "lose":
		return repo.ResultLose, nil
	default:
		return "", ErrInvalidResult
	}
}

type Engine struct {
	store      repo.Store
	multiplier decimal.Decimal
	policy     SettlePolicy
}

type Option func(*Engine)

func WithPayoutMultiplier(m decimal.Decimal) Option {
	return func(e *Engine) { e.multiplier = m }
}

func WithSettlePolicy(p SettlePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func NewEngine(store repo.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		multiplier: DefaultPayoutMultiplier,
		policy:     SettleAnyUser,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) PayoutMultiplier() decimal.Decimal { return e.multiplier }

func (e *Engine) Policy() SettlePolicy { return e.policy }

// Placement é o resultado de PlaceBet
type Placement struct {
	Bet     repo.Bet
	Balance decimal.Decimal // saldo do usuário após o débito do stake
}

// PlaceBet debita o stake e cria a aposta Pending na mesma unidade atômica.
// Se o débito falha a aposta não é criada.
func (e *Engine) PlaceBet(ctx context.Context, userID int64, stake decimal.Decimal, prediction string) (*Placement, error) {
	if err := ledger.ValidateAmount(stake); err != nil {
		return nil, err
	}
	prediction = strings.TrimSpace(prediction)
	if prediction == "" || utf8.RuneCountInString(prediction) > MaxPredictionLen {
		return nil, ErrInvalidPrediction
	}

	var p Placement
	err := e.store.RunAtomic(ctx, func(ctx context.Context, tx repo.Tx) error {
		bal, err := ledger.Debit(ctx, tx, userID, stake)
		if err != nil {
			return err
		}
		p.Balance = bal

		p.Bet = repo.Bet{
			UserID:     userID,
			Amount:     stake,
			Prediction: prediction,
			Result:     repo.ResultPending,
		}
		return tx.InsertBet(ctx, &p.Bet)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Settlement é o resultado de Settle
type Settlement struct {
	Bet          repo.Bet
	Payout       decimal.Decimal // zero quando Lose
	OwnerBalance decimal.Decimal // saldo do dono da aposta após a liquidação
}

// Settle move a aposta de Pending para result. A transição é um
// compare-and-swap no store, então liquidações concorrentes da mesma aposta
// não pagam duas vezes. O pagamento vai sempre para o dono da aposta.
func (e *Engine) Settle(ctx context.Context, actorID, betID int64, result repo.BetResult) (*Settlement, error) {
	if result != repo.ResultWin && result != repo.ResultLose {
		return nil, ErrInvalidResult
	}

	var s Settlement
	err := e.store.RunAtomic(ctx, func(ctx context.Context, tx repo.Tx) error {
		bet, err := tx.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		if e.policy == SettleOwnerOnly && bet.UserID != actorID {
			return ErrNotBetOwner
		}

		settled, err := tx.SettleBet(ctx, betID, result)
		if err != nil {
			return err
		}
		s.Bet = *settled
		s.Payout = decimal.Zero

		if result == repo.ResultWin {
			// arredondamento bancário para centavos quando o multiplicador é fracionário
			s.Payout = settled.Amount.Mul(e.multiplier).RoundBank(2)
		}
		if s.Payout.IsPositive() {
			s.OwnerBalance, err = ledger.Credit(ctx, tx, settled.UserID, s.Payout)
			return err
		}

		owner, err := tx.GetUser(ctx, settled.UserID)
		if err != nil {
			return err
		}
		s.OwnerBalance = owner.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Bets lista as apostas do usuário, mais recentes primeiro
func (e *Engine) Bets(ctx context.Context, userID int64) ([]repo.Bet, error) {
	return e.store.ListBets(ctx, userID)
}
