package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Memory é um Store em memória para testes e para STORE_DRIVER=memory.
// RunAtomic segura um mutex global durante toda a unidade (serializável)
// e desfaz as escritas quando fn retorna erro.
type Memory struct {
	mu  sync.Mutex
	now func() time.Time

	users      map[int64]*User
	byUsername map[string]int64
	bets       map[int64]*Bet
	txs        map[int64]*Transaction

	userSeq, betSeq, txSeq int64
}

func NewMemory() *Memory {
	return &Memory{
		now:        time.Now,
		users:      make(map[int64]*User),
		byUsername: make(map[string]int64),
		bets:       make(map[int64]*Bet),
		txs:        make(map[int64]*Transaction),
	}
}

// WithClock troca o relógio usado em created_at/settled_at
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{m: m}
	committed := false
	// desfaz também quando fn entra em pânico; o pânico segue adiante
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUser(id)
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUserByUsername(username)
}

func (m *Memory) GetBet(ctx context.Context, id int64) (*Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getBet(id)
}

func (m *Memory) ListBets(ctx context.Context, userID int64) ([]Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listBets(userID), nil
}

func (m *Memory) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listTransactions(userID), nil
}

// leituras sem lock, chamadas com m.mu já adquirido

func (m *Memory) getUser(id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) getUserByUsername(username string) (*User, error) {
	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return m.getUser(id)
}

func (m *Memory) getBet(id int64) (*Bet, error) {
	b, ok := m.bets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) listBets(userID int64) []Bet {
	out := []Bet{}
	for _, b := range m.bets {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *Memory) listTransactions(userID int64) []Transaction {
	out := []Transaction{}
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type memTx struct {
	m    *Memory
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) GetUser(ctx context.Context, id int64) (*User, error) { return t.m.getUser(id) }

func (t *memTx) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return t.m.getUserByUsername(username)
}

func (t *memTx) GetBet(ctx context.Context, id int64) (*Bet, error) { return t.m.getBet(id) }

func (t *memTx) ListBets(ctx context.Context, userID int64) ([]Bet, error) {
	return t.m.listBets(userID), nil
}

func (t *memTx) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	return t.m.listTransactions(userID), nil
}

func (t *memTx) CreateUser(ctx context.Context, u *User) error {
	if _, ok := t.m.byUsername[u.Username]; ok {
		return ErrDuplicateUsername
	}
	t.m.userSeq++
	u.ID = t.m.userSeq
	u.Balance = decimal.Zero
	u.CreatedAt = t.m.now()

	stored := *u
	t.m.users[u.ID] = &stored
	t.m.byUsername[u.Username] = u.ID
	t.undo = append(t.undo, func() {
		delete(t.m.users, stored.ID)
		delete(t.m.byUsername, stored.Username)
	})
	return nil
}

func (t *memTx) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	u, ok := t.m.users[userID]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, ErrInsufficientFunds
	}
	if next.Cmp(MaxBalance) >= 0 {
		return decimal.Zero, ErrBalanceLimit
	}
	prev := u.Balance
	u.Balance = next
	t.undo = append(t.undo, func() { u.Balance = prev })
	return next, nil
}

func (t *memTx) InsertBet(ctx context.Context, b *Bet) error {
	if _, ok := t.m.users[b.UserID]; !ok {
		return ErrNotFound
	}
	if b.Result == "" {
		b.Result = ResultPending
	}
	t.m.betSeq++
	b.ID = t.m.betSeq
	b.CreatedAt = t.m.now()

	stored := *b
	t.m.bets[b.ID] = &stored
	t.undo = append(t.undo, func() { delete(t.m.bets, stored.ID) })
	return nil
}

func (t *memTx) SettleBet(ctx context.Context, betID int64, result BetResult) (*Bet, error) {
	b, ok := t.m.bets[betID]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Result != ResultPending {
		return nil, ErrAlreadySettled
	}
	settledAt := t.m.now()
	b.Result = result
	b.SettledAt = &settledAt
	t.undo = append(t.undo, func() {
		b.Result = ResultPending
		b.SettledAt = nil
	})
	cp := *b
	return &cp, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tr *Transaction) error {
	if _, ok := t.m.users[tr.UserID]; !ok {
		return ErrNotFound
	}
	if tr.Status == "" {
		tr.Status = TransactionStatusPending
	}
	t.m.txSeq++
	tr.ID = t.m.txSeq
	tr.CreatedAt = t.m.now()

	stored := *tr
	t.m.txs[tr.ID] = &stored
	t.undo = append(t.undo, func() { delete(t.m.txs, stored.ID) })
	return nil
}
