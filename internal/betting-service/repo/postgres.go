package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// querier é satisfeito tanto por *sql.DB quanto por *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implementa o Store sobre database/sql + lib/pq
type Postgres struct {
	pgQueries
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{pgQueries: pgQueries{q: db}, db: db} }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// RunAtomic abre uma transação READ COMMITTED. As escritas de saldo e de
// liquidação são condicionais (UPDATE ... WHERE), e o lock de linha do UPDATE
// serializa operações concorrentes sobre o mesmo usuário ou aposta.
func (p *Postgres) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgTx{pgQueries{q: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// códigos SQLSTATE tratados
const (
	pgUniqueViolation   = "23505"
	pgNumericOutOfRange = "22003"
)

type pgQueries struct{ q querier }

type pgTx struct{ pgQueries }

const userColumns = `id, username, password_hash, balance, created_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Balance, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (p pgQueries) GetUser(ctx context.Context, id int64) (*User, error) {
	return scanUser(p.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (p pgQueries) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(p.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

const betColumns = `id, user_id, amount, prediction, result, created_at, settled_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (*Bet, error) {
	var (
		b       Bet
		result  string
		settled sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Amount, &b.Prediction, &result, &b.CreatedAt, &settled); err != nil {
		return nil, err
	}
	b.Result = BetResult(result)
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	return &b, nil
}

func (p pgQueries) GetBet(ctx context.Context, id int64) (*Bet, error) {
	b, err := scanBet(p.q.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bet: %w", err)
	}
	return b, nil
}

func (p pgQueries) ListBets(ctx context.Context, userID int64) ([]Bet, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	bets := []Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}

func (p pgQueries) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT id, user_id, amount, type, status, created_at
		FROM transactions
		WHERE user_id=$1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var (
			t    Transaction
			kind string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &kind, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = TransactionKind(kind)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (t *pgTx) CreateUser(ctx context.Context, u *User) error {
	err := t.q.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, balance)
		VALUES ($1, $2, 0)
		RETURNING id, balance, created_at`,
		u.Username, u.PasswordHash,
	).Scan(&u.ID, &u.Balance, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// AdjustBalance usa decremento condicional: o WHERE é reavaliado após a
// espera pelo lock de linha, então dois débitos concorrentes nunca passam
// juntos pela checagem de saldo.
func (t *pgTx) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.q.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance + $1::numeric
		WHERE id = $2 AND balance + $1::numeric >= 0
		RETURNING balance`,
		delta, userID,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgNumericOutOfRange {
			return decimal.Zero, ErrBalanceLimit
		}
		return decimal.Zero, fmt.Errorf("adjust balance: %w", err)
	}

	// nenhuma linha: usuário inexistente ou saldo insuficiente
	if _, gerr := t.GetUser(ctx, userID); gerr != nil {
		return decimal.Zero, gerr
	}
	return decimal.Zero, ErrInsufficientFunds
}

func (t *pgTx) InsertBet(ctx context.Context, b *Bet) error {
	if b.Result == "" {
		b.Result = ResultPending
	}
	err := t.q.QueryRowContext(ctx, `
		INSERT INTO bets (user_id, amount, prediction, result)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		b.UserID, b.Amount, b.Prediction, string(b.Result),
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

// SettleBet é um compare-and-swap em result: só a primeira liquidação
// encontra a linha em Pending.
func (t *pgTx) SettleBet(ctx context.Context, betID int64, result BetResult) (*Bet, error) {
	b, err := scanBet(t.q.QueryRowContext(ctx, `
		UPDATE bets
		SET result = $1, settled_at = NOW()
		WHERE id = $2 AND result = 'Pending'
		RETURNING `+betColumns,
		string(result), betID,
	))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settle bet: %w", err)
	}

	if _, gerr := t.GetBet(ctx, betID); gerr != nil {
		return nil, gerr
	}
	return nil, ErrAlreadySettled
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *Transaction) error {
	if tr.Status == "" {
		tr.Status = TransactionStatusPending
	}
	err := t.q.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, amount, type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		tr.UserID, tr.Amount, string(tr.Kind), tr.Status,
	).Scan(&tr.ID, &tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
