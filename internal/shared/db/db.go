package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ConnectPostgres abre o pool e tenta o ping algumas vezes,
// já que o Postgres pode subir depois do serviço no compose
func ConnectPostgres(dsn string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	const attempts = 5
	for i := 1; i <= attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		log.Info("waiting for postgres", zap.Int("attempt", i), zap.Int("of", attempts))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// RunMigrations cria tabelas e índices de forma idempotente
func RunMigrations(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL     PRIMARY KEY,
			username      VARCHAR(80)   NOT NULL UNIQUE,
			password_hash VARCHAR(255)  NOT NULL,
			balance       NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			id         BIGSERIAL     PRIMARY KEY,
			user_id    BIGINT        NOT NULL REFERENCES users(id),
			amount     NUMERIC(20,2) NOT NULL CHECK (amount > 0),
			prediction VARCHAR(120)  NOT NULL,
			result     VARCHAR(20)   NOT NULL DEFAULT 'Pending'
				CHECK (result IN ('Pending', 'Win', 'Lose')),
			created_at TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id         BIGSERIAL     PRIMARY KEY,
			user_id    BIGINT        NOT NULL REFERENCES users(id),
			amount     NUMERIC(20,2) NOT NULL CHECK (amount > 0),
			type       VARCHAR(20)   NOT NULL CHECK (type IN ('deposit', 'withdrawal')),
			status     VARCHAR(20)   NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_user_created
			ON bets(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_created
			ON transactions(user_id, created_at DESC)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
