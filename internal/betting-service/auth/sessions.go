package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore guarda sessões por token opaco
type SessionStore interface {
	Create(ctx context.Context, s Session) (token string, err error)
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// RedisSessions implementa SessionStore no Redis com expiração por TTL
type RedisSessions struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSessions(c *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{Client: c, TTL: ttl}
}

// key gera a chave Redis de uma sessão
func key(token string) string { return "session:" + token }

func (r *RedisSessions) Create(ctx context.Context, s Session) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := r.Client.Set(ctx, key(token), b, r.TTL).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Get retorna ErrUnauthenticated para token desconhecido ou expirado
func (r *RedisSessions) Get(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthenticated
	}
	b, err := r.Client.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrUnauthenticated
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, token string) error {
	if err := r.Client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
