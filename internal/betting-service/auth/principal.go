package auth

import (
	"context"
	"errors"
)

var (
	ErrAuthFailure        = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("username and password are required")
)

// Principal é a identidade resolvida para a requisição em andamento.
// Independe da entidade persistida repo.User.
type Principal interface {
	UserID() int64
	Username() string
}

// Session é o Principal guardado no session store
type Session struct {
	ID   int64  `json:"user_id"`
	Name string `json:"username"`
}

func (s Session) UserID() int64    { return s.ID }
func (s Session) Username() string { return s.Name }

type principalKey struct{}

// WithPrincipal anexa a identidade resolvida ao contexto da requisição
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// CurrentUser retorna a identidade da requisição ou ErrUnauthenticated
func CurrentUser(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p == nil {
		return nil, ErrUnauthenticated
	}
	return p, nil
}
