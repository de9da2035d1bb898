// Package auth é o colaborador de identidade: cadastro, verificação de
// credenciais e sessões. O core de apostas nunca vê senhas.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/betting-ledger/internal/betting-service/repo"
)

// MaxUsernameLen acompanha a coluna users.username
const MaxUsernameLen = 80

type Service struct {
	store    repo.Store
	sessions SessionStore
	cost     int

	// hash usado quando o usuário não existe, para que o tempo de resposta
	// não revele quais usernames estão cadastrados
	dummyHash []byte
}

type Option func(*Service)

// WithHashCost troca o custo do bcrypt (testes usam bcrypt.MinCost)
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService falha se o custo do bcrypt for inválido
func NewService(store repo.Store, sessions SessionStore, opts ...Option) (*Service, error) {
	s := &Service{store: store, sessions: sessions, cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), s.cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt cost %d: %w", s.cost, err)
	}
	s.dummyHash = hash
	return s, nil
}

func validate(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLen {
		return "", ErrInvalidCredentials
	}
	// bcrypt ignora/recusa além de 72 bytes
	if password == "" || len(password) > 72 {
		return "", ErrInvalidCredentials
	}
	return username, nil
}

// Register cria a conta com saldo zero
func (s *Service) Register(ctx context.Context, username, password string) (*repo.User, error) {
	username, err := validate(username, password)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	u := &repo.User{Username: username, PasswordHash: string(hash)}
	err = s.store.RunAtomic(ctx, func(ctx context.Context, tx repo.Tx) error {
		// checagem amigável; a constraint UNIQUE é a garantia final sob corrida
		if _, err := tx.GetUserByUsername(ctx, username); err == nil {
			return repo.ErrDuplicateUsername
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		return tx.CreateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// VerifyCredential retorna a identidade do usuário ou ErrAuthFailure
func (s *Service) VerifyCredential(ctx context.Context, username, password string) (Principal, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrAuthFailure
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrAuthFailure
	}
	return Session{ID: u.ID, Name: u.Username}, nil
}

// Login verifica a credencial e abre uma sessão
func (s *Service) Login(ctx context.Context, username, password string) (string, Principal, error) {
	p, err := s.VerifyCredential(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.sessions.Create(ctx, Session{ID: p.UserID(), Name: p.Username()})
	if err != nil {
		return "", nil, err
	}
	return token, p, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolve o token da requisição para um Principal
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
