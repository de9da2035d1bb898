package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/betting-ledger/internal/betting-service/auth"
	"github.com/radieske/betting-ledger/internal/betting-service/dto"
	"github.com/radieske/betting-ledger/internal/betting-service/ledger"
	"github.com/radieske/betting-ledger/internal/betting-service/repo"
	"github.com/radieske/betting-ledger/internal/betting-service/wager"
)

const maxBodyBytes = 1 << 20

var errMalformedJSON = errors.New("invalid JSON")

// classify traduz erros de domínio em status e mensagem; o que não for
// reconhecido é falha operacional (500)
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errMalformedJSON):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repo.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient balance"
	case errors.Is(err, repo.ErrBalanceLimit):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, wager.ErrInvalidResult),
		errors.Is(err, wager.ErrInvalidPrediction),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, dto.ErrInvalidRequest):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, repo.ErrAlreadySettled):
		return http.StatusConflict, "bet already settled"
	case errors.Is(err, repo.ErrDuplicateUsername):
		return http.StatusConflict, "username already taken"
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrAuthFailure), errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, wager.ErrNotBetOwner):
		return http.StatusForbidden, err.Error()
	default:
		return http.StatusInternalServerError, "operation failed, please try again"
	}
}

// fail responde o erro; falhas operacionais são logadas com a operação
// e o usuário da requisição
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, msg := classify(err)
	if code == http.StatusInternalServerError {
		fields := []zap.Field{zap.String("op", op), zap.Error(err)}
		if p, perr := auth.CurrentUser(r.Context()); perr == nil {
			fields = append(fields, zap.Int64("user_id", p.UserID()))
		}
		s.log.Error("operation failed", fields...)
	}
	respondJSON(w, code, dto.ErrorResponse{Error: msg})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

type validatable interface {
	Validate() error
}

// decodeJSON lê o corpo e aplica as validações estruturais do payload
func decodeJSON(w http.ResponseWriter, r *http.Request, v validatable) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errMalformedJSON
	}
	return v.Validate()
}
