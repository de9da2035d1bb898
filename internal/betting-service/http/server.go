package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/betting-ledger/internal/betting-service/auth"
	"github.com/radieske/betting-ledger/internal/betting-service/dto"
	"github.com/radieske/betting-ledger/internal/betting-service/ledger"
	"github.com/radieske/betting-ledger/internal/betting-service/producer"
	"github.com/radieske/betting-ledger/internal/betting-service/repo"
	"github.com/radieske/betting-ledger/internal/betting-service/wager"
	"github.com/radieske/betting-ledger/pkg/contracts/events"
)

// tempo máximo de uma publicação de evento após o commit
const publishTimeout = 3 * time.Second

type Server struct {
	log    *zap.Logger
	auth   *auth.Service
	ledger *ledger.Service
	engine *wager.Engine
	publ   producer.Publisher
}

func NewServer(log *zap.Logger, a *auth.Service, l *ledger.Service, e *wager.Engine, p producer.Publisher) *Server {
	return &Server{log: log, auth: a, ledger: l, engine: e, publ: p}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequest)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.requireAuth(s.logout)).Methods(http.MethodPost)

	r.HandleFunc("/dashboard", s.requireAuth(s.dashboard)).Methods(http.MethodGet)
	r.HandleFunc("/deposit", s.requireAuth(s.deposit)).Methods(http.MethodPost)
	r.HandleFunc("/withdraw", s.requireAuth(s.withdraw)).Methods(http.MethodPost)
	r.HandleFunc("/transactions", s.requireAuth(s.transactions)).Methods(http.MethodGet)

	r.HandleFunc("/place_bet", s.requireAuth(s.placeBet)).Methods(http.MethodPost)
	r.HandleFunc("/update_bet_result/{betId}", s.requireAuth(s.settleBet)).Methods(http.MethodPost)
	r.HandleFunc("/bet_history", s.requireAuth(s.betHistory)).Methods(http.MethodGet)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "register", err)
		return
	}
	u, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, "register", err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.UserResponse{
		Message:  "registration successful",
		UserID:   u.ID,
		Username: u.Username,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "login", err)
		return
	}
	token, p, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, "login", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, dto.LoginResponse{
		Message:  "login successful",
		Token:    token,
		UserID:   p.UserID(),
		Username: p.Username(),
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		s.fail(w, r, "logout", err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentUser(r.Context())
	bal, err := s.ledger.Balance(r.Context(), p.UserID())
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewDashboardResponse(&repo.User{
		ID:       p.UserID(),
		Username: p.Username(),
		Balance:  bal,
	}))
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	s.recordTransaction(w, r, "deposit", s.ledger.Deposit, "deposit successful")
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.recordTransaction(w, r, "withdraw", s.ledger.Withdraw, "withdrawal successful")
}

type ledgerOp func(ctx context.Context, userID int64, amount decimal.Decimal) (*ledger.Receipt, error)

func (s *Server) recordTransaction(w http.ResponseWriter, r *http.Request, op string, fn ledgerOp, msg string) {
	p, _ := auth.CurrentUser(r.Context())

	var req dto.AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	rc, err := fn(r.Context(), p.UserID(), req.Amount)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	ledgerTransactionsTotal.WithLabelValues(string(rc.Transaction.Kind)).Inc()

	s.publish(r, "ledger_transaction", func(ctx context.Context) error {
		return s.publ.PublishLedgerTransaction(ctx, events.LedgerTransaction{
			TransactionID: rc.Transaction.ID,
			UserID:        p.UserID(),
			Kind:          string(rc.Transaction.Kind),
			Amount:        rc.Transaction.Amount.StringFixed(2),
			BalanceAfter:  rc.Balance.StringFixed(2),
		})
	})

	respondJSON(w, http.StatusOK, dto.NewTransactionReceiptResponse(msg, rc.Transaction, rc.Balance))
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentUser(r.Context())
	txs, err := s.ledger.Transactions(r.Context(), p.UserID())
	if err != nil {
		s.fail(w, r, "transactions", err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewTransactionHistoryResponse(txs))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentUser(r.Context())

	var req dto.PlaceBetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "place_bet", err)
		return
	}
	pl, err := s.engine.PlaceBet(r.Context(), p.UserID(), req.Amount, req.Prediction)
	if err != nil {
		s.fail(w, r, "place_bet", err)
		return
	}
	betsPlacedTotal.Inc()

	s.publish(r, "bet_placed", func(ctx context.Context) error {
		return s.publ.PublishBetPlaced(ctx, events.BetPlaced{
			BetID:        pl.Bet.ID,
			UserID:       pl.Bet.UserID,
			Stake:        pl.Bet.Amount.StringFixed(2),
			Prediction:   pl.Bet.Prediction,
			BalanceAfter: pl.Balance.StringFixed(2),
		})
	})

	respondJSON(w, http.StatusCreated, dto.NewPlaceBetResponse(pl.Bet, pl.Balance))
}

func (s *Server) settleBet(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentUser(r.Context())

	betID, err := strconv.ParseInt(mux.Vars(r)["betId"], 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid bet id"})
		return
	}
	var req dto.SettleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_bet_result", err)
		return
	}
	result, err := wager.ParseResult(req.Result)
	if err != nil {
		s.fail(w, r, "update_bet_result", err)
		return
	}

	st, err := s.engine.Settle(r.Context(), p.UserID(), betID, result)
	if err != nil {
		s.fail(w, r, "update_bet_result", err)
		return
	}
	betsSettledTotal.WithLabelValues(string(st.Bet.Result)).Inc()

	s.publish(r, "bet_settled", func(ctx context.Context) error {
		return s.publ.PublishBetSettled(ctx, events.BetSettled{
			BetID:  st.Bet.ID,
			UserID: st.Bet.UserID,
			Result: string(st.Bet.Result),
			Payout: st.Payout.StringFixed(2),
		})
	})

	respondJSON(w, http.StatusOK, dto.NewSettleResponse(st.Bet, st.Payout, st.OwnerBalance))
}

func (s *Server) betHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentUser(r.Context())
	bets, err := s.engine.Bets(r.Context(), p.UserID())
	if err != nil {
		s.fail(w, r, "bet_history", err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBetHistoryResponse(bets))
}

// publish roda depois do commit; falha só gera log e métrica, a operação
// já está efetivada
func (s *Server) publish(r *http.Request, event string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		eventPublishFailures.WithLabelValues(event).Inc()
		s.log.Warn("publish event failed", zap.String("event", event), zap.Error(err))
	}
}
