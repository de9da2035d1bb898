package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/betting-ledger/internal/betting-service/auth"
	"github.com/radieske/betting-ledger/internal/betting-service/dto"
	"github.com/radieske/betting-ledger/internal/betting-service/ledger"
	"github.com/radieske/betting-ledger/internal/betting-service/producer"
	"github.com/radieske/betting-ledger/internal/betting-service/repo"
	"github.com/radieske/betting-ledger/internal/betting-service/wager"
	"github.com/radieske/betting-ledger/pkg/contracts/events"
)

type recordingPublisher struct {
	mu      sync.Mutex
	placed  []events.BetPlaced
	settled []events.BetSettled
	ledger  []events.LedgerTransaction
	err     error
}

func (p *recordingPublisher) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *recordingPublisher) PublishBetSettled(_ context.Context, e events.BetSettled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = append(p.settled, e)
	return p.err
}

func (p *recordingPublisher) PublishLedgerTransaction(_ context.Context, e events.LedgerTransaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ledger = append(p.ledger, e)
	return p.err
}

func (p *recordingPublisher) counts() (placed, settled, txs int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.placed), len(p.settled), len(p.ledger)
}

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	engine *wager.Engine
}

func newTestEnv(t *testing.T, publ producer.Publisher, opts ...wager.Option) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repo.NewMemory()
	a, err := auth.NewService(store, auth.NewRedisSessions(rdb, 0), auth.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)
	engine := wager.NewEngine(store, opts...)
	s := NewServer(zap.NewNop(), a, ledger.NewService(store), engine, publ)

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, srv: ts, engine: engine}
}

// do envia body como JSON (ou cru, quando string) e decodifica a resposta em out
func (e *testEnv) do(method, path, token string, body any, out any) int {
	e.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) signup(username string) string {
	e.t.Helper()
	creds := dto.CredentialsRequest{Username: username, Password: "s3cret"}
	require.Equal(e.t, http.StatusCreated, e.do(http.MethodPost, "/register", "", creds, nil))
	var lr dto.LoginResponse
	require.Equal(e.t, http.StatusOK, e.do(http.MethodPost, "/login", "", creds, &lr))
	require.NotEmpty(e.t, lr.Token)
	return lr.Token
}

func TestBetLifecycleOverHTTP(t *testing.T) {
	publ := &recordingPublisher{}
	env := newTestEnv(t, publ)
	tok := env.signup("alice")

	var dash dto.DashboardResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/dashboard", tok, nil, &dash))
	assert.Equal(t, "alice", dash.Username)
	assert.Equal(t, "0.00", dash.Balance)

	var rc dto.TransactionReceiptResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/deposit", tok, map[string]any{"amount": 100}, &rc))
	assert.Equal(t, "100.00", rc.Balance)
	assert.Equal(t, "deposit", rc.Transaction.Type)
	assert.Equal(t, "Pending", rc.Transaction.Status)

	var placed dto.PlaceBetResponse
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/place_bet", tok,
		map[string]any{"amount": "30", "prediction": "home wins"}, &placed))
	assert.Equal(t, "70.00", placed.Balance)
	assert.Equal(t, "Pending", placed.Bet.Result)

	var settled dto.SettleResponse
	path := "/update_bet_result/" + jsonInt(placed.Bet.ID)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, path, tok, dto.SettleRequest{Result: "Win"}, &settled))
	assert.Equal(t, "60.00", settled.Payout)
	assert.Equal(t, "130.00", settled.OwnerBalance)
	assert.Equal(t, "Win", settled.Bet.Result)
	assert.NotNil(t, settled.Bet.SettledAt)

	var errResp dto.ErrorResponse
	require.Equal(t, http.StatusConflict, env.do(http.MethodPost, path, tok, dto.SettleRequest{Result: "Lose"}, &errResp))
	assert.Equal(t, "bet already settled", errResp.Error)

	var hist dto.BetHistoryResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/bet_history", tok, nil, &hist))
	require.Len(t, hist.Bets, 1)
	assert.Equal(t, "Win", hist.Bets[0].Result)

	nPlaced, nSettled, nLedger := publ.counts()
	require.Equal(t, 1, nPlaced)
	require.Equal(t, 1, nSettled)
	require.Equal(t, 1, nLedger)
	publ.mu.Lock()
	assert.Equal(t, "70.00", publ.placed[0].BalanceAfter)
	assert.Equal(t, "60.00", publ.settled[0].Payout)
	publ.mu.Unlock()
}

func TestTransactionsNewestFirstAndScoped(t *testing.T) {
	env := newTestEnv(t, producer.Noop{})
	alice := env.signup("alice")
	bob := env.signup("bob")

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/deposit", alice, map[string]any{"amount": "50"}, nil))
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/withdraw", alice, map[string]any{"amount": "20.5"}, nil))
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/deposit", bob, map[string]any{"amount": "5"}, nil))

	var hist dto.TransactionHistoryResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/transactions", alice, nil, &hist))
	require.Len(t, hist.Transactions, 2)
	assert.Equal(t, "withdrawal", hist.Transactions[0].Type)
	assert.Equal(t, "20.50", hist.Transactions[0].Amount)
	assert.Equal(t, "deposit", hist.Transactions[1].Type)

	var dash dto.DashboardResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/dashboard", alice, nil, &dash))
	assert.Equal(t, "29.50", dash.Balance)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, producer.Noop{})
	tok := env.signup("alice")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/deposit", tok, map[string]any{"amount": 10}, nil))

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		msg    string
	}{
		{"no session", http.MethodGet, "/dashboard", "", nil, http.StatusUnauthorized, "unauthenticated"},
		{"unknown session", http.MethodGet, "/bet_history", "nope", nil, http.StatusUnauthorized, "unauthenticated"},
		{"malformed json", http.MethodPost, "/deposit", tok, "{amount:", http.StatusBadRequest, "invalid JSON"},
		{"zero amount", http.MethodPost, "/deposit", tok, map[string]any{"amount": 0}, http.StatusUnprocessableEntity, "invalid amount"},
		{"sub-cent amount", http.MethodPost, "/withdraw", tok, map[string]any{"amount": "0.001"}, http.StatusUnprocessableEntity, "invalid amount"},
		{"amount at column limit", http.MethodPost, "/deposit", tok, map[string]any{"amount": "1e18"}, http.StatusUnprocessableEntity, "invalid amount"},
		{"huge exponent", http.MethodPost, "/deposit", tok, map[string]any{"amount": "1e20000000"}, http.StatusUnprocessableEntity, "invalid amount"},
		{"overdraw", http.MethodPost, "/withdraw", tok, map[string]any{"amount": "10.01"}, http.StatusUnprocessableEntity, "insufficient balance"},
		{"stake above balance", http.MethodPost, "/place_bet", tok, map[string]any{"amount": 11, "prediction": "x"}, http.StatusUnprocessableEntity, "insufficient balance"},
		{"empty prediction", http.MethodPost, "/place_bet", tok, map[string]any{"amount": 1, "prediction": " "}, http.StatusUnprocessableEntity, "invalid prediction"},
		{"unknown bet", http.MethodPost, "/update_bet_result/999", tok, dto.SettleRequest{Result: "Win"}, http.StatusNotFound, "not found"},
		{"bad bet id", http.MethodPost, "/update_bet_result/abc", tok, dto.SettleRequest{Result: "Win"}, http.StatusBadRequest, "invalid bet id"},
		{"bad login", http.MethodPost, "/login", "", dto.CredentialsRequest{Username: "alice", Password: "wrong"}, http.StatusUnauthorized, "invalid username or password"},
		{"missing prediction", http.MethodPost, "/place_bet", tok, map[string]any{"amount": 1}, http.StatusUnprocessableEntity, "invalid request: prediction is required"},
		{"missing result", http.MethodPost, "/update_bet_result/1", tok, map[string]any{}, http.StatusUnprocessableEntity, "invalid request: result is required"},
		{"duplicate user", http.MethodPost, "/register", "", dto.CredentialsRequest{Username: "alice", Password: "x"}, http.StatusConflict, "username already taken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var er dto.ErrorResponse
			assert.Equal(t, tc.status, env.do(tc.method, tc.path, tc.token, tc.body, &er))
			assert.Equal(t, tc.msg, er.Error)
		})
	}

	var dash dto.DashboardResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/dashboard", tok, nil, &dash))
	assert.Equal(t, "10.00", dash.Balance)
}

func TestSettleInvalidResultLeavesBetPending(t *testing.T) {
	env := newTestEnv(t, producer.Noop{})
	tok := env.signup("alice")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/deposit", tok, map[string]any{"amount": 10}, nil))

	var placed dto.PlaceBetResponse
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/place_bet", tok, map[string]any{"amount": 5, "prediction": "x"}, &placed))

	var er dto.ErrorResponse
	path := "/update_bet_result/" + jsonInt(placed.Bet.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, path, tok, dto.SettleRequest{Result: "Pending"}, &er))
	assert.Equal(t, "invalid bet result", er.Error)

	var hist dto.BetHistoryResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/bet_history", tok, nil, &hist))
	require.Len(t, hist.Bets, 1)
	assert.Equal(t, "Pending", hist.Bets[0].Result)
}

func TestOwnerOnlySettlementForbidden(t *testing.T) {
	env := newTestEnv(t, producer.Noop{}, wager.WithSettlePolicy(wager.SettleOwnerOnly))
	alice := env.signup("alice")
	bob := env.signup("bob")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/deposit", alice, map[string]any{"amount": 10}, nil))

	var placed dto.PlaceBetResponse
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/place_bet", alice, map[string]any{"amount": 5, "prediction": "x"}, &placed))

	path := "/update_bet_result/" + jsonInt(placed.Bet.ID)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, path, bob, dto.SettleRequest{Result: "Win"}, nil))
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, path, alice, dto.SettleRequest{Result: "Win"}, nil))
}

func TestLogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t, producer.Noop{})
	tok := env.signup("alice")

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/logout", tok, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/dashboard", tok, nil, nil))
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t, producer.Noop{})
	env.signup("alice")

	body, _ := json.Marshal(dto.CredentialsRequest{Username: "alice", Password: "s3cret"})
	resp, err := env.srv.Client().Post(env.srv.URL+"/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/dashboard", nil)
	req.AddCookie(cookie)
	resp2, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	publ := &recordingPublisher{err: errors.New("broker down")}
	env := newTestEnv(t, publ)
	tok := env.signup("alice")

	var rc dto.TransactionReceiptResponse
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/deposit", tok, map[string]any{"amount": 10}, &rc))
	assert.Equal(t, "10.00", rc.Balance)
	_, _, nLedger := publ.counts()
	assert.Equal(t, 1, nLedger)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, producer.Noop{})
	var out map[string]string
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "", nil, &out))
	assert.Equal(t, "ok", out["status"])
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
