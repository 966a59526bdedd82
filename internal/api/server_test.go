package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"syndicate/internal/auth"
	"syndicate/internal/config"
	"syndicate/internal/game"
)

const testSecret = "api-test-secret-0123456789"

type fakeEngine struct {
	player    game.Player
	playerErr error

	depositErr error
	deposits   []game.Target

	created []game.CreateGameInput
	joined  []game.JoinGameInput
}

func (f *fakeEngine) CreateGame(_ context.Context, in game.CreateGameInput) (game.Game, error) {
	f.created = append(f.created, in)
	return game.Game{ID: 9, Name: in.Name, LengthDays: in.LengthDays, Status: game.StatusActive}, nil
}
func (f *fakeEngine) DeleteGame(context.Context, int64) error { return game.ErrGameNotFound }
func (f *fakeEngine) GetGame(_ context.Context, id int64) (game.Game, error) {
	return game.Game{ID: id}, nil
}
func (f *fakeEngine) ListGames(context.Context, string) ([]game.Game, error) {
	return []game.Game{{ID: 2, Name: "spring"}, {ID: 1, Name: "winter"}}, nil
}
func (f *fakeEngine) EnsureUser(context.Context, string, string) error { return nil }
func (f *fakeEngine) GetUser(_ context.Context, id string) (game.User, error) {
	return game.User{ID: id}, nil
}
func (f *fakeEngine) GrantAccountTurns(_ context.Context, id string, amount int64) (game.User, error) {
	return game.User{ID: id, Turns: amount}, nil
}
func (f *fakeEngine) JoinGame(_ context.Context, in game.JoinGameInput) (game.Player, error) {
	f.joined = append(f.joined, in)
	return game.Player{ID: uuid.New(), GameID: in.GameID, UserID: in.UserID, Name: in.Name}, nil
}
func (f *fakeEngine) PlayerForUser(context.Context, int64, string) (game.Player, error) {
	return f.player, f.playerErr
}
func (f *fakeEngine) UserPlayers(context.Context, string) ([]game.Player, error) { return nil, nil }
func (f *fakeEngine) Withdraw(context.Context, game.Target) (game.Balances, error) {
	return game.Balances{}, nil
}
func (f *fakeEngine) Deposit(_ context.Context, t game.Target, amount decimal.Decimal) (game.Balances, error) {
	f.deposits = append(f.deposits, t)
	if f.depositErr != nil {
		return game.Balances{}, f.depositErr
	}
	return game.Balances{MoneyBank: amount}, nil
}
func (f *fakeEngine) ListResources(context.Context, game.Target, string) ([]game.MarketResource, error) {
	return nil, nil
}
func (f *fakeEngine) Buy(context.Context, game.Target, int64, int64) (game.TradeResult, error) {
	return game.TradeResult{}, nil
}
func (f *fakeEngine) Sell(context.Context, game.Target, int64, int64) (game.TradeResult, error) {
	return game.TradeResult{}, nil
}
func (f *fakeEngine) ListPersonnel(context.Context, game.Target) ([]game.PersonnelResource, error) {
	return nil, nil
}
func (f *fakeEngine) Recruit(context.Context, game.Target, []int64, int64) (game.RecruitResult, error) {
	return game.RecruitResult{}, nil
}
func (f *fakeEngine) Divest(context.Context, game.Target, int64, int64) (game.DivestResult, error) {
	return game.DivestResult{}, nil
}
func (f *fakeEngine) ReserveToActive(context.Context, game.Target, int64) (game.Player, error) {
	return game.Player{}, nil
}
func (f *fakeEngine) AccountToReserve(context.Context, game.Target, int64) (game.AccountTransferResult, error) {
	return game.AccountTransferResult{}, nil
}

func newTestServer(t *testing.T, engine *fakeEngine) (*Server, *auth.Verifier) {
	t.Helper()
	v := auth.NewVerifier(testSecret)
	cfg := config.APIConfig{RateLimitPerMinute: 1000, RequestTimeout: 5 * time.Second}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, logger, v, engine), v
}

func issue(t *testing.T, v *auth.Verifier, id auth.Identity) string {
	t.Helper()
	token, err := v.Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func do(t *testing.T, s *Server, method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{})
	rec := do(t, s, http.MethodGet, "/healthz", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{})
	other := auth.NewVerifier("some-other-secret-0123456789")

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", issue(t, other, auth.Identity{UserID: "u-1"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/v1/games", tc.token, "", nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status %d want 401", rec.Code)
			}
		})
	}
}

func TestListGames(t *testing.T) {
	s, v := newTestServer(t, &fakeEngine{})
	rec := do(t, s, http.MethodGet, "/v1/games", issue(t, v, auth.Identity{UserID: "u-1"}), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	games, _ := decodeBody(t, rec)["games"].([]any)
	if len(games) != 2 {
		t.Fatalf("got %d games want 2", len(games))
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	engine := &fakeEngine{}
	s, v := newTestServer(t, engine)
	body := `{"name":"round","length_days":7,"starting_bank":"500"}`

	rec := do(t, s, http.MethodPost, "/v1/admin/games", issue(t, v, auth.Identity{UserID: "u-1"}), body, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status %d want 403", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/v1/admin/games", issue(t, v, auth.Identity{UserID: "root", Admin: true}), body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin status %d body %s", rec.Code, rec.Body.String())
	}
	if len(engine.created) != 1 || !engine.created[0].StartingBank.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("create input %+v", engine.created)
	}
	rec = do(t, s, http.MethodDelete, "/v1/admin/games/3", issue(t, v, auth.Identity{UserID: "root", Admin: true}), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing game status %d want 404", rec.Code)
	}
}

func TestJoinUsesCallerIdentity(t *testing.T) {
	engine := &fakeEngine{}
	s, v := newTestServer(t, engine)
	token := issue(t, v, auth.Identity{UserID: "u-7", Username: "nico"})

	rec := do(t, s, http.MethodPost, "/v1/games/4/join", token, `{"name":"Nico's Crew"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	in := engine.joined[0]
	if in.GameID != 4 || in.UserID != "u-7" || in.Username != "nico" || in.Name != "Nico's Crew" {
		t.Fatalf("join input %+v", in)
	}
	rec = do(t, s, http.MethodPost, "/v1/games/4/join", token, `{"name":"x","user_id":"someone-else"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status %d want 400", rec.Code)
	}
}

func TestDepositPassesIdempotencyKeyAndMapsErrors(t *testing.T) {
	engine := &fakeEngine{player: game.Player{ID: uuid.New(), UserID: "u-1"}}
	s, v := newTestServer(t, engine)
	token := issue(t, v, auth.Identity{UserID: "u-1"})

	rec := do(t, s, http.MethodPost, "/v1/games/1/bank/deposit", token, `{"amount":"150"}`, map[string]string{"Idempotency-Key": "k-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	got := engine.deposits[0]
	if got.IdempotencyKey != "k-1" || got.UserID != "u-1" || got.GameID != 1 || got.PlayerID != engine.player.ID {
		t.Fatalf("target %+v", got)
	}

	engine.depositErr = &game.Error{
		Kind:     game.KindPolicyViolation,
		Code:     game.CodeDepositCapExceeded,
		Message:  "deposit limit is $150.00",
		Metadata: map[string]string{"max": "$150.00"},
	}
	rec = do(t, s, http.MethodPost, "/v1/games/1/bank/deposit", token, `{"amount":151}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d want 409", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["code"] != string(game.CodeDepositCapExceeded) {
		t.Fatalf("body %+v", body)
	}
	if key := engine.deposits[1].IdempotencyKey; key == "" {
		t.Fatalf("missing idempotency key was not generated")
	}
}

func TestEconomyCallWithoutPlayer(t *testing.T) {
	engine := &fakeEngine{playerErr: game.ErrPlayerNotFound}
	s, v := newTestServer(t, engine)
	rec := do(t, s, http.MethodPost, "/v1/games/1/bank/withdraw", issue(t, v, auth.Identity{UserID: "u-1"}), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d want 404", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/v1/games/abc/bank/withdraw", issue(t, v, auth.Identity{UserID: "u-1"}), "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad game id status %d want 400", rec.Code)
	}
}

func TestUnknownGameIsNotFound(t *testing.T) {
	engine := &fakeEngine{playerErr: game.ErrGameNotFound}
	s, v := newTestServer(t, engine)
	rec := do(t, s, http.MethodGet, "/v1/games/999/player", issue(t, v, auth.Identity{UserID: "u-1"}), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d want 404", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != string(game.CodeGameNotFound) {
		t.Fatalf("body %+v", body)
	}
}

func TestWriteDomainError(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{})
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", game.ErrGameNotFound, http.StatusNotFound},
		{"validation", &game.Error{Kind: game.KindValidation, Code: game.CodeInvalidAmount}, http.StatusBadRequest},
		{"funds", &game.Error{Kind: game.KindInsufficientFunds, Code: game.CodeInsufficientCash}, http.StatusUnprocessableEntity},
		{"quantity", &game.Error{Kind: game.KindInsufficientQuantity}, http.StatusUnprocessableEntity},
		{"turns", &game.Error{Kind: game.KindInsufficientTurns}, http.StatusUnprocessableEntity},
		{"policy", &game.Error{Kind: game.KindPolicyViolation, Code: game.CodeBankNotEmpty}, http.StatusConflict},
		{"forbidden", &game.Error{Kind: game.KindPolicyViolation, Code: game.CodeForbidden}, http.StatusForbidden},
		{"conflict", game.ErrTxConflict, http.StatusConflict},
		{"partition missing", &game.Error{Kind: game.KindPartition, Code: game.CodePartitionMissing}, http.StatusGone},
		{"partition failed", &game.Error{Kind: game.KindPartition, Code: game.CodePartitionFailed}, http.StatusInternalServerError},
		{"plain", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeDomainError(rec, tc.err)
			if rec.Code != tc.want {
				t.Fatalf("status %d want %d", rec.Code, tc.want)
			}
			if strings.Contains(rec.Body.String(), "connection refused") {
				t.Fatalf("store error leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearerabc":    "",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q) = %q want %q", header, got, want)
		}
	}
}
