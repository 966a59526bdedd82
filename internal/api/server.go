package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"syndicate/internal/auth"
	"syndicate/internal/config"
	"syndicate/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine is the part of game.Service the HTTP layer drives.
type Engine interface {
	CreateGame(ctx context.Context, in game.CreateGameInput) (game.Game, error)
	DeleteGame(ctx context.Context, gameID int64) error
	GetGame(ctx context.Context, gameID int64) (game.Game, error)
	ListGames(ctx context.Context, status string) ([]game.Game, error)
	EnsureUser(ctx context.Context, userID, username string) error
	GetUser(ctx context.Context, userID string) (game.User, error)
	GrantAccountTurns(ctx context.Context, userID string, amount int64) (game.User, error)
	JoinGame(ctx context.Context, in game.JoinGameInput) (game.Player, error)
	PlayerForUser(ctx context.Context, gameID int64, userID string) (game.Player, error)
	UserPlayers(ctx context.Context, userID string) ([]game.Player, error)

	Withdraw(ctx context.Context, t game.Target) (game.Balances, error)
	Deposit(ctx context.Context, t game.Target, amount decimal.Decimal) (game.Balances, error)
	ListResources(ctx context.Context, t game.Target, typeFilter string) ([]game.MarketResource, error)
	Buy(ctx context.Context, t game.Target, resourceID, quantity int64) (game.TradeResult, error)
	Sell(ctx context.Context, t game.Target, resourceID, quantity int64) (game.TradeResult, error)
	ListPersonnel(ctx context.Context, t game.Target) ([]game.PersonnelResource, error)
	Recruit(ctx context.Context, t game.Target, resourceIDs []int64, turns int64) (game.RecruitResult, error)
	Divest(ctx context.Context, t game.Target, resourceID, quantity int64) (game.DivestResult, error)
	ReserveToActive(ctx context.Context, t game.Target, amount int64) (game.Player, error)
	AccountToReserve(ctx context.Context, t game.Target, amount int64) (game.AccountTransferResult, error)
}

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID   string
	Username string
	Admin    bool
}

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	auth *auth.Verifier
	game Engine
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, verifier *auth.Verifier, engine Engine) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		auth: verifier,
		game: engine,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	limit := s.cfg.RateLimitPerMinute
	if limit <= 0 {
		limit = 120
	}

	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(limit, time.Minute))
		r.Use(jwtauth.Verifier(s.auth.JWTAuth()))
		r.Use(s.authMiddleware)

		r.Get("/me", s.handleMe)
		r.Get("/players", s.handlePlayers)
		r.Get("/games", s.handleGamesList)

		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/", s.handleGameDetail)
			r.Post("/join", s.handleJoin)
			r.Get("/player", s.handlePlayer)

			r.Post("/bank/withdraw", s.handleWithdraw)
			r.Post("/bank/deposit", s.handleDeposit)

			r.Get("/market", s.handleMarketList)
			r.Post("/market/{resourceID}/buy", s.handleBuy)
			r.Post("/market/{resourceID}/sell", s.handleSell)

			r.Get("/personnel", s.handlePersonnelList)
			r.Post("/personnel/recruit", s.handleRecruit)
			r.Post("/personnel/{resourceID}/divest", s.handleDivest)

			r.Post("/turns/activate", s.handleActivateTurns)
			r.Post("/turns/reserve", s.handleReserveTurns)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/games", s.handleCreateGame)
			r.Delete("/games/{gameID}", s.handleDeleteGame)
			r.Post("/users/{userID}/turns", s.handleGrantTurns)
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// authMiddleware runs after jwtauth.Verifier and turns the verified token
// into a UserContext.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r.Header.Get("Authorization")) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := auth.FromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID:   id.UserID,
			Username: id.Username,
			Admin:    id.Admin,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := userFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !user.Admin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

// target resolves the caller's player in the game named by the path. It
// writes the error response itself and reports false on failure.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (game.Target, bool) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return game.Target{}, false
	}
	gameID, err := pathInt64(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return game.Target{}, false
	}
	p, err := s.game.PlayerForUser(r.Context(), gameID, user.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return game.Target{}, false
	}
	return game.Target{
		GameID:         gameID,
		PlayerID:       p.ID,
		UserID:         user.UserID,
		IdempotencyKey: idempotencyKey(r),
	}, true
}

// writeDomainError maps game error kinds to statuses. Store causes stay in
// the log.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var de *game.Error
	if !errors.As(err, &de) {
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	status := http.StatusInternalServerError
	switch de.Kind {
	case game.KindNotFound:
		status = http.StatusNotFound
	case game.KindValidation:
		status = http.StatusBadRequest
	case game.KindInsufficientFunds, game.KindInsufficientQuantity, game.KindInsufficientTurns:
		status = http.StatusUnprocessableEntity
	case game.KindPolicyViolation:
		status = http.StatusConflict
		if de.Code == game.CodeForbidden {
			status = http.StatusForbidden
		}
	case game.KindConflict:
		status = http.StatusConflict
	case game.KindPartition:
		if de.Code == game.CodePartitionMissing {
			status = http.StatusGone
		}
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "err", err, "code", de.Code)
	}
	body := map[string]any{
		"error": strings.TrimSpace(de.Message),
		"code":  de.Code,
	}
	if len(de.Metadata) > 0 {
		body["metadata"] = de.Metadata
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}
