package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"syndicate/internal/game"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.game.EnsureUser(r.Context(), user.UserID, user.Username); err != nil {
		s.writeDomainError(w, err)
		return
	}
	out, err := s.game.GetUser(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.UserPlayers(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": out})
}

func (s *Server) handleGamesList(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	out, err := s.game.ListGames(r.Context(), status)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": out})
}

func (s *Server) handleGameDetail(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathInt64(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	out, err := s.game.GetGame(r.Context(), gameID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathInt64(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var in game.JoinGameInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.GameID = gameID
	in.UserID = user.UserID
	in.Username = user.Username
	out, err := s.game.JoinGame(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathInt64(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	out, err := s.game.PlayerForUser(r.Context(), gameID, user.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.Withdraw(r.Context(), t)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.Deposit(r.Context(), t, in.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarketList(w http.ResponseWriter, r *http.Request) {
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.ListResources(r.Context(), t, strings.TrimSpace(r.URL.Query().Get("type")))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": out})
}

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, s.game.Buy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, s.game.Sell)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, trade func(ctx context.Context, t game.Target, resourceID, quantity int64) (game.TradeResult, error)) {
	resourceID, err := pathInt64(r, "resourceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resource id")
		return
	}
	var in quantityRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := trade(r.Context(), t, resourceID, in.Quantity)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePersonnelList(w http.ResponseWriter, r *http.Request) {
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.ListPersonnel(r.Context(), t)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"personnel": out})
}

func (s *Server) handleRecruit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ResourceIDs []int64 `json:"resource_ids"`
		Turns       int64   `json:"turns"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.Recruit(r.Context(), t, in.ResourceIDs, in.Turns)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDivest(w http.ResponseWriter, r *http.Request) {
	resourceID, err := pathInt64(r, "resourceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resource id")
		return
	}
	var in quantityRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.Divest(r.Context(), t, resourceID, in.Quantity)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleActivateTurns(w http.ResponseWriter, r *http.Request) {
	var in amountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.ReserveToActive(r.Context(), t, in.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReserveTurns(w http.ResponseWriter, r *http.Request) {
	var in amountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, ok := s.target(w, r)
	if !ok {
		return
	}
	out, err := s.game.AccountToReserve(r.Context(), t, in.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in game.CreateGameInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateGame(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathInt64(r, "gameID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	if err := s.game.DeleteGame(r.Context(), gameID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGrantTurns(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var in amountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.GrantAccountTurns(r.Context(), userID, in.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
