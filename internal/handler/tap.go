// Package handler is the HTTP layer: it parses requests, delegates to the
// services and shapes JSON responses. No business rules live here.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/tap-to-earn/internal/apperror"
	"github.com/sakif/tap-to-earn/internal/service"
)

// TapHandler serves the tap, balance and leaderboard endpoints.
type TapHandler struct {
	auth   *service.AuthService
	taps   *service.TapService
	logger *slog.Logger
}

// NewTapHandler creates a TapHandler.
func NewTapHandler(auth *service.AuthService, taps *service.TapService, logger *slog.Logger) *TapHandler {
	return &TapHandler{
		auth:   auth,
		taps:   taps,
		logger: logger,
	}
}

// tapRequest is the POST /api/tap body. init_data is the raw launch-data
// string from window.Telegram.WebApp.initData; platform is optional client
// metadata.
type tapRequest struct {
	InitData string `json:"init_data"`
	Platform string `json:"platform"`
}

type pointsResponse struct {
	Points int64 `json:"points"`
}

// HandleTap verifies the launch data and records one tap.
//
// HTTP: POST /api/tap
// Body: {"init_data": "...", "platform": "android"}
//
// Responses: 200 {"points":n}, 400 bad body / missing init_data,
// 403 forged signature, 429 rate-limited, 500 missing bot token.
func (h *TapHandler) HandleTap(w http.ResponseWriter, r *http.Request) {
	var req tapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid tap request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body must be JSON",
		})
		return
	}

	identity, err := h.auth.Identify(req.InitData)
	if err != nil {
		writeError(w, err)
		return
	}

	points, err := h.taps.RecordTap(r.Context(), identity, req.Platform, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pointsResponse{Points: points})
}

// HandleBalance returns a user's point total.
//
// HTTP: GET /api/balance?telegram_id=42
//
// Unknown users get {"points":0} — zero-state, not an error. The balance is
// public (points are shown on leaderboards anyway), so no auth here.
func (h *TapHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("telegram_id")
	if raw == "" {
		writeError(w, apperror.ValidationFailed("telegram_id", "telegram_id is required"))
		return
	}
	telegramID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, apperror.ValidationFailed("telegram_id", "telegram_id must be an integer"))
		return
	}

	points, err := h.taps.Balance(r.Context(), telegramID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pointsResponse{Points: points})
}

// leaderboardEntry is one row of the public leaderboard. Deliberately a
// subset of model.User — platform and activity timestamps stay private.
type leaderboardEntry struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	Points     int64  `json:"points"`
}

// HandleLeaderboard returns the top users by points.
//
// HTTP: GET /api/leaderboard?limit=10
func (h *TapHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "limit must be an integer"))
			return
		}
		limit = n
	}

	users, err := h.taps.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]leaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, leaderboardEntry{
			TelegramID: u.TelegramID,
			Username:   u.Username,
			FirstName:  u.FirstName,
			Points:     u.Points,
		})
	}

	writeJSON(w, http.StatusOK, entries)
}
