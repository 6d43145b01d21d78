package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/tap-to-earn/internal/auth"
	"github.com/sakif/tap-to-earn/internal/model"
	"github.com/sakif/tap-to-earn/internal/service"
)

// AuthHandler serves the session flow: exchange launch data for a JWT once,
// then use the token for authenticated reads like /api/me.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		logger: logger,
	}
}

type loginRequest struct {
	InitData string `json:"init_data"`
	Platform string `json:"platform"`
}

type loginResponse struct {
	Token  string      `json:"token"`
	User   *model.User `json:"user"`
	Points int64       `json:"points"`
}

// HandleLogin verifies launch data, upserts the user and issues a session
// token.
//
// HTTP: POST /api/auth
// Body: {"init_data": "...", "platform": "ios"}
//
// Responses mirror /api/tap for the verification part; success is
// {"token": "...", "user": {...}, "points": n}.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid auth request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body must be JSON",
		})
		return
	}

	result, err := h.auth.Login(r.Context(), req.InitData, req.Platform, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:  result.Token,
		User:   result.User,
		Points: result.User.Points,
	})
}

// HandleMe returns the authenticated user's stored profile.
//
// HTTP: GET /api/me (behind auth.RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := auth.TelegramIDFromContext(r.Context())
	if !ok {
		// RequireAuth should have stopped the request already; treat a bare
		// context as unauthenticated rather than panicking.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid session token required",
		})
		return
	}

	user, err := h.auth.Profile(r.Context(), telegramID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
