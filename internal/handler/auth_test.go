package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/tap-to-earn/internal/auth"
	"github.com/sakif/tap-to-earn/internal/handler"
)

func postLogin(t *testing.T, env *testEnv, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.authHandler.HandleLogin(rr, req)
	return rr
}

func TestHandleLogin(t *testing.T) {
	env := newTestEnv(t, testBotToken)

	rr := postLogin(t, env, tapBody(t, signedInitData(t, 42)))

	assert.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		Token  string `json:"token"`
		Points int64  `json:"points"`
		User   struct {
			TelegramID int64  `json:"telegram_id"`
			Username   string `json:"username"`
		} `json:"user"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(42), res.User.TelegramID)
	assert.Equal(t, "tapper42", res.User.Username)
	assert.Equal(t, int64(0), res.Points)
}

func TestHandleLogin_ForgedSignature(t *testing.T) {
	env := newTestEnv(t, testBotToken)

	rr := postLogin(t, env, `{"init_data":"user=%7B%22id%22%3A42%7D&auth_date=1&hash=deadbeef"}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	var res handler.ErrorResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "auth_error", res.Error)
}

// TestHandleMe exercises the full session flow: login, then read the profile
// back through the auth middleware with the issued token.
func TestHandleMe(t *testing.T) {
	env := newTestEnv(t, testBotToken)

	login := postLogin(t, env, tapBody(t, signedInitData(t, 42)))
	assert.Equal(t, http.StatusOK, login.Code)
	var loginRes struct {
		Token string `json:"token"`
	}
	assert.NoError(t, json.NewDecoder(login.Body).Decode(&loginRes))

	protected := auth.RequireAuth(env.tokens)(http.HandlerFunc(env.authHandler.HandleMe))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginRes.Token)
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		TelegramID int64  `json:"telegram_id"`
		Username   string `json:"username"`
		Points     int64  `json:"points"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&me))
	assert.Equal(t, int64(42), me.TelegramID)
	assert.Equal(t, "tapper42", me.Username)
}

func TestHandleMe_NoToken(t *testing.T) {
	env := newTestEnv(t, testBotToken)

	protected := auth.RequireAuth(env.tokens)(http.HandlerFunc(env.authHandler.HandleMe))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
