package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/auth"
)

type AuthHandler struct {
	Issuer       *auth.Issuer // nil disables auth
	PasswordHash string
	Session      func() string
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *AuthHandler) Enabled() bool {
	return a != nil && a.Issuer != nil && a.PasswordHash != ""
}

func (a *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.Enabled() {
		writeError(w, http.StatusNotFound, "auth disabled")
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Username == "" {
		req.Username = "admin"
	}
	if err := auth.CheckPassword(a.PasswordHash, req.Password); err != nil {
		log.Warn().Str("username", req.Username).Str("remote", r.RemoteAddr).Msg("view api login rejected")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	sid := ""
	if a.Session != nil {
		sid = a.Session()
	}
	token, err := a.Issuer.Generate(req.Username, sid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// bearer extracts the token from the Authorization header or, for browsers
// opening a WebSocket, the token query parameter.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid token when auth is enabled.
func (a *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		token := bearer(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if _, err := a.Issuer.Parse(token); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
