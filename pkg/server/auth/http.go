package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dermacost-ai/platform/pkg/common/logger"
)

const stateCookie = "oidc_state"

// HTTPHandler implements the browser half of the admin login: /auth/login
// redirects to the issuer, /auth/callback trades the code for a token the
// operator then presents as a Bearer header.
type HTTPHandler struct {
	authenticator *OIDCAuthenticator
}

func NewHTTPHandler(authenticator *OIDCAuthenticator) *HTTPHandler {
	return &HTTPHandler{authenticator: authenticator}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodGet)
	router.HandleFunc("/auth/callback", h.handleCallback).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		logger.Log.WithError(err).Error("failed to generate login state")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.authenticator.AuthCodeURL(state), http.StatusFound)
}

func (h *HTTPHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	token, err := h.authenticator.Exchange(r.Context(), code)
	if err != nil {
		logger.Log.WithError(err).Warn("authorization code exchange failed")
		http.Error(w, "code exchange failed", http.StatusUnauthorized)
		return
	}

	// Clear the one-shot state cookie.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_at":   token.Expiry,
	})
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
