package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	vaultauth "github.com/vaultauth/vaultauth"
)

const refreshCookieName = "refreshToken"

// Handler serves the auth endpoints for one engine.
type Handler struct {
	engine     *vaultauth.Engine
	logger     *zap.Logger
	production bool
}

// NewHandler creates a Handler. production hardens the refresh cookie
// (Secure + SameSite=Strict); otherwise the cookie uses SameSite=Lax so
// local frontends on another port can use it.
func NewHandler(engine *vaultauth.Engine, logger *zap.Logger, production bool) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, logger: logger, production: production}
}

// Routes mounts the auth endpoints under /api/auth on r.
func (h *Handler) Routes(r *mux.Router) {
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/me", h.Me).Methods(http.MethodGet)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, vaultauth.ErrValidation)
		return
	}

	if _, err := h.engine.Register(r.Context(), req.Email, req.Password, req.Role); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "user registered"})
}

// Login handles POST /api/auth/login. The access token goes in the body and
// the refresh token into an HTTP-only cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, vaultauth.ErrInvalidCredentials)
		return
	}

	pair, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

// Logout handles POST /api/auth/logout with a bearer access token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		h.writeError(w, vaultauth.ErrUnauthenticated)
		return
	}

	if err := h.engine.Logout(r.Context(), token); err != nil {
		h.writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /api/auth/refresh using the refresh cookie.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		h.writeError(w, vaultauth.ErrUnauthenticated)
		return
	}

	pair, err := h.engine.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

// Me handles GET /api/auth/me, returning the full current user record for a
// valid bearer access token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		h.writeError(w, vaultauth.ErrUnauthenticated)
		return
	}

	user, err := h.engine.CurrentUser(r.Context(), token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*vaultauth.User{"user": user})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		MaxAge:   int(h.engine.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: sameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.production,
	})
}

// writeError maps engine errors to status codes without revealing which
// internal check failed.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vaultauth.ErrValidation),
		errors.Is(err, vaultauth.ErrUserExists),
		errors.Is(err, vaultauth.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": publicMessage(err)})
	case errors.Is(err, vaultauth.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
	case errors.Is(err, vaultauth.ErrTokenRevoked),
		errors.Is(err, vaultauth.ErrInvalidSignature),
		errors.Is(err, vaultauth.ErrTokenInvalid),
		errors.Is(err, vaultauth.ErrSessionMismatch):
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "invalid token"})
	case errors.Is(err, vaultauth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
	default:
		h.logger.Error("auth handler internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, vaultauth.ErrUserExists):
		return "user already exists"
	case errors.Is(err, vaultauth.ErrInvalidCredentials):
		return "invalid credentials"
	default:
		return "invalid input"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	return token, token != ""
}
