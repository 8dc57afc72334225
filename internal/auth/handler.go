package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/twingenie/twingenie/internal/sanitize"
	"github.com/twingenie/twingenie/internal/validate"
)

// Handler serves signup and login by delegating to a Provider.
type Handler struct {
	provider Provider
}

// NewHandler creates a Handler. A nil provider makes both endpoints answer
// 503, which is how dev mode runs without Supabase.
func NewHandler(provider Provider) *Handler {
	return &Handler{provider: provider}
}

// RegisterRoutes registers the public auth routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/v1/auth/signup", sanitize.RequestBody(validate.AuthInput(http.HandlerFunc(h.HandleSignup))))
	mux.Handle("POST /api/v1/auth/login", sanitize.RequestBody(validate.AuthInput(http.HandlerFunc(h.HandleLogin))))
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type providerCall func(ctx context.Context, email, password string) (*Session, error)

// HandleSignup registers a new user with the provider.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "auth provider not configured"})
		return
	}
	h.exchange(w, r, "signup", h.provider.SignUp, http.StatusCreated)
}

// HandleLogin exchanges credentials for a session.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "auth provider not configured"})
		return
	}
	h.exchange(w, r, "login", h.provider.SignIn, http.StatusOK)
}

func (h *Handler) exchange(w http.ResponseWriter, r *http.Request, op string, call providerCall, okStatus int) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request data"})
		return
	}

	session, err := call(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		slog.Error("auth provider call failed", "op", op, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "auth provider unavailable"})
		return
	}

	writeJSON(w, okStatus, session)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
