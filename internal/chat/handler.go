package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/sanitize"
	"github.com/twingenie/twingenie/internal/validate"
)

// TokenValidator validates a raw JWT string and returns the identity.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Identity, error)
}

type HandlerConfig struct {
	Service *Service
	// Tokens authenticates websocket upgrades, which carry the token as a
	// query parameter.
	Tokens TokenValidator
	// DevIdentity, when set, is used for websocket upgrades with
	// access_token=dev.
	DevIdentity *auth.Identity
	// WSAllowedOrigins restricts websocket upgrade origins.
	WSAllowedOrigins []string
}

// Handler serves the chat endpoints.
type Handler struct {
	svc *Service
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{svc: cfg.Service, cfg: cfg}
}

// RegisterRoutes registers the authenticated chat routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/v1/chat", sanitize.RequestBody(validate.ChatMessage(http.HandlerFunc(h.HandleChat))))
	mux.Handle("GET /api/v1/chat/history", validate.Pagination(http.HandlerFunc(h.HandleHistory)))
}

// RegisterPublicRoutes registers routes that authenticate themselves.
func (h *Handler) RegisterPublicRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/chat/ws", h.HandleWebSocket)
}

// HandleChat answers one chat turn.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request data"})
		return
	}

	resp, err := h.svc.Reply(r.Context(), identity.UserID, req, audit.SourceAPI)
	if err != nil {
		if errors.Is(err, ErrInvalidMode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid chat mode"})
			return
		}
		slog.Error("chat reply failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHistory returns a page of the caller's conversation, newest first.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	page := validate.PageFromContext(r.Context())
	messages, err := h.svc.History(r.Context(), identity.UserID, page.Limit, page.Offset)
	if err != nil {
		slog.Error("loading chat history failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
		"page":     page.Page,
		"limit":    page.Limit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
