package audit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/twingenie/twingenie/internal/platform/database"
	"github.com/twingenie/twingenie/internal/validate"
)

// Handler serves the caller's activity feed.
type Handler struct {
	db    database.Querier
	store *Store
}

// NewHandler creates an audit query handler.
func NewHandler(db database.Querier, store *Store) *Handler {
	return &Handler{db: db, store: store}
}

// RegisterRoutes registers the activity route on the given mux. The mux is
// expected to sit behind auth middleware.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/v1/activity", validate.Pagination(http.HandlerFunc(h.HandleListActivity)))
}

// HandleListActivity returns the caller's own audit events.
// GET /api/v1/activity?page=1&limit=20&action=mood.custom
func (h *Handler) HandleListActivity(w http.ResponseWriter, r *http.Request) {
	userID := ActorIDFromContext(r.Context())
	if userID == nil {
		writeAuditJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	page := validate.PageFromContext(r.Context())

	if h.db == nil {
		writeAuditJSON(w, http.StatusOK, map[string]any{"events": []any{}, "count": 0, "page": page.Page, "limit": page.Limit})
		return
	}

	params := ListEventsParams{UserID: *userID, Limit: page.Limit, Offset: page.Offset}
	if action := strings.TrimSpace(r.URL.Query().Get("action")); action != "" {
		params.Action = &action
	}

	events, err := h.store.List(r.Context(), h.db, params)
	if err != nil {
		slog.Error("listing activity failed", "error", err)
		writeAuditJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	writeAuditJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
		"page":   page.Page,
		"limit":  page.Limit,
	})
}

func writeAuditJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
