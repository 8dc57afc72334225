package mood

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/sanitize"
	"github.com/twingenie/twingenie/internal/validate"
)

// Entry is one logged mood.
type Entry struct {
	ID        string    `json:"id"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note"`
	Custom    bool      `json:"custom"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, userID string, e Entry) (Entry, error)
	List(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
}

// Handler serves the mood journal.
type Handler struct {
	repo  Repository
	audit audit.Logger
}

func NewHandler(repo Repository, auditLog audit.Logger) *Handler {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Handler{repo: repo, audit: auditLog}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/v1/mood", sanitize.RequestBody(validate.MoodInput(http.HandlerFunc(h.HandleLog))))
	mux.Handle("GET /api/v1/mood", validate.Pagination(http.HandlerFunc(h.HandleList)))
}

// HandleLog stores a mood entry. Moods outside the built-in vocabulary are
// kept and flagged as custom.
func (h *Handler) HandleLog(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Mood string `json:"mood"`
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request data"})
		return
	}

	entry := Entry{
		Mood:   strings.ToLower(strings.TrimSpace(req.Mood)),
		Note:   strings.TrimSpace(req.Note),
		Custom: !validate.IsKnownMood(req.Mood),
	}

	saved, err := h.repo.Insert(r.Context(), identity.UserID, entry)
	if err != nil {
		slog.Error("saving mood failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save mood"})
		return
	}

	actor := audit.ActorIDFromContext(r.Context())
	meta := map[string]any{audit.MetadataMood: saved.Mood}
	h.audit.Log(r.Context(), audit.Event{UserID: actor, Action: audit.ActionMoodLogged, ResourceType: "mood", Metadata: meta, Source: audit.SourceAPI})
	if saved.Custom {
		h.audit.Log(r.Context(), audit.Event{UserID: actor, Action: audit.ActionMoodCustom, ResourceType: "mood", Metadata: meta, Source: audit.SourceAPI})
	}

	writeJSON(w, http.StatusCreated, saved)
}

// HandleList returns a page of the caller's moods, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	page := validate.PageFromContext(r.Context())
	entries, err := h.repo.List(r.Context(), identity.UserID, page.Limit, page.Offset)
	if err != nil {
		slog.Error("listing moods failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"moods": entries,
		"count": len(entries),
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
