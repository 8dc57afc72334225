// Package profile holds the user's personality answers and subscription
// plan. The persona text derived from the answers feeds the chat prompt.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/sanitize"
	"github.com/twingenie/twingenie/internal/validate"
)

var ErrNotFound = errors.New("profile not found")

// Answer is one questionnaire response. Answer values are free-form JSON
// (a string, a number, or a list of choices).
type Answer struct {
	QuestionID any `json:"questionId"`
	Answer     any `json:"answer"`
}

type Profile struct {
	Plan        string    `json:"plan"`
	Persona     string    `json:"persona"`
	AnswerCount int       `json:"answer_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repository interface {
	SaveAnswers(ctx context.Context, userID string, answers []Answer, persona string) error
	SetPlan(ctx context.Context, userID, plan string) error
	Get(ctx context.Context, userID string) (Profile, error)
}

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
	mux.Handle("POST /api/v1/personality", sanitize.RequestBody(validate.PersonalityAnswers(http.HandlerFunc(h.HandleSubmitPersonality))))
	mux.Handle("PUT /api/v1/subscription", sanitize.RequestBody(validate.SubscriptionInput(http.HandlerFunc(h.HandleSetSubscription))))
	mux.HandleFunc("GET /api/v1/profile", h.HandleGetProfile)
}

func (h *Handler) HandleSubmitPersonality(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Answers []Answer `json:"answers"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request data"})
		return
	}

	persona := Persona(req.Answers)
	if err := h.repo.SaveAnswers(r.Context(), identity.UserID, req.Answers, persona); err != nil {
		slog.Error("saving personality failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save answers"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		UserID:       audit.ActorIDFromContext(r.Context()),
		Action:       audit.ActionPersonalitySubmitted,
		ResourceType: "profile",
		Metadata:     map[string]any{"answers": len(req.Answers)},
		Source:       audit.SourceAPI,
	})

	writeJSON(w, http.StatusOK, map[string]any{"persona": persona, "answer_count": len(req.Answers)})
}

func (h *Handler) HandleSetSubscription(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request data"})
		return
	}
	plan := strings.ToLower(strings.TrimSpace(req.Plan))

	if err := h.repo.SetPlan(r.Context(), identity.UserID, plan); err != nil {
		slog.Error("saving plan failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update subscription"})
		return
	}

	h.audit.Log(r.Context(), audit.Event{
		UserID:       audit.ActorIDFromContext(r.Context()),
		Action:       audit.ActionSubscriptionChanged,
		ResourceType: "profile",
		Metadata:     map[string]any{audit.MetadataPlan: plan},
		Source:       audit.SourceAPI,
	})

	writeJSON(w, http.StatusOK, map[string]string{"plan": plan})
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	p, err := h.repo.Get(r.Context(), identity.UserID)
	if errors.Is(err, ErrNotFound) {
		p = Profile{Plan: "free"}
	} else if err != nil {
		slog.Error("loading profile failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Persona renders answers as prompt text, one "question: answer" line each.
func Persona(answers []Answer) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		lines = append(lines, fmt.Sprintf("- %s: %s", renderValue(a.QuestionID), renderValue(a.Answer)))
	}
	return strings.Join(lines, "\n")
}

func renderValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, renderValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
