// Package voice accepts voice notes. Transcription happens elsewhere; this
// service only checks and acknowledges the upload.
package voice

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/sanitize"
	"github.com/twingenie/twingenie/internal/validate"
)

// Receipt acknowledges an accepted voice note.
type Receipt struct {
	Status   string `json:"status"`
	Source   string `json:"source"`
	Bytes    int64  `json:"bytes"`
	Filename string `json:"filename,omitempty"`
	Note     string `json:"note,omitempty"`
}

type Handler struct {
	audit audit.Logger
}

func NewHandler(auditLog audit.Logger) *Handler {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Handler{audit: auditLog}
}

// RegisterRoutes registers the voice route. Size is checked before the
// sanitizer buffers the body, and the base64 audio field is exempt from
// sanitizing since the text length cap would cut it.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	clean := sanitize.RequestBodyWith(
		sanitize.WithMaxBytes(validate.MaxVoiceBodyBytes),
		sanitize.SkipKeys("audio"),
	)
	mux.Handle("POST /api/v1/voice", validate.VoiceInput(clean(http.HandlerFunc(h.HandleUpload))))
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var receipt Receipt
	if r.MultipartForm != nil && len(r.MultipartForm.File["audio"]) > 0 {
		fh := r.MultipartForm.File["audio"][0]
		receipt = Receipt{Source: "file", Bytes: fh.Size, Filename: fh.Filename}
	} else {
		audio := inlineAudio(r)
		receipt = Receipt{Source: "inline", Bytes: decodedLen(audio)}
	}
	receipt.Status = "received"
	if body, ok := sanitize.BodyFromContext(r.Context()); ok {
		receipt.Note, _ = body["note"].(string)
	}

	h.audit.Log(r.Context(), audit.Event{
		UserID:       audit.ActorIDFromContext(r.Context()),
		Action:       audit.ActionVoiceReceived,
		ResourceType: "voice",
		Metadata:     map[string]any{audit.MetadataBytes: receipt.Bytes, "source": receipt.Source},
		Source:       audit.SourceAPI,
	})

	writeJSON(w, http.StatusAccepted, receipt)
}

func inlineAudio(r *http.Request) string {
	if r.MultipartForm != nil {
		if vals := r.MultipartForm.Value["audio"]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}
	if body, ok := sanitize.BodyFromContext(r.Context()); ok {
		audio, _ := body["audio"].(string)
		return audio
	}
	var body struct {
		Audio string `json:"audio"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body.Audio
}

// decodedLen is the payload size of base64 audio, or the raw length when
// the value is not base64.
func decodedLen(s string) int64 {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return int64(len(b))
	}
	return int64(len(s))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
