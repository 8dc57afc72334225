// Package chat produces the twin's replies: it assembles the conversation
// for the language model, runs the tone pipeline over the answer, and falls
// back to canned responses when the model is unavailable.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/llm"
	"github.com/twingenie/twingenie/internal/tone"
)

var ErrInvalidMode = errors.New("invalid chat mode")

// Request is one user turn.
type Request struct {
	Message string `json:"message"`
	Mode    string `json:"mode,omitempty"`
	Emotion string `json:"emotion,omitempty"`
}

// Response is the twin's answer to one turn.
type Response struct {
	Reply    string         `json:"reply"`
	Mode     llm.Mode       `json:"mode"`
	Fallback bool           `json:"fallback"`
	Slang    tone.Detection `json:"slang"`
}

// StoredMessage is a persisted turn as returned by history.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists conversations. Store is the Postgres implementation.
type Repository interface {
	Persona(ctx context.Context, userID string) (string, error)
	Recent(ctx context.Context, userID string, n int) ([]llm.Message, error)
	Append(ctx context.Context, userID string, mode llm.Mode, turns ...llm.Message) error
	History(ctx context.Context, userID string, limit, offset int) ([]StoredMessage, error)
}

type ServiceConfig struct {
	// Intensity is passed to tone.Engine.Convert in genz mode.
	Intensity string
	// HistorySize is how many earlier turns are sent to the model.
	HistorySize int
	// Timeout bounds a single completion call. Zero means no extra bound.
	Timeout time.Duration
}

// Service answers chat turns.
type Service struct {
	repo      Repository
	completer llm.Completer
	engine    *tone.Engine
	audit     audit.Logger
	cfg       ServiceConfig
}

func NewService(repo Repository, completer llm.Completer, engine *tone.Engine, auditLog audit.Logger, cfg ServiceConfig) *Service {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	if engine == nil {
		engine = tone.New()
	}
	return &Service{repo: repo, completer: completer, engine: engine, audit: auditLog, cfg: cfg}
}

// Reply answers req for userID. The only error it returns is
// ErrInvalidMode; storage and model failures degrade instead.
func (s *Service) Reply(ctx context.Context, userID string, req Request, source string) (Response, error) {
	mode, ok := llm.ParseMode(req.Mode)
	if !ok {
		return Response{}, ErrInvalidMode
	}

	detection := tone.Detect(req.Message)
	resp := Response{Mode: mode, Slang: detection}

	answer, err := s.complete(ctx, userID, mode, req.Message)
	if err != nil {
		slog.Warn("chat completion failed, using fallback", "error", err, "mode", mode)
		resp.Reply = s.engine.Generate(req.Emotion)
		resp.Fallback = true
		s.audit.Log(ctx, audit.Event{
			UserID:       audit.ActorIDFromContext(ctx),
			Action:       audit.ActionChatFallback,
			ResourceType: "chat",
			Metadata:     map[string]any{audit.MetadataMode: string(mode)},
			Source:       source,
		})
	} else {
		resp.Reply = s.applyTone(mode, req, detection, answer)
	}

	if s.repo != nil {
		err := s.repo.Append(ctx, userID, mode,
			llm.Message{Role: llm.RoleUser, Content: req.Message},
			llm.Message{Role: llm.RoleAssistant, Content: resp.Reply},
		)
		if err != nil {
			slog.Error("persisting chat turn failed", "error", err)
		}
	}

	s.audit.Log(ctx, audit.Event{
		UserID:       audit.ActorIDFromContext(ctx),
		Action:       audit.ActionChatMessageSent,
		ResourceType: "chat",
		Metadata: map[string]any{
			audit.MetadataMode: string(mode),
			"fallback":         resp.Fallback,
			"slang":            detection.IsSlangStyle,
		},
		Source: source,
	})

	return resp, nil
}

func (s *Service) complete(ctx context.Context, userID string, mode llm.Mode, message string) (string, error) {
	if s.completer == nil {
		return "", errors.New("no completer configured")
	}

	var (
		persona string
		history []llm.Message
	)
	if s.repo != nil {
		var err error
		if persona, err = s.repo.Persona(ctx, userID); err != nil {
			slog.Warn("loading persona failed", "error", err)
		}
		if s.cfg.HistorySize > 0 {
			if history, err = s.repo.Recent(ctx, userID, s.cfg.HistorySize); err != nil {
				slog.Warn("loading chat history failed", "error", err)
			}
		}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: llm.SystemPrompt(mode, persona)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.completer.Complete(ctx, messages)
}

// applyTone mirrors the user's register. Casual modes add flair, and genz
// mode converts further, but only when the user wrote in slang and is not
// in a sensitive emotional state.
func (s *Service) applyTone(mode llm.Mode, req Request, detection tone.Detection, answer string) string {
	out := s.engine.Mirror(req.Message, answer)
	if mode.Casual() {
		out = s.engine.AddFlair(out, tone.FlairContext{UserMessage: req.Message, Emotion: req.Emotion})
	}
	if mode == llm.ModeGenZ && detection.IsSlangStyle && !tone.IsSensitive(req.Emotion) {
		out = s.engine.Convert(out, s.cfg.Intensity)
	}
	return out
}

// History returns a page of the user's stored turns, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]StoredMessage, error) {
	if s.repo == nil {
		return []StoredMessage{}, nil
	}
	return s.repo.History(ctx, userID, limit, offset)
}
