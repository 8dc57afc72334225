package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/twingenie/twingenie/internal/auth"
)

// Event represents a single auditable action in the system.
type Event struct {
	UserID       *uuid.UUID // nil for system events
	Action       string     // e.g. "chat.message_sent", "mood.custom"
	ResourceType string     // e.g. "chat", "mood", "profile"
	Metadata     map[string]any
	Source       string // "api", "ws", "system"
}

const (
	ActionChatMessageSent      = "chat.message_sent"
	ActionChatFallback         = "chat.fallback"
	ActionMoodLogged           = "mood.logged"
	ActionMoodCustom           = "mood.custom"
	ActionPersonalitySubmitted = "personality.submitted"
	ActionSubscriptionChanged  = "subscription.changed"
	ActionVoiceReceived        = "voice.received"
)

const (
	SourceAPI       = "api"
	SourceWebSocket = "ws"
)

const (
	MetadataRequestID = "request_id"
	MetadataMode      = "mode"
	MetadataMood      = "mood"
	MetadataPlan      = "plan"
	MetadataBytes     = "bytes"
)

// Logger is the audit logging interface. Log is fire-and-forget.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// NopLogger is a no-op audit logger for testing and when audit is disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }

// ActorIDFromContext extracts the authenticated user's UUID from the
// request context, returning nil if no identity is present or the
// user ID is not a valid UUID.
func ActorIDFromContext(ctx context.Context) *uuid.UUID {
	identity := auth.GetIdentity(ctx)
	if identity == nil {
		return nil
	}
	uid, err := uuid.Parse(identity.UserID)
	if err != nil {
		return nil
	}
	return &uid
}
