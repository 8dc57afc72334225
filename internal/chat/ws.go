package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/sanitize"
	"github.com/twingenie/twingenie/internal/validate"
)

// wsServerMessage is the JSON shape the server sends to clients.
type wsServerMessage struct {
	Type  string    `json:"type"`
	Reply *Response `json:"reply,omitempty"`
	Error string    `json:"error,omitempty"`
}

// wsIdleTimeout is the maximum time the server waits for a client message
// before closing an idle connection. Resets on each received message.
const wsIdleTimeout = 10 * time.Minute

const wsReadLimit = 1 << 20

// HandleWebSocket upgrades to a websocket carrying chat turns. Auth is via
// the access_token query parameter since browsers cannot set headers on
// the upgrade request.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, status, msg := h.authenticateUpgrade(r)
	if identity == nil {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	ctx := auth.WithIdentity(r.Context(), identity)

	acceptOpts := &websocket.AcceptOptions{}
	if len(h.cfg.WSAllowedOrigins) > 0 {
		acceptOpts.OriginPatterns = h.cfg.WSAllowedOrigins
	}
	conn, err := websocket.Accept(w, r, acceptOpts)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	conn.SetReadLimit(wsReadLimit)

	h.serveTurns(ctx, conn, identity.UserID)
}

func (h *Handler) authenticateUpgrade(r *http.Request) (*auth.Identity, int, string) {
	rawToken := r.URL.Query().Get("access_token")
	if rawToken == "" {
		return nil, http.StatusUnauthorized, "missing access_token"
	}
	if rawToken == "dev" && h.cfg.DevIdentity != nil {
		return h.cfg.DevIdentity, 0, ""
	}
	if h.cfg.Tokens == nil {
		return nil, http.StatusUnauthorized, "invalid token"
	}

	identity, err := h.cfg.Tokens.ValidateToken(rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, http.StatusUnauthorized, "token expired"
		}
		return nil, http.StatusUnauthorized, "invalid token"
	}
	if identity.UserID == "" || identity.Role != auth.RoleAuthenticated {
		return nil, http.StatusUnauthorized, "user token required"
	}
	return identity, 0, ""
}

// serveTurns handles one turn at a time. Each inbound frame goes through
// the same sanitize and validate steps as the HTTP endpoint.
func (h *Handler) serveTurns(ctx context.Context, conn *websocket.Conn, userID string) {
	for {
		readCtx, readCancel := context.WithTimeout(ctx, wsIdleTimeout)
		var raw map[string]any
		err := wsjson.Read(readCtx, conn, &raw)
		readCancel()
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}

		body, err := sanitize.Map(raw)
		if err != nil {
			_ = wsjson.Write(ctx, conn, wsServerMessage{Type: "error", Error: "Invalid request data"})
			continue
		}
		if err := validate.CheckChatMessage(body); err != nil {
			_ = wsjson.Write(ctx, conn, wsServerMessage{Type: "error", Error: err.Error()})
			continue
		}

		req := Request{Message: body["message"].(string)}
		req.Mode, _ = body["mode"].(string)
		req.Emotion, _ = body["emotion"].(string)

		resp, err := h.svc.Reply(ctx, userID, req, audit.SourceWebSocket)
		if err != nil {
			msg := "internal error"
			if errors.Is(err, ErrInvalidMode) {
				msg = "Invalid chat mode"
			}
			_ = wsjson.Write(ctx, conn, wsServerMessage{Type: "error", Error: msg})
			continue
		}

		if err := wsjson.Write(ctx, conn, wsServerMessage{Type: "reply", Reply: &resp}); err != nil {
			return
		}
	}
}
