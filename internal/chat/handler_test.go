package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/chat"
	"github.com/twingenie/twingenie/internal/tone"
)

const testSecret = "test-signing-key-must-be-32-chars!!"

func newChatMux(svc *chat.Service, tokens chat.TokenValidator) *http.ServeMux {
	h := chat.NewHandler(chat.HandlerConfig{Service: svc, Tokens: tokens})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	h.RegisterPublicRoutes(mux)
	return mux
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(userCtx())
}

func TestHandleChat(t *testing.T) {
	svc := chat.NewService(&memoryRepo{}, &fakeCompleter{reply: "I understand your pain"}, tone.New(), nil, chat.ServiceConfig{})
	mux := newChatMux(svc, nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/chat", `{"message":"ngl fr that's rough"}`))

	require.Equal(t, http.StatusOK, w.Code)
	var resp chat.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "I feel you your pain fr", resp.Reply)
	assert.Equal(t, "supportive", string(resp.Mode))
	assert.True(t, resp.Slang.IsSlangStyle)
	assert.InDelta(t, 0.4, resp.Slang.Confidence, 1e-9)
}

func TestHandleChat_SanitizesMessage(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	svc := chat.NewService(nil, completer, tone.New(), nil, chat.ServiceConfig{})
	mux := newChatMux(svc, nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/chat", `{"message":"<script>alert(1)</script>hello <b>twin</b>"}`))

	require.Equal(t, http.StatusOK, w.Code)
	last := completer.got[len(completer.got)-1]
	assert.Equal(t, "hello twin", last.Content)
}

func TestHandleChat_ValidationErrors(t *testing.T) {
	svc := chat.NewService(nil, &fakeCompleter{reply: "ok"}, tone.New(), nil, chat.ServiceConfig{})
	mux := newChatMux(svc, nil)

	tests := []struct {
		body string
		want string
	}{
		{`{}`, "Message is required"},
		{`{"message":"   "}`, "Message cannot be empty"},
		{`{"message":"hi","mode":"pirate"}`, "Invalid chat mode"},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/chat", tc.body))

		assert.Equal(t, http.StatusBadRequest, w.Code, tc.want)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tc.want, resp["error"])
	}
}

func TestHandleChat_NoIdentity(t *testing.T) {
	svc := chat.NewService(nil, &fakeCompleter{reply: "ok"}, tone.New(), nil, chat.ServiceConfig{})
	mux := newChatMux(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleHistory(t *testing.T) {
	repo := &memoryRepo{}
	svc := chat.NewService(repo, &fakeCompleter{reply: "answer"}, tone.New(), nil, chat.ServiceConfig{})
	for _, m := range []string{"one", "two", "three"} {
		_, err := svc.Reply(userCtx(), testUserID, chat.Request{Message: m}, "api")
		require.NoError(t, err)
	}
	mux := newChatMux(svc, nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/chat/history?limit=2&page=2", ""))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []chat.StoredMessage `json:"messages"`
		Count    int                  `json:"count"`
		Page     int                  `json:"page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Page)
	// Six stored turns, newest first; page 2 of size 2 skips the latest exchange.
	assert.Equal(t, "answer", resp.Messages[0].Content)
	assert.Equal(t, "two", resp.Messages[1].Content)
}

func TestHandleHistory_BadPagination(t *testing.T) {
	svc := chat.NewService(nil, nil, nil, nil, chat.ServiceConfig{})
	mux := newChatMux(svc, nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/chat/history?page=0", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid page number")
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws?access_token=" + token
}

func TestWebSocket_ChatTurns(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, "authenticated", 1)
	token, err := tokens.CreateAccessToken(&auth.Identity{UserID: testUserID})
	require.NoError(t, err)

	svc := chat.NewService(nil, &fakeCompleter{reply: "I understand your pain"}, tone.New(), nil, chat.ServiceConfig{})
	srv := httptest.NewServer(newChatMux(svc, tokens))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, token), nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"message": "ngl <i>fr</i> that's rough"}))
	var got struct {
		Type  string         `json:"type"`
		Reply *chat.Response `json:"reply"`
		Error string         `json:"error"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, "reply", got.Type)
	require.NotNil(t, got.Reply)
	assert.Equal(t, "I feel you your pain fr", got.Reply.Reply)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"message": "   "}))
	got.Reply = nil
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, "error", got.Type)
	assert.Equal(t, "Message cannot be empty", got.Error)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"message": "hi", "mode": "pirate"}))
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, "Invalid chat mode", got.Error)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestWebSocket_RejectsMissingAndBadTokens(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, "authenticated", 1)
	svc := chat.NewService(nil, nil, nil, nil, chat.ServiceConfig{})
	srv := httptest.NewServer(newChatMux(svc, tokens))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, token := range []string{"", "garbage", "dev"} {
		_, resp, err := websocket.Dial(ctx, wsURL(srv, token), nil)
		require.Error(t, err, "token %q", token)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}
