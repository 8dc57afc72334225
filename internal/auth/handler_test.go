package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twingenie/twingenie/internal/auth"
)

type mockProvider struct {
	session  *auth.Session
	err      error
	email    string
	password string
}

func (m *mockProvider) SignUp(_ context.Context, email, password string) (*auth.Session, error) {
	m.email, m.password = email, password
	return m.session, m.err
}

func (m *mockProvider) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	m.email, m.password = email, password
	return m.session, m.err
}

func newAuthMux(p auth.Provider) *http.ServeMux {
	mux := http.NewServeMux()
	auth.NewHandler(p).RegisterRoutes(mux)
	return mux
}

func postJSON(mux http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandler_Login(t *testing.T) {
	p := &mockProvider{session: &auth.Session{
		AccessToken: "access-abc",
		TokenType:   "bearer",
		User:        auth.SessionUser{ID: "user-1", Email: "twin@example.com"},
	}}

	w := postJSON(newAuthMux(p), "/api/v1/auth/login", `{"email":"twin@example.com","password":"secret1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp auth.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access-abc", resp.AccessToken)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, "secret1", p.password)
}

func TestHandler_Signup(t *testing.T) {
	p := &mockProvider{session: &auth.Session{AccessToken: "new-user"}}

	w := postJSON(newAuthMux(p), "/api/v1/auth/signup", `{"email":"twin@example.com","password":"secret1"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "twin@example.com", p.email)
}

func TestHandler_SanitizesBeforeProvider(t *testing.T) {
	p := &mockProvider{session: &auth.Session{}}

	w := postJSON(newAuthMux(p), "/api/v1/auth/login", `{"email":"<b>twin@example.com</b>","password":"secret1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "twin@example.com", p.email)
}

func TestHandler_ValidationRejectsShortPassword(t *testing.T) {
	p := &mockProvider{}

	w := postJSON(newAuthMux(p), "/api/v1/auth/login", `{"email":"twin@example.com","password":"12345"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.email, "provider must not be called")
}

func TestHandler_InvalidCredentials(t *testing.T) {
	p := &mockProvider{err: auth.ErrInvalidCredentials}

	w := postJSON(newAuthMux(p), "/api/v1/auth/login", `{"email":"twin@example.com","password":"secret1"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid credentials", resp["error"])
}

func TestHandler_ProviderFailure(t *testing.T) {
	p := &mockProvider{err: errors.New("connection refused")}

	w := postJSON(newAuthMux(p), "/api/v1/auth/login", `{"email":"twin@example.com","password":"secret1"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandler_NoProvider(t *testing.T) {
	w := postJSON(newAuthMux(nil), "/api/v1/auth/signup", `{"email":"twin@example.com","password":"secret1"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGoTrueClient_SignIn(t *testing.T) {
	var gotPath, gotAPIKey, gotGrant string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGrant = r.URL.Query().Get("grant_type")
		gotAPIKey = r.Header.Get("apikey")

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "twin@example.com", creds["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600,"refresh_token":"ref","user":{"id":"u-1","email":"twin@example.com"}}`))
	}))
	defer srv.Close()

	client := auth.NewGoTrueClient(srv.URL+"/", "anon-key", 5*time.Second)
	session, err := client.SignIn(context.Background(), "twin@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/token", gotPath)
	assert.Equal(t, "password", gotGrant)
	assert.Equal(t, "anon-key", gotAPIKey)
	assert.Equal(t, "tok", session.AccessToken)
	assert.Equal(t, 3600, session.ExpiresIn)
	assert.Equal(t, "u-1", session.User.ID)
}

func TestGoTrueClient_SignUpPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"u-2"}}`))
	}))
	defer srv.Close()

	_, err := auth.NewGoTrueClient(srv.URL, "anon-key", 5*time.Second).SignUp(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/signup", gotPath)
}

func TestGoTrueClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusBadRequest, auth.ErrInvalidCredentials},
		{http.StatusUnprocessableEntity, auth.ErrInvalidCredentials},
		{http.StatusTooManyRequests, auth.ErrProviderFailure},
		{http.StatusInternalServerError, auth.ErrProviderFailure},
	}
	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))

		_, err := auth.NewGoTrueClient(srv.URL, "anon-key", 5*time.Second).SignIn(context.Background(), "a@b.co", "secret1")
		assert.ErrorIs(t, err, tc.wantErr, "status %d", tc.status)
		srv.Close()
	}
}

func TestGoTrueClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := auth.NewGoTrueClient(url, "anon-key", time.Second).SignIn(context.Background(), "a@b.co", "secret1")
	assert.ErrorIs(t, err, auth.ErrProviderFailure)
}
