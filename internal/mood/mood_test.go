package mood_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twingenie/twingenie/internal/audit"
	"github.com/twingenie/twingenie/internal/auth"
	"github.com/twingenie/twingenie/internal/mood"
	"github.com/twingenie/twingenie/internal/platform/database/dbtest"
)

const testUserID = "3e9b1f7c-2a4d-4c6e-8f10-5b7d9e1a3c50"

type fakeRepo struct {
	entries []mood.Entry
	err     error
}

func (f *fakeRepo) Insert(_ context.Context, _ string, e mood.Entry) (mood.Entry, error) {
	if f.err != nil {
		return mood.Entry{}, f.err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeRepo) List(_ context.Context, _ string, limit, offset int) ([]mood.Entry, error) {
	out := []mood.Entry{}
	for i := len(f.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, f.err
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, e.Action)
}

func (r *recordingAudit) Close() error { return nil }

func newMux(repo mood.Repository, a audit.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mood.NewHandler(repo, a).RegisterRoutes(mux)
	return mux
}

func request(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: testUserID, Role: auth.RoleAuthenticated}))
}

func TestHandleLog_KnownMood(t *testing.T) {
	repo := &fakeRepo{}
	rec := &recordingAudit{}

	w := httptest.NewRecorder()
	newMux(repo, rec).ServeHTTP(w, request(http.MethodPost, "/api/v1/mood", `{"mood":" Calm ","note":"<b>slept well</b>"}`))

	require.Equal(t, http.StatusCreated, w.Code)
	var got mood.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "calm", got.Mood)
	assert.Equal(t, "slept well", got.Note)
	assert.False(t, got.Custom)
	assert.Equal(t, []string{audit.ActionMoodLogged}, rec.actions)
}

func TestHandleLog_CustomMoodAccepted(t *testing.T) {
	repo := &fakeRepo{}
	rec := &recordingAudit{}

	w := httptest.NewRecorder()
	newMux(repo, rec).ServeHTTP(w, request(http.MethodPost, "/api/v1/mood", `{"mood":"Bittersweet"}`))

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, "bittersweet", repo.entries[0].Mood)
	assert.True(t, repo.entries[0].Custom)
	assert.Equal(t, []string{audit.ActionMoodLogged, audit.ActionMoodCustom}, rec.actions)
}

func TestHandleLog_Validation(t *testing.T) {
	mux := newMux(&fakeRepo{}, nil)

	for body, want := range map[string]string{
		`{}`:          "Mood is required",
		`{"mood":""}`: "Mood is required",
		`{"mood":7}`:  "Mood must be a string",
	} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, request(http.MethodPost, "/api/v1/mood", body))

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), want, body)
	}
}

func TestHandleLog_StoreError(t *testing.T) {
	w := httptest.NewRecorder()
	newMux(&fakeRepo{err: errors.New("db down")}, nil).ServeHTTP(w, request(http.MethodPost, "/api/v1/mood", `{"mood":"good"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleList(t *testing.T) {
	repo := &fakeRepo{}
	mux := newMux(repo, nil)
	for _, m := range []string{"sad", "okay", "happy"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, request(http.MethodPost, "/api/v1/mood", `{"mood":"`+m+`"}`))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, request(http.MethodGet, "/api/v1/mood?limit=2", ""))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Moods []mood.Entry `json:"moods"`
		Count int          `json:"count"`
		Limit int          `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, "happy", resp.Moods[0].Mood)
	assert.Equal(t, "okay", resp.Moods[1].Mood)
}

func TestHandleList_InvalidLimit(t *testing.T) {
	w := httptest.NewRecorder()
	newMux(&fakeRepo{}, nil).ServeHTTP(w, request(http.MethodGet, "/api/v1/mood?limit=101", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStore_Integration(t *testing.T) {
	pool := dbtest.Setup(t)
	ctx := context.Background()
	store := mood.NewStore(pool)

	first, err := store.Insert(ctx, testUserID, mood.Entry{Mood: "calm"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = store.Insert(ctx, testUserID, mood.Entry{Mood: "vibing", Note: "sunny", Custom: true})
	require.NoError(t, err)

	entries, err := store.List(ctx, testUserID, 20, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "vibing", entries[0].Mood)
	assert.True(t, entries[0].Custom)
	assert.Equal(t, "calm", entries[1].Mood)

	others, err := store.List(ctx, uuid.NewString(), 20, 0)
	require.NoError(t, err)
	assert.Empty(t, others)
}
