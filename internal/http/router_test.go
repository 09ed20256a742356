package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"daybook/internal/apperr"
	"daybook/internal/auth"
	"daybook/internal/config"
	httpx "daybook/internal/http"
	"daybook/internal/journal"
	"daybook/internal/journal/journaltest"
	"daybook/internal/ratelimit"
	"daybook/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu   sync.Mutex
	rows []auth.User
}

func (m *memUsers) CreateUser(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.rows {
		if o.Username == u.Username || o.Email == u.Email {
			return apperr.Conflict("username or email already used")
		}
	}
	u.ID = uint64(len(m.rows) + 1)
	u.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, *u)
	return nil
}

func (m *memUsers) UserByUsername(_ context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].Username == username {
			u := m.rows[i]
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memUsers) UserByID(_ context.Context, id uint64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			u := m.rows[i]
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

type memSettings struct {
	mu   sync.Mutex
	rows map[uint64]settings.UserSettings
}

func (m *memSettings) Get(_ context.Context, userID uint64) (*settings.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rows[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &st, nil
}

func (m *memSettings) Save(_ context.Context, st *settings.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[st.UserID] = *st
	return nil
}

var now = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type server struct {
	t       *testing.T
	handler http.Handler
	store   *journaltest.Store
	journal *journal.Service
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := journaltest.NewStore()
	js := journal.NewService(store, log, time.UTC)
	js.Now = func() time.Time { return now }
	_, err := js.SeedPreBuiltTags(context.Background())
	require.NoError(t, err)

	jwtSvc := auth.NewJWT("test-secret", time.Hour)
	limiter := ratelimit.New(100, 100)
	t.Cleanup(limiter.Stop)

	h := httpx.NewRouter(httpx.Deps{
		Config:      config.Config{},
		Log:         log,
		JWT:         jwtSvc,
		Auth:        auth.NewService(&memUsers{}, jwtSvc, log),
		Journal:     js,
		Settings:    settings.NewService(&memSettings{rows: map[uint64]settings.UserSettings{}}, log),
		AuthLimiter: limiter,
	})
	return &server{t: t, handler: h, store: store, journal: js}
}

type response struct {
	Code    int         `json:"-"`
	Header  http.Header `json:"-"`
	Body    []byte      `json:"-"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (s *server) do(method, path, token string, body any) response {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	res := response{Code: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(res.Body, &res), string(res.Body))
	}
	return res
}

func (s *server) register(username string) (string, uint64) {
	s.t.Helper()
	res := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(s.t, http.StatusCreated, res.Code, string(res.Body))

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID uint64 `json:"id"`
		} `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(res.Data, &out))
	return out.Token, out.User.ID
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type entryJSON struct {
	ID          uint64 `json:"id"`
	EntryDate   string `json:"entry_date"`
	Title       string `json:"title"`
	WordCount   int    `json:"word_count"`
	PrimaryMood string `json:"primary_mood"`
	Tags        []struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	} `json:"tags"`
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	res := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ok", string(res.Body))
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)
	token, id := s.register("writer")

	res := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "writer", "email": "again@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "writer", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "UNAUTHORIZED", res.Error.Code)

	res = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "writer", "password": "password123"})
	assert.Equal(t, http.StatusOK, res.Code)

	res = s.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	me := decode[struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
	}](t, res.Data)
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "writer", me.Username)

	res = s.do(http.MethodGet, "/entries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthRateLimit(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(0.001, 2)
	t.Cleanup(limiter.Stop)
	jwtSvc := auth.NewJWT("k", time.Hour)
	h := httpx.NewRouter(httpx.Deps{
		Log:         log,
		JWT:         jwtSvc,
		Auth:        auth.NewService(&memUsers{}, jwtSvc, log),
		AuthLimiter: limiter,
	})

	var codes []int
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a","password":"b"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestEntryLifecycle(t *testing.T) {
	s := newServer(t)
	token, _ := s.register("writer")

	res := s.do(http.MethodGet, "/tags", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	tags := decode[[]struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}](t, res.Data)
	require.Len(t, tags, len(journal.PreBuiltTags))

	res = s.do(http.MethodPut, "/entries", token, map[string]any{
		"title":        "First day",
		"body":         "Walked to the river and back",
		"primary_mood": "Happy",
		"tag_ids":      []uint64{tags[0].ID},
	})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	e := decode[entryJSON](t, res.Data)
	assert.Equal(t, "2024-03-10", e.EntryDate)
	assert.Equal(t, 6, e.WordCount)
	require.Len(t, e.Tags, 1)

	res = s.do(http.MethodPut, "/entries", token, map[string]any{
		"date": "2024-03-09", "title": "Yesterday", "body": "late", "primary_mood": "Calm",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, "INVALID_DATE", res.Error.Code)

	res = s.do(http.MethodPut, "/entries", token, map[string]any{"title": "", "body": "x", "primary_mood": "Calm"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Error.Details, "title")

	res = s.do(http.MethodGet, fmt.Sprintf("/entries/%d", e.ID), token, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = s.do(http.MethodGet, "/entries/date/2024-03-10", token, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = s.do(http.MethodGet, "/entries/date/2024-03-01", token, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = s.do(http.MethodGet, "/entries/date/10-03-2024", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.do(http.MethodGet, "/streak", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	st := decode[map[string]any](t, res.Data)
	assert.EqualValues(t, 1, st["current_streak"])
	assert.EqualValues(t, 1, st["longest_streak"])
	assert.Equal(t, "2024-03-10", st["last_entry_date"])
	assert.EqualValues(t, 0, st["missed_days"])

	other, _ := s.register("other")
	res = s.do(http.MethodGet, fmt.Sprintf("/entries/%d", e.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = s.do(http.MethodDelete, fmt.Sprintf("/entries/%d", e.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = s.do(http.MethodDelete, fmt.Sprintf("/entries/%d", e.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = s.do(http.MethodGet, "/streak", token, nil)
	st = decode[map[string]any](t, res.Data)
	assert.EqualValues(t, 0, st["current_streak"])
	assert.Nil(t, st["last_entry_date"])
}

func TestEntrySearch(t *testing.T) {
	s := newServer(t)
	token, uid := s.register("writer")
	for i := range 12 {
		mood := "Calm"
		if i%2 == 0 {
			mood = "Happy"
		}
		s.store.PutEntry(journal.Entry{
			UserID:      uid,
			EntryDate:   now.AddDate(0, 0, -i),
			Title:       fmt.Sprintf("Entry %02d", i),
			Body:        "body",
			PrimaryMood: mood,
		})
	}

	type pageJSON struct {
		Entries    []entryJSON `json:"entries"`
		Total      int64       `json:"total"`
		Page       int         `json:"page"`
		TotalPages int         `json:"total_pages"`
	}

	res := s.do(http.MethodGet, "/entries?page=2&page_size=5", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	page := decode[pageJSON](t, res.Data)
	assert.EqualValues(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Entries, 5)
	assert.Equal(t, "Entry 05", page.Entries[0].Title)

	res = s.do(http.MethodGet, "/entries?mood=Happy&from=2024-03-05&to=2024-03-10", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	page = decode[pageJSON](t, res.Data)
	assert.EqualValues(t, 3, page.Total)

	res = s.do(http.MethodGet, "/entries?q=entry%2011", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), "Entry 11")

	res = s.do(http.MethodGet, "/entries?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = s.do(http.MethodGet, "/entries?page=two", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestTagsAndStats(t *testing.T) {
	s := newServer(t)
	token, _ := s.register("writer")

	res := s.do(http.MethodPost, "/tags", token, map[string]string{"name": "Garden", "color": "#00ff00"})
	require.Equal(t, http.StatusCreated, res.Code, string(res.Body))
	tag := decode[struct {
		ID uint64 `json:"id"`
	}](t, res.Data)

	res = s.do(http.MethodPost, "/tags", token, map[string]string{"name": "Bad", "color": "green"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.do(http.MethodGet, "/tags?prebuilt=false", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, decode[[]map[string]any](t, res.Data), 1)

	res = s.do(http.MethodPut, "/entries", token, map[string]any{
		"title": "t", "body": "one two three", "primary_mood": "Happy", "secondary_mood_1": "Calm",
		"tag_ids": []uint64{tag.ID},
	})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	res = s.do(http.MethodGet, "/stats/moods", token, nil)
	assert.Equal(t, map[string]int{"Happy": 1, "Calm": 1}, decode[map[string]int](t, res.Data))
	res = s.do(http.MethodGet, "/stats/tags", token, nil)
	assert.Equal(t, map[string]int{"Garden": 1}, decode[map[string]int](t, res.Data))
	res = s.do(http.MethodGet, "/stats/words?days=7", token, nil)
	words := decode[[]map[string]any](t, res.Data)
	require.Len(t, words, 1)
	assert.EqualValues(t, 3, words[0]["word_count"])

	res = s.do(http.MethodDelete, fmt.Sprintf("/tags/%d", tag.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
	res = s.do(http.MethodDelete, fmt.Sprintf("/tags/%d", tag.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestExport(t *testing.T) {
	s := newServer(t)
	token, uid := s.register("writer")
	s.store.PutEntry(journal.Entry{UserID: uid, EntryDate: now.AddDate(0, 0, -2), Title: "Older", Body: "<p>Hello <em>there</em></p>", PrimaryMood: "Calm", WordCount: 2})
	s.store.PutEntry(journal.Entry{UserID: uid, EntryDate: now, Title: "Newer", Body: "plain", PrimaryMood: "Happy", WordCount: 1})

	res := s.do(http.MethodGet, "/export?from=2024-03-01&to=2024-03-10", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "journal_20240301_20240310.md")

	body := string(res.Body)
	assert.Contains(t, body, "# Journal Entries - writer")
	assert.Contains(t, body, "Hello *there*")
	assert.Less(t, strings.Index(body, "## Older"), strings.Index(body, "## Newer"))

	res = s.do(http.MethodGet, "/export?from=2024-03-10&to=2024-03-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSettings(t *testing.T) {
	s := newServer(t)
	token, _ := s.register("writer")

	res := s.do(http.MethodGet, "/settings", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "light", decode[map[string]any](t, res.Data)["theme"])

	res = s.do(http.MethodPut, "/settings/theme", token, map[string]any{"theme": "dark"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "dark", decode[map[string]any](t, res.Data)["theme"])

	res = s.do(http.MethodPut, "/settings/pin", token, map[string]string{"pin": "12"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = s.do(http.MethodPut, "/settings/pin", token, map[string]string{"pin": "2468"})
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = s.do(http.MethodPost, "/settings/pin/verify", token, map[string]string{"pin": "1357"})
	assert.Equal(t, map[string]bool{"valid": false}, decode[map[string]bool](t, res.Data))
	res = s.do(http.MethodPost, "/settings/pin/verify", token, map[string]string{"pin": "2468"})
	assert.Equal(t, map[string]bool{"valid": true}, decode[map[string]bool](t, res.Data))

	res = s.do(http.MethodGet, "/settings", token, nil)
	got := decode[map[string]any](t, res.Data)
	assert.Equal(t, true, got["require_pin"])
	assert.NotContains(t, got, "journal_pin_hash")

	res = s.do(http.MethodDelete, "/settings/pin", token, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
}

func TestStreakRecalculate(t *testing.T) {
	s := newServer(t)
	token, uid := s.register("writer")
	for _, off := range []int{-5, -4, -3} {
		s.store.PutEntry(journal.Entry{UserID: uid, EntryDate: now.AddDate(0, 0, off), Title: "t", Body: "b", PrimaryMood: "m"})
	}

	res := s.do(http.MethodPost, "/streak/recalculate", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	st := decode[map[string]any](t, res.Data)
	assert.EqualValues(t, 0, st["current_streak"])
	assert.EqualValues(t, 3, st["longest_streak"])
	assert.EqualValues(t, 2, st["missed_days"])
}
