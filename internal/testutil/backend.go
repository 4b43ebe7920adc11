// Package testutil provides an in-memory stand-in for the review backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joescharf/revu/internal/models"
)

// Routes, usable with Backend.Fail.
const (
	RouteRegister      = "POST /auth/register"
	RouteLogin         = "POST /auth/login"
	RouteMe            = "GET /auth/me"
	RouteAnalyze       = "POST /analyze"
	RouteListSessions  = "GET /sessions/{$}"
	RouteCreateSession = "POST /sessions/{$}"
	RouteGetSession    = "GET /sessions/{id}"
	RouteDeleteSession = "DELETE /sessions/{id}"
)

// Analysis is the canned /analyze response.
type Analysis struct {
	Issues     []models.Issue `json:"issues"`
	AIFeedback string         `json:"ai_feedback"`
	Confidence *float64       `json:"confidence,omitempty"`
}

type user struct {
	models.User
	password string
}

type storedSession struct {
	models.Session
	owner int64
}

// Backend is a fake review backend served over httptest.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	users     map[string]*user
	tokens    map[string]int64
	sessions  []storedSession
	nextUser  int64
	nextSess  int64
	analysis  Analysis
	failures  map[string]int
	analyzeAu []string
}

// NewBackend starts a fake backend that is shut down when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		users:    make(map[string]*user),
		tokens:   make(map[string]int64),
		failures: make(map[string]int),
		analysis: Analysis{Issues: []models.Issue{}, AIFeedback: "Looks fine."},
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.Server.URL }

// Close shuts the server down so later requests fail at the transport level.
func (b *Backend) Close() { b.Server.Close() }

// Fail makes route answer with status until cleared with status 0.
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, route)
		return
	}
	b.failures[route] = status
}

// SetAnalysis replaces the canned /analyze response.
func (b *Backend) SetAnalysis(a Analysis) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.analysis = a
}

// AddUser registers a user and returns a valid token for it.
func (b *Backend) AddUser(username, email, password string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.addUserLocked(username, email, password)
	return b.issueTokenLocked(u.ID)
}

// Sessions returns the sessions owned by the user of token, newest first.
func (b *Backend) Sessions(token string) []models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, ok := b.tokens[token]
	if !ok {
		return nil
	}
	return b.sessionsForLocked(uid)
}

// AnalyzeAuthHeaders returns the Authorization header of every /analyze call.
func (b *Backend) AnalyzeAuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.analyzeAu...)
}

func (b *Backend) router() http.Handler {
	mux := http.NewServeMux()
	b.handle(mux, RouteRegister, b.register)
	b.handle(mux, RouteLogin, b.login)
	b.handle(mux, RouteMe, b.me)
	b.handle(mux, RouteAnalyze, b.analyze)
	b.handle(mux, RouteListSessions, b.listSessions)
	b.handle(mux, RouteCreateSession, b.createSession)
	b.handle(mux, RouteGetSession, b.getSession)
	b.handle(mux, RouteDeleteSession, b.deleteSession)
	return mux
}

func (b *Backend) handle(mux *http.ServeMux, route string, h http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status, failing := b.failures[route]
		b.mu.Unlock()
		if failing {
			writeError(w, status, "injected failure")
			return
		}
		h(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// --- auth ---

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Username]; exists {
		writeError(w, http.StatusBadRequest, "Username already registered")
		return
	}
	u := b.addUserLocked(req.Username, req.Email, req.Password)
	writeJSON(w, http.StatusOK, map[string]int64{"user_id": u.ID})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[req.Username]
	if !ok || u.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": b.issueTokenLocked(u.ID),
		"token_type":   "bearer",
	})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.userForLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, u.User)
}

// --- analyze ---

func (b *Backend) analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
		Content  string `json:"content"`
		Depth    string `json:"depth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON")
		return
	}

	b.mu.Lock()
	b.analyzeAu = append(b.analyzeAu, r.Header.Get("Authorization"))
	resp := b.analysis
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// --- sessions ---

func (b *Backend) listSessions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.userForLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, toWire(b.sessionsForLocked(u.ID)))
}

func (b *Backend) createSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.userForLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	b.nextSess++
	s := models.Session{
		ID:         models.SessionID(strconv.FormatInt(b.nextSess, 10)),
		Timestamp:  time.Now().UTC().Add(time.Duration(b.nextSess) * time.Millisecond),
		Language:   req.Language,
		Snippet:    req.Snippet,
		Issues:     req.Issues,
		AIFeedback: req.AIFeedback,
	}
	b.sessions = append(b.sessions, storedSession{Session: s, owner: u.ID})
	writeJSON(w, http.StatusOK, toWire([]models.Session{s})[0])
}

func (b *Backend) getSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.userForLocked(r); !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	for _, s := range b.sessions {
		if string(s.ID) == id {
			writeJSON(w, http.StatusOK, toWire([]models.Session{s.Session})[0])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Session not found")
}

func (b *Backend) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.userForLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	for i, s := range b.sessions {
		if string(s.ID) == id && s.owner == u.ID {
			b.sessions = append(b.sessions[:i], b.sessions[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Session not found")
}

// --- helpers (callers hold b.mu) ---

func (b *Backend) addUserLocked(username, email, password string) *user {
	b.nextUser++
	u := &user{User: models.User{ID: b.nextUser, Username: username, Email: email}, password: password}
	b.users[username] = u
	return u
}

func (b *Backend) issueTokenLocked(uid int64) string {
	tok := uuid.NewString()
	b.tokens[tok] = uid
	return tok
}

func (b *Backend) userForLocked(r *http.Request) (*user, bool) {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, false
	}
	uid, ok := b.tokens[tok]
	if !ok {
		return nil, false
	}
	for _, u := range b.users {
		if u.ID == uid {
			return u, true
		}
	}
	return nil, false
}

func (b *Backend) sessionsForLocked(uid int64) []models.Session {
	var out []models.Session
	for _, s := range b.sessions {
		if s.owner == uid {
			out = append(out, s.Session)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// wireSession mirrors the backend's response shape: integer IDs and
// timezone-less timestamps.
type wireSession struct {
	ID         int64          `json:"id"`
	Language   string         `json:"language"`
	Snippet    string         `json:"snippet"`
	Issues     []models.Issue `json:"issues"`
	AIFeedback string         `json:"ai_feedback,omitempty"`
	TS         string         `json:"ts"`
}

func toWire(sessions []models.Session) []wireSession {
	out := make([]wireSession, 0, len(sessions))
	for _, s := range sessions {
		id, err := strconv.ParseInt(string(s.ID), 10, 64)
		if err != nil {
			panic(fmt.Sprintf("testutil: non-numeric backend id %q", s.ID))
		}
		issues := s.Issues
		if issues == nil {
			issues = []models.Issue{}
		}
		out = append(out, wireSession{
			ID:         id,
			Language:   string(s.Language),
			Snippet:    s.Snippet,
			Issues:     issues,
			AIFeedback: s.AIFeedback,
			TS:         s.Timestamp.UTC().Format("2006-01-02T15:04:05.000000"),
		})
	}
	return out
}
