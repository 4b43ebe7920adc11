// Package local persists review sessions, the draft snippet, confidence
// samples, preferences and the bearer token in the client's key/value store.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/store"
)

// Storage keys. The names match the ones the web client used so an exported
// browser profile can be imported verbatim.
const (
	KeyToken      = "token"
	KeyTheme      = "theme"
	KeyDepth      = "depth"
	KeySessions   = "aicode_sessions"
	KeyDraft      = "aicode_draft"
	KeyConfidence = "ai_confidence_data"
)

// Theme is the display theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Config bounds local growth. Zero means unbounded.
type Config struct {
	MaxSessions          int
	MaxConfidenceEntries int
}

// DefaultConfig returns the default retention caps.
func DefaultConfig() Config {
	return Config{
		MaxSessions:          200,
		MaxConfidenceEntries: 500,
	}
}

// Store is the local session store. Reads never fail: missing or corrupted
// values read as empty and are logged.
type Store struct {
	// mu serializes read-modify-write of the list values.
	mu sync.Mutex

	kv     store.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a local store over kv. A nil logger uses slog.Default().
func New(kv store.Store, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, cfg: cfg, logger: logger}
}

// --- Sessions ---

// ListSessions returns stored sessions, most recently created first.
func (s *Store) ListSessions(ctx context.Context) []models.Session {
	var sessions []models.Session
	if !s.readJSON(ctx, KeySessions, &sessions) {
		return []models.Session{}
	}
	if sessions == nil {
		return []models.Session{}
	}
	return sessions
}

// GetSession finds a session by ID. The bool is false when absent.
func (s *Store) GetSession(ctx context.Context, id models.SessionID) (models.Session, bool) {
	for _, sess := range s.ListSessions(ctx) {
		if sess.ID == id {
			return sess, true
		}
	}
	return models.Session{}, false
}

// SaveSession prepends session and rewrites the collection. When the
// collection exceeds MaxSessions the oldest entries are dropped.
func (s *Store) SaveSession(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := append([]models.Session{session}, s.ListSessions(ctx)...)
	if max := s.cfg.MaxSessions; max > 0 && len(sessions) > max {
		s.logger.Debug("pruning local sessions", "dropped", len(sessions)-max)
		sessions = sessions[:max]
	}
	return s.writeJSON(ctx, KeySessions, sessions)
}

// DeleteSession removes the session with the given ID. Missing IDs are a no-op.
func (s *Store) DeleteSession(ctx context.Context, id models.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.ListSessions(ctx)
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}
	return s.writeJSON(ctx, KeySessions, kept)
}

// ClearSessions removes every local session.
func (s *Store) ClearSessions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, KeySessions)
}

// --- Draft ---

// SaveDraft overwrites the single draft slot.
func (s *Store) SaveDraft(ctx context.Context, text string) error {
	return s.kv.Set(ctx, KeyDraft, text)
}

// Draft returns the last saved draft, or "" if none.
func (s *Store) Draft(ctx context.Context) string {
	v, _ := s.readString(ctx, KeyDraft)
	return v
}

// --- Confidence trend ---

// SaveConfidenceEntry appends a sample, dropping the oldest beyond MaxConfidenceEntries.
func (s *Store) SaveConfidenceEntry(ctx context.Context, entry models.ConfidenceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.ConfidenceEntries(ctx), entry)
	if max := s.cfg.MaxConfidenceEntries; max > 0 && len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	return s.writeJSON(ctx, KeyConfidence, entries)
}

// ConfidenceEntries returns samples in insertion order.
func (s *Store) ConfidenceEntries(ctx context.Context) []models.ConfidenceEntry {
	var entries []models.ConfidenceEntry
	if !s.readJSON(ctx, KeyConfidence, &entries) || entries == nil {
		return []models.ConfidenceEntry{}
	}
	return entries
}

// --- Preferences ---

// Depth returns the saved analysis depth, defaulting to standard.
func (s *Store) Depth(ctx context.Context) models.Depth {
	v, ok := s.readString(ctx, KeyDepth)
	if !ok {
		return models.DepthStandard
	}
	d, err := models.ParseDepth(v)
	if err != nil {
		s.logger.Warn("ignoring stored depth", "value", v)
		return models.DepthStandard
	}
	return d
}

// SetDepth saves the analysis depth preference.
func (s *Store) SetDepth(ctx context.Context, d models.Depth) error {
	return s.kv.Set(ctx, KeyDepth, string(d))
}

// Theme returns the saved theme, defaulting to light.
func (s *Store) Theme(ctx context.Context) Theme {
	v, _ := s.readString(ctx, KeyTheme)
	if Theme(v) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// SetTheme saves the theme preference.
func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return fmt.Errorf("unsupported theme %q (want light or dark)", t)
	}
	return s.kv.Set(ctx, KeyTheme, string(t))
}

// --- Token slot ---

// Token returns the persisted bearer token, or "" if none. The literal
// strings "null" and "undefined" left behind by older clients count as none.
func (s *Store) Token(ctx context.Context) string {
	v, _ := s.readString(ctx, KeyToken)
	if v == "null" || v == "undefined" {
		return ""
	}
	return v
}

// SaveToken persists the bearer token.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, KeyToken, token)
}

// ClearToken removes the persisted bearer token.
func (s *Store) ClearToken(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyToken)
}

// --- helpers ---

func (s *Store) readString(ctx context.Context, key string) (string, bool) {
	v, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("local read failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (s *Store) readJSON(ctx context.Context, key string, target any) bool {
	raw, ok := s.readString(ctx, key)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		s.logger.Warn("discarding unparsable local data", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, string(data))
}
