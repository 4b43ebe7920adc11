// Package auth holds the process-wide authentication state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joescharf/revu/internal/models"
)

var (
	// ErrInvalidToken is returned when the backend rejects or cannot validate a token.
	ErrInvalidToken = errors.New("token could not be validated")
	// ErrSuperseded is returned when a logout or newer login happened while
	// a validation was in flight; its result was discarded.
	ErrSuperseded = errors.New("login superseded")
	// ErrUnauthenticated is returned by callers that require a logged-in user.
	ErrUnauthenticated = errors.New("not logged in")
)

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Token(ctx context.Context) string
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Identity resolves the user behind a token (GET /auth/me).
type Identity interface {
	Me(ctx context.Context, token string) (*models.User, error)
}

// Holder owns the authentication state. Transitions are delivered to every
// subscriber. The zero state is logged out.
type Holder struct {
	tokens   TokenStore
	identity Identity
	logger   *slog.Logger

	mu     sync.RWMutex
	state  models.AuthState
	epoch  uint64
	subs   map[int]func(models.AuthState)
	nextID int

	// persistMu orders token writes so the last transition's write wins.
	persistMu sync.Mutex
}

// NewHolder creates a logged-out holder. A nil logger uses slog.Default().
func NewHolder(tokens TokenStore, identity Identity, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{
		tokens:   tokens,
		identity: identity,
		logger:   logger,
		subs:     make(map[int]func(models.AuthState)),
	}
}

// State returns a snapshot of the current state.
func (h *Holder) State() models.AuthState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Token returns the validated bearer token, or "" when logged out.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Token
}

// Authenticated reports whether a validated token is held.
func (h *Holder) Authenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.LoggedIn()
}

// Subscribe registers fn for every state transition and returns a function
// that removes it.
func (h *Holder) Subscribe(fn func(models.AuthState)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Login validates token against the backend. On success the token and user
// are committed together and the token is persisted. On failure the
// persisted token is cleared and the state is logged out.
func (h *Holder) Login(ctx context.Context, token string) error {
	return h.validate(ctx, token, h.begin())
}

// begin starts a new transition; results of earlier validations still in
// flight are discarded.
func (h *Holder) begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.epoch++
	return h.epoch
}

func (h *Holder) validate(ctx context.Context, token string, epoch uint64) error {
	user, err := h.identity.Me(ctx, token)

	h.mu.Lock()
	if h.epoch != epoch {
		h.mu.Unlock()
		h.logger.Debug("discarding stale login result")
		return ErrSuperseded
	}
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("token validation failed, logging out", "error", err)
		h.Logout()
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	h.state = models.AuthState{Token: token, User: user}
	h.mu.Unlock()

	h.persistToken(ctx, token, epoch)
	h.notify()
	return nil
}

// persistToken saves token unless a later transition already happened. A
// Logout racing with it either clears after this write or sees the epoch
// change first.
func (h *Holder) persistToken(ctx context.Context, token string, epoch uint64) {
	h.persistMu.Lock()
	defer h.persistMu.Unlock()

	h.mu.RLock()
	current := h.epoch == epoch
	h.mu.RUnlock()
	if !current {
		h.logger.Debug("skipping token write for superseded login")
		return
	}
	if err := h.tokens.SaveToken(ctx, token); err != nil {
		h.logger.Error("persist token", "error", err)
	}
}

// Logout clears the persisted token and resets the state. It never contacts
// the backend.
func (h *Holder) Logout() {
	h.mu.Lock()
	h.epoch++
	h.state = models.AuthState{}
	h.mu.Unlock()

	h.persistMu.Lock()
	if err := h.tokens.ClearToken(context.Background()); err != nil {
		h.logger.Error("clear token", "error", err)
	}
	h.persistMu.Unlock()
	h.notify()
}

// Restore validates a previously persisted token in the background. The
// state stays logged out until validation succeeds. The returned channel is
// closed once restoration has finished.
func (h *Holder) Restore(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	token := h.tokens.Token(ctx)
	if token == "" {
		close(done)
		return done
	}

	epoch := h.begin()
	go func() {
		defer close(done)
		if err := h.validate(ctx, token, epoch); err != nil {
			h.logger.Debug("session restore failed", "error", err)
		}
	}()
	return done
}

func (h *Holder) notify() {
	h.mu.RLock()
	state := h.state
	fns := make([]func(models.AuthState), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}
