// Package sessions routes session reads and writes between the local store
// and the backend depending on login state.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joescharf/revu/internal/client"
	"github.com/joescharf/revu/internal/models"
)

var (
	// ErrNotFound is returned when a session does not exist in the store consulted.
	ErrNotFound = errors.New("session not found")
	// ErrBulkRemoteUnsupported is returned by Clear while logged in.
	ErrBulkRemoteUnsupported = errors.New("bulk deletion for server sessions not yet supported")
)

// Remote is the backend half of session storage.
type Remote interface {
	FetchSessions(ctx context.Context, token string) ([]models.Session, error)
	FetchSession(ctx context.Context, token string, id models.SessionID) (*models.Session, error)
	CreateSession(ctx context.Context, token string, data models.SessionData) (*models.Session, error)
	DeleteSession(ctx context.Context, token string, id models.SessionID) (*client.DeleteResponse, error)
}

// Local is the on-device half of session storage.
type Local interface {
	ListSessions(ctx context.Context) []models.Session
	GetSession(ctx context.Context, id models.SessionID) (models.Session, bool)
	SaveSession(ctx context.Context, s models.Session) error
	DeleteSession(ctx context.Context, id models.SessionID) error
	ClearSessions(ctx context.Context) error
}

// Auth reports the current login state.
type Auth interface {
	Token() string
	Authenticated() bool
}

// FailureMode decides what a read does when the backend fails.
type FailureMode int

const (
	// FallbackToLocal serves the local store instead.
	FallbackToLocal FailureMode = iota
	// ShowEmpty serves nothing.
	ShowEmpty
)

func (m FailureMode) String() string {
	switch m {
	case FallbackToLocal:
		return "fallback-to-local"
	case ShowEmpty:
		return "show-empty"
	}
	return fmt.Sprintf("FailureMode(%d)", int(m))
}

// Policy configures one call site.
type Policy struct {
	OnRemoteFailure FailureMode
}

// Per-view presets. The dashboard falls back to local data; analytics and
// the session detail view show nothing when the backend fails.
var (
	DashboardPolicy = Policy{OnRemoteFailure: FallbackToLocal}
	AnalyticsPolicy = Policy{OnRemoteFailure: ShowEmpty}
	DetailPolicy    = Policy{OnRemoteFailure: ShowEmpty}
)

// Source names the store a result came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceNone   Source = "none"
)

// ListResult is the outcome of List.
type ListResult struct {
	Sessions []models.Session
	Source   Source
	// RemoteErr is set when the backend was consulted and failed.
	RemoteErr error
}

// SaveOutcome reports the two writes of Save separately. They are not
// coupled: a remote failure never undoes the local write.
type SaveOutcome struct {
	LocalErr error

	RemoteAttempted bool
	Remote          *models.Session
	RemoteErr       error
}

// Reconciler applies the local/remote routing rules.
type Reconciler struct {
	local  Local
	remote Remote
	auth   Auth
	logger *slog.Logger
}

// NewReconciler creates a reconciler. A nil logger uses slog.Default().
func NewReconciler(local Local, remote Remote, auth Auth, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{local: local, remote: remote, auth: auth, logger: logger}
}

// Authenticated reports whether reads and deletes go to the backend.
func (r *Reconciler) Authenticated() bool {
	return r.auth.Authenticated()
}

// List returns the session history for the current login state.
func (r *Reconciler) List(ctx context.Context, p Policy) ListResult {
	if !r.auth.Authenticated() {
		return ListResult{Sessions: r.local.ListSessions(ctx), Source: SourceLocal}
	}

	sessions, err := r.remote.FetchSessions(ctx, r.auth.Token())
	if err == nil {
		return ListResult{Sessions: sessions, Source: SourceRemote}
	}

	r.logger.Error("loading sessions from backend", "error", err, "policy", p.OnRemoteFailure)
	if p.OnRemoteFailure == FallbackToLocal {
		return ListResult{Sessions: r.local.ListSessions(ctx), Source: SourceLocal, RemoteErr: err}
	}
	return ListResult{Sessions: []models.Session{}, Source: SourceNone, RemoteErr: err}
}

// Get returns one session. Missing sessions yield ErrNotFound.
func (r *Reconciler) Get(ctx context.Context, id models.SessionID, p Policy) (*models.Session, Source, error) {
	if !r.auth.Authenticated() {
		return r.getLocal(ctx, id)
	}

	s, err := r.remote.FetchSession(ctx, r.auth.Token(), id)
	if err == nil {
		return s, SourceRemote, nil
	}
	if client.IsNotFound(err) {
		return nil, SourceRemote, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r.logger.Error("loading session from backend", "id", id, "error", err, "policy", p.OnRemoteFailure)
	if p.OnRemoteFailure == FallbackToLocal {
		return r.getLocal(ctx, id)
	}
	return nil, SourceNone, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (r *Reconciler) getLocal(ctx context.Context, id models.SessionID) (*models.Session, Source, error) {
	s, ok := r.local.GetSession(ctx, id)
	if !ok {
		return nil, SourceLocal, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &s, SourceLocal, nil
}

// Save writes s to the local store and, when logged in, to the backend.
// The writes run independently and their results are reported separately.
func (r *Reconciler) Save(ctx context.Context, s models.Session) SaveOutcome {
	var out SaveOutcome
	token := r.auth.Token()
	out.RemoteAttempted = r.auth.Authenticated()

	var g errgroup.Group
	g.Go(func() error {
		if err := r.local.SaveSession(ctx, s); err != nil {
			out.LocalErr = err
			return fmt.Errorf("save locally: %w", err)
		}
		return nil
	})
	if out.RemoteAttempted {
		g.Go(func() error {
			created, err := r.remote.CreateSession(ctx, token, s.Data())
			if err != nil {
				out.RemoteErr = err
				return fmt.Errorf("save to backend: %w", err)
			}
			out.Remote = created
			r.logger.Debug("session saved to backend", "id", created.ID)
			return nil
		})
	}
	// Wait reports only the first failure; the outcome carries both.
	if err := g.Wait(); err != nil {
		r.logger.Error("saving session", "id", s.ID, "error", errors.Join(out.LocalErr, out.RemoteErr))
	}
	return out
}

// Delete removes a session from the backend when logged in, otherwise from
// the local store. There is no cross-store delete.
func (r *Reconciler) Delete(ctx context.Context, id models.SessionID) error {
	if r.auth.Authenticated() {
		if _, err := r.remote.DeleteSession(ctx, r.auth.Token(), id); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
		return nil
	}
	return r.local.DeleteSession(ctx, id)
}

// Clear removes every local session. It refuses while logged in.
func (r *Reconciler) Clear(ctx context.Context) error {
	if r.auth.Authenticated() {
		return ErrBulkRemoteUnsupported
	}
	return r.local.ClearSessions(ctx)
}

// FilterByLanguage keeps sessions in lang. "" and "all" keep everything.
func FilterByLanguage(sessions []models.Session, lang string) []models.Session {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || lang == "all" {
		return sessions
	}
	out := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if strings.ToLower(string(s.Language)) == lang {
			out = append(out, s)
		}
	}
	return out
}
