package sessions

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/client"
	"github.com/joescharf/revu/internal/local"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/store"
	"github.com/joescharf/revu/internal/testutil"
)

type fakeAuth struct{ token string }

func (f *fakeAuth) Token() string       { return f.token }
func (f *fakeAuth) Authenticated() bool { return f.token != "" }

type fixture struct {
	r       *Reconciler
	local   *local.Store
	backend *testutil.Backend
	auth    *fakeAuth
}

func newFixture(t *testing.T, loggedIn bool) *fixture {
	t.Helper()
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "revu.db"))
	require.NoError(t, err)
	require.NoError(t, kv.Migrate(context.Background()))
	t.Cleanup(func() { kv.Close() })

	b := testutil.NewBackend(t)
	a := &fakeAuth{}
	if loggedIn {
		a.token = b.AddUser("ada", "ada@example.com", "pw")
	}
	ls := local.New(kv, local.DefaultConfig(), nil)
	c := client.New(client.Config{BaseURL: b.URL(), Timeout: 5 * time.Second}, nil, nil)
	return &fixture{r: NewReconciler(ls, c, a, nil), local: ls, backend: b, auth: a}
}

func sample(id string, lang models.Language) models.Session {
	return models.Session{
		ID:        models.SessionID(id),
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Language:  lang,
		Snippet:   "x = 1",
		Issues:    []models.Issue{{Type: models.IssueTypeStyle, Message: "naming"}},
	}
}

func TestList_LoggedOutReadsLocal(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.local.SaveSession(ctx, sample("a", models.LanguagePython)))

	res := f.r.List(ctx, DashboardPolicy)
	assert.Equal(t, SourceLocal, res.Source)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, models.SessionID("a"), res.Sessions[0].ID)
	assert.NoError(t, res.RemoteErr)
}

func TestList_LoggedInReadsRemote(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.local.SaveSession(ctx, sample("local-only", models.LanguagePython)))

	out := f.r.Save(ctx, sample("b", models.LanguageJava))
	require.NoError(t, out.RemoteErr)

	res := f.r.List(ctx, DashboardPolicy)
	assert.Equal(t, SourceRemote, res.Source)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, models.LanguageJava, res.Sessions[0].Language)
}

func TestList_RemoteFailurePolicies(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.local.SaveSession(ctx, sample("a", models.LanguagePython)))
	f.backend.Fail(testutil.RouteListSessions, http.StatusInternalServerError)

	dash := f.r.List(ctx, DashboardPolicy)
	assert.Equal(t, SourceLocal, dash.Source)
	assert.Len(t, dash.Sessions, 1)
	assert.Error(t, dash.RemoteErr)

	stats := f.r.List(ctx, AnalyticsPolicy)
	assert.Equal(t, SourceNone, stats.Source)
	assert.NotNil(t, stats.Sessions)
	assert.Empty(t, stats.Sessions)
	assert.Error(t, stats.RemoteErr)
}

func TestSave_LoggedOutIsLocalOnly(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	out := f.r.Save(ctx, sample("a", models.LanguagePython))
	assert.NoError(t, out.LocalErr)
	assert.False(t, out.RemoteAttempted)
	assert.Nil(t, out.Remote)
	assert.Len(t, f.local.ListSessions(ctx), 1)
}

func TestSave_LoggedInWritesBoth(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	out := f.r.Save(ctx, sample("a", models.LanguagePython))
	assert.NoError(t, out.LocalErr)
	assert.True(t, out.RemoteAttempted)
	require.NoError(t, out.RemoteErr)
	require.NotNil(t, out.Remote)

	stored := f.local.ListSessions(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, models.SessionID("a"), stored[0].ID)

	remote := f.backend.Sessions(f.auth.token)
	require.Len(t, remote, 1)
	assert.Equal(t, out.Remote.ID, remote[0].ID)
	assert.Equal(t, "naming", remote[0].Issues[0].Message)
}

func TestSave_RemoteFailureKeepsLocal(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.backend.Fail(testutil.RouteCreateSession, http.StatusInternalServerError)

	out := f.r.Save(ctx, sample("a", models.LanguagePython))
	assert.NoError(t, out.LocalErr)
	assert.Error(t, out.RemoteErr)
	assert.Nil(t, out.Remote)
	assert.Len(t, f.local.ListSessions(ctx), 1)
}

// brokenLocal fails every local session write.
type brokenLocal struct{ *local.Store }

func (brokenLocal) SaveSession(context.Context, models.Session) error {
	return errors.New("disk full")
}

func TestSave_BothFailuresReported(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.backend.Fail(testutil.RouteCreateSession, http.StatusInternalServerError)
	c := client.New(client.Config{BaseURL: f.backend.URL(), Timeout: 5 * time.Second}, nil, nil)
	r := NewReconciler(brokenLocal{f.local}, c, f.auth, nil)

	out := r.Save(ctx, sample("a", models.LanguagePython))
	assert.True(t, out.RemoteAttempted)
	assert.EqualError(t, out.LocalErr, "disk full")
	assert.Error(t, out.RemoteErr)
	assert.Nil(t, out.Remote)
	assert.Empty(t, f.local.ListSessions(ctx))
}

func TestGet(t *testing.T) {
	t.Run("logged out", func(t *testing.T) {
		f := newFixture(t, false)
		ctx := context.Background()
		require.NoError(t, f.local.SaveSession(ctx, sample("a", models.LanguagePython)))

		s, src, err := f.r.Get(ctx, "a", DetailPolicy)
		require.NoError(t, err)
		assert.Equal(t, SourceLocal, src)
		assert.Equal(t, "x = 1", s.Snippet)

		_, _, err = f.r.Get(ctx, "missing", DetailPolicy)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("logged in", func(t *testing.T) {
		f := newFixture(t, true)
		ctx := context.Background()
		out := f.r.Save(ctx, sample("a", models.LanguagePython))
		require.NoError(t, out.RemoteErr)

		s, src, err := f.r.Get(ctx, out.Remote.ID, DetailPolicy)
		require.NoError(t, err)
		assert.Equal(t, SourceRemote, src)
		assert.Equal(t, out.Remote.ID, s.ID)

		_, _, err = f.r.Get(ctx, "999", DetailPolicy)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("remote failure", func(t *testing.T) {
		f := newFixture(t, true)
		ctx := context.Background()
		require.NoError(t, f.local.SaveSession(ctx, sample("a", models.LanguagePython)))
		f.backend.Fail(testutil.RouteGetSession, http.StatusBadGateway)

		_, src, err := f.r.Get(ctx, "a", DetailPolicy)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, SourceNone, src)

		s, src, err := f.r.Get(ctx, "a", DashboardPolicy)
		require.NoError(t, err)
		assert.Equal(t, SourceLocal, src)
		assert.Equal(t, models.SessionID("a"), s.ID)
	})
}

func TestDelete_RoutesByLoginState(t *testing.T) {
	t.Run("logged out deletes locally", func(t *testing.T) {
		f := newFixture(t, false)
		ctx := context.Background()
		require.NoError(t, f.local.SaveSession(ctx, sample("a", models.LanguagePython)))

		require.NoError(t, f.r.Delete(ctx, "a"))
		assert.Empty(t, f.local.ListSessions(ctx))
	})

	t.Run("logged in deletes remotely only", func(t *testing.T) {
		f := newFixture(t, true)
		ctx := context.Background()
		out := f.r.Save(ctx, sample("a", models.LanguagePython))
		require.NoError(t, out.RemoteErr)

		require.NoError(t, f.r.Delete(ctx, out.Remote.ID))
		assert.Empty(t, f.backend.Sessions(f.auth.token))
		assert.Len(t, f.local.ListSessions(ctx), 1, "local copy is untouched")

		assert.Error(t, f.r.Delete(ctx, out.Remote.ID))
	})
}

func TestClear(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.local.SaveSession(ctx, sample("a", models.LanguagePython)))
	require.NoError(t, f.local.SaveSession(ctx, sample("b", models.LanguagePython)))

	f.auth.token = "some-token"
	assert.ErrorIs(t, f.r.Clear(ctx), ErrBulkRemoteUnsupported)
	assert.Len(t, f.local.ListSessions(ctx), 2)

	f.auth.token = ""
	require.NoError(t, f.r.Clear(ctx))
	assert.Empty(t, f.local.ListSessions(ctx))
}

func TestFilterByLanguage(t *testing.T) {
	all := []models.Session{
		sample("a", models.LanguagePython),
		sample("b", models.LanguageJava),
		sample("c", models.LanguagePython),
	}

	assert.Len(t, FilterByLanguage(all, ""), 3)
	assert.Len(t, FilterByLanguage(all, "all"), 3)
	assert.Len(t, FilterByLanguage(all, "Python"), 2)
	assert.Len(t, FilterByLanguage(all, "java"), 1)
	assert.Empty(t, FilterByLanguage(all, "rust"))
}

func TestFailureModeString(t *testing.T) {
	assert.Equal(t, "fallback-to-local", FallbackToLocal.String())
	assert.Equal(t, "show-empty", ShowEmpty.String())
}
