package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/auth"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/sessions"
	"github.com/joescharf/revu/internal/testutil"
)

// cmdEnv extends testEnv with a fake backend and captured output.
func cmdEnv(t *testing.T) (*testutil.Backend, *bytes.Buffer) {
	t.Helper()
	testEnv(t)

	b := testutil.NewBackend(t)
	viper.Set("api.base_url", b.URL())

	var out bytes.Buffer
	ui.Out = &out
	ui.ErrOut = &out

	origStdin, origPassword := stdinInput, passwordInput
	t.Cleanup(func() {
		stdinInput, passwordInput = origStdin, origPassword
		analyzeLang, analyzeDepth, analyzeJSON = "", "", false
		sessionLang, sessionLimit, sessionJSON, sessionForce = "all", 0, false, false
		authUsername, authEmail, authPassword = "", "", ""
		analyticsJSON = false
		dryRun = false
	})
	return b, &out
}

func writeSnippet(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func login(t *testing.T, b *testutil.Backend) {
	t.Helper()
	b.AddUser("ada", "ada@example.com", "secret")
	authUsername, authPassword = "ada", "secret"
	require.NoError(t, loginRun(context.Background()))
}

func TestAnalyze_LocalOnly(t *testing.T) {
	b, out := cmdEnv(t)
	b.SetAnalysis(testutil.Analysis{
		Issues:     []models.Issue{{Type: models.IssueTypeSyntax, Message: "Missing colon"}},
		AIFeedback: "Add a colon. Consider tests.",
	})
	path := writeSnippet(t, "main.py", "def f()\n  pass\n")

	require.NoError(t, analyzeRun(context.Background(), path))
	assert.Contains(t, out.String(), "Code Review (Standard Mode): python")
	assert.Contains(t, out.String(), "Missing colon")
	assert.Contains(t, out.String(), "locally")

	s := svc
	stored := s.local.ListSessions(context.Background())
	require.Len(t, stored, 1)
	assert.Equal(t, models.LanguagePython, stored[0].Language)
	assert.Equal(t, "def f()\n  pass\n", s.local.Draft(context.Background()))
	assert.Len(t, s.local.ConfidenceEntries(context.Background()), 1)
}

func TestAnalyze_EmptyDraft(t *testing.T) {
	cmdEnv(t)

	err := analyzeRun(context.Background(), "")
	assert.ErrorIs(t, err, review.ErrEmptyContent)
}

func TestAnalyze_Stdin(t *testing.T) {
	_, out := cmdEnv(t)
	stdinInput = strings.NewReader("int main() { return 0; }")
	analyzeLang = "c"

	require.NoError(t, analyzeRun(context.Background(), "-"))
	assert.Contains(t, out.String(), "Code Review (Standard Mode): c")
}

func TestAnalyze_UnsupportedFile(t *testing.T) {
	cmdEnv(t)
	path := writeSnippet(t, "notes.md", "# hi")

	assert.Error(t, analyzeRun(context.Background(), path))
}

func TestAnalyze_DryRun(t *testing.T) {
	b, _ := cmdEnv(t)
	dryRun = true
	path := writeSnippet(t, "app.js", "console.log(1)")

	require.NoError(t, analyzeRun(context.Background(), path))
	assert.Empty(t, b.AnalyzeAuthHeaders())
}

func TestAnalyze_LoggedInSavesToServer(t *testing.T) {
	b, out := cmdEnv(t)
	login(t, b)
	path := writeSnippet(t, "Main.java", "class Main {}")

	require.NoError(t, analyzeRun(context.Background(), path))
	assert.Contains(t, out.String(), "server id")

	remote := b.Sessions(svc.auth.Token())
	require.Len(t, remote, 1)
	assert.Equal(t, models.LanguageJava, remote[0].Language)
	assert.Len(t, svc.local.ListSessions(context.Background()), 1)
}

func TestAnalyze_RemoteSaveFailureKeepsLocal(t *testing.T) {
	b, out := cmdEnv(t)
	login(t, b)
	b.Fail(testutil.RouteCreateSession, 500)
	path := writeSnippet(t, "a.py", "x = 1")

	require.NoError(t, analyzeRun(context.Background(), path))
	assert.Contains(t, out.String(), "saving to server failed")
	assert.Len(t, svc.local.ListSessions(context.Background()), 1)
}

func TestLogin_BadPassword(t *testing.T) {
	b, _ := cmdEnv(t)
	b.AddUser("ada", "ada@example.com", "secret")
	authUsername, authPassword = "ada", "wrong"

	assert.Error(t, loginRun(context.Background()))
	require.NotNil(t, svc)
	assert.False(t, svc.auth.Authenticated())
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	b, out := cmdEnv(t)
	b.AddUser("ada", "ada@example.com", "secret")
	authUsername = "ada"
	passwordInput = strings.NewReader("secret\n")

	require.NoError(t, loginRun(context.Background()))
	assert.Contains(t, out.String(), "Logged in as")
}

func TestLogin_DryRun(t *testing.T) {
	b, out := cmdEnv(t)
	b.AddUser("ada", "ada@example.com", "secret")
	authUsername, authPassword = "ada", "secret"
	dryRun = true
	ui.DryRun = true

	require.NoError(t, loginRun(context.Background()))
	assert.Contains(t, out.String(), "Would log in as ada")
	assert.False(t, svc.auth.Authenticated())
	assert.Empty(t, svc.local.Token(context.Background()))
}

func TestRegister(t *testing.T) {
	_, out := cmdEnv(t)
	authUsername, authEmail, authPassword = "grace", "grace@example.com", "pw"

	require.NoError(t, registerRun(context.Background()))
	assert.Contains(t, out.String(), "Account created")

	// Duplicate username
	assert.Error(t, registerRun(context.Background()))
}

func TestLogout(t *testing.T) {
	b, out := cmdEnv(t)
	login(t, b)

	require.NoError(t, logoutRun(context.Background()))
	assert.False(t, svc.auth.Authenticated())
	assert.Empty(t, svc.local.Token(context.Background()))

	out.Reset()
	require.NoError(t, whoamiRun(context.Background()))
	assert.Contains(t, out.String(), "Not logged in")
}

func TestSessionList_FilterAndJSON(t *testing.T) {
	_, out := cmdEnv(t)
	stdinInput = strings.NewReader("print(1)")
	analyzeLang = "python"
	require.NoError(t, analyzeRun(context.Background(), "-"))
	stdinInput = strings.NewReader("int x;")
	analyzeLang = "c"
	require.NoError(t, analyzeRun(context.Background(), "-"))

	out.Reset()
	sessionLang = "python"
	sessionJSON = true
	require.NoError(t, sessionListRun(context.Background()))
	assert.Contains(t, out.String(), `"language": "python"`)
	assert.NotContains(t, out.String(), `"language": "c"`)
}

func TestSessionShowAndDelete_ByPrefix(t *testing.T) {
	_, out := cmdEnv(t)
	stdinInput = strings.NewReader("let a = 1")
	require.NoError(t, analyzeRun(context.Background(), "-"))

	list := svc.local.ListSessions(context.Background())
	require.Len(t, list, 1)
	prefix := string(list[0].ID)[:8]

	out.Reset()
	require.NoError(t, sessionShowRun(context.Background(), prefix))
	assert.Contains(t, out.String(), "let a = 1")

	sessionForce = true
	require.NoError(t, sessionDeleteRun(context.Background(), prefix))
	assert.Empty(t, svc.local.ListSessions(context.Background()))
}

func TestSessionDelete_Declined(t *testing.T) {
	_, out := cmdEnv(t)
	stdinInput = strings.NewReader("let a = 1")
	require.NoError(t, analyzeRun(context.Background(), "-"))
	id := string(svc.local.ListSessions(context.Background())[0].ID)

	stdinInput = strings.NewReader("n\n")
	require.NoError(t, sessionDeleteRun(context.Background(), id))
	assert.Contains(t, out.String(), "Aborted")
	assert.Len(t, svc.local.ListSessions(context.Background()), 1)
}

func TestSessionClear(t *testing.T) {
	cmdEnv(t)
	stdinInput = strings.NewReader("let a = 1")
	require.NoError(t, analyzeRun(context.Background(), "-"))

	sessionForce = true
	require.NoError(t, sessionClearRun(context.Background()))
	assert.Empty(t, svc.local.ListSessions(context.Background()))
}

func TestSessionClear_LoggedInRefused(t *testing.T) {
	b, _ := cmdEnv(t)
	login(t, b)
	sessionForce = true

	assert.ErrorIs(t, sessionClearRun(context.Background()), sessions.ErrBulkRemoteUnsupported)
}

func TestDashboard_Empty(t *testing.T) {
	_, out := cmdEnv(t)
	s, err := getServices(context.Background())
	require.NoError(t, err)

	require.NoError(t, dashboardRun(context.Background(), s))
	assert.Contains(t, out.String(), "Not logged in")
	assert.Contains(t, out.String(), "0 sessions, last review never")
}

func TestDashboard_RemoteDownFallsBackToLocal(t *testing.T) {
	b, out := cmdEnv(t)
	stdinInput = strings.NewReader("let a = 1")
	require.NoError(t, analyzeRun(context.Background(), "-"))
	login(t, b)
	b.Fail(testutil.RouteListSessions, 500)

	out.Reset()
	require.NoError(t, dashboardRun(context.Background(), svc))
	assert.Contains(t, out.String(), "Welcome, ada")
	assert.Contains(t, out.String(), "1 sessions")
}

func TestDraft_SetShowClear(t *testing.T) {
	_, out := cmdEnv(t)
	stdinInput = strings.NewReader("const x = 2;\n")

	require.NoError(t, draftSetRun(context.Background(), "-"))
	out.Reset()
	require.NoError(t, draftShowRun(context.Background()))
	assert.Equal(t, "const x = 2;\n", out.String())

	require.NoError(t, draftClearRun(context.Background()))
	out.Reset()
	require.NoError(t, draftShowRun(context.Background()))
	assert.Contains(t, out.String(), "No draft saved")
}

func TestSettings_Depth(t *testing.T) {
	_, out := cmdEnv(t)

	require.NoError(t, settingsDepthRun(context.Background(), "deep"))
	out.Reset()
	require.NoError(t, settingsDepthRun(context.Background(), ""))
	assert.Equal(t, "deep\n", out.String())

	assert.Error(t, settingsDepthRun(context.Background(), "extreme"))
}

func TestSettings_Theme(t *testing.T) {
	_, out := cmdEnv(t)

	require.NoError(t, settingsThemeRun(context.Background(), "dark"))
	out.Reset()
	require.NoError(t, settingsShowRun(context.Background()))
	assert.Contains(t, out.String(), "dark")

	assert.Error(t, settingsThemeRun(context.Background(), "solarized"))
}

func TestAnalytics_RequiresLogin(t *testing.T) {
	cmdEnv(t)

	assert.ErrorIs(t, analyticsRun(context.Background()), auth.ErrUnauthenticated)
}

func TestAnalytics_LoggedIn(t *testing.T) {
	b, out := cmdEnv(t)
	login(t, b)
	b.SetAnalysis(testutil.Analysis{
		Issues: []models.Issue{
			{Type: models.IssueTypeSecurity, Severity: models.SeverityError, Message: "eval"},
			{Type: models.IssueTypeStyle, Message: "naming"},
		},
		AIFeedback: "ok",
	})
	stdinInput = strings.NewReader("eval(x)")
	require.NoError(t, analyzeRun(context.Background(), "-"))

	out.Reset()
	require.NoError(t, analyticsRun(context.Background()))
	assert.Contains(t, out.String(), "Analytics for")
	assert.Contains(t, out.String(), "1 sessions, 2 issues")
	assert.Contains(t, out.String(), "undefined")
}

func TestResolveLanguage(t *testing.T) {
	lang, err := resolveLanguage("", "")
	require.NoError(t, err)
	assert.Equal(t, models.LanguageJavaScript, lang)

	lang, err = resolveLanguage("", models.LanguageCPP)
	require.NoError(t, err)
	assert.Equal(t, models.LanguageCPP, lang)

	lang, err = resolveLanguage("java", models.LanguageCPP)
	require.NoError(t, err)
	assert.Equal(t, models.LanguageJava, lang)

	_, err = resolveLanguage("cobol", "")
	assert.Error(t, err)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "x = 1", firstLine("\n\n  x = 1\ny = 2", 40))
	assert.Equal(t, "abcd…", firstLine("abcdefgh", 5))
	assert.Equal(t, "", firstLine("  \n ", 5))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12", shortID("12"))
	assert.Equal(t, "0123abcd", shortID("0123abcd-ffff"))
}
