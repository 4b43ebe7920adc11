package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestSeverityColor(t *testing.T) {
	assert.Contains(t, SeverityColor(models.SeverityError), "error")
	assert.Contains(t, SeverityColor(models.SeverityWarning), "warning")
	assert.Contains(t, SeverityColor(models.SeverityInfo), "info")
	assert.Equal(t, "-", SeverityColor(""))
	assert.Equal(t, "critical", SeverityColor("critical"))
}

func TestIssueTypeColor(t *testing.T) {
	assert.Contains(t, IssueTypeColor(models.IssueTypeRuntime), "Runtime")
	assert.Contains(t, IssueTypeColor(models.IssueTypeSemgrep), "Semgrep")
	// Unknown types fall back to the default rendering
	assert.Contains(t, IssueTypeColor("performance"), "Performance")
	assert.Equal(t, "Issue", IssueTitle(""))
}

func TestConfidenceColor(t *testing.T) {
	assert.Contains(t, ConfidenceColor(0.9), "90%")
	assert.Contains(t, ConfidenceColor(0.6), "60%")
	assert.Contains(t, ConfidenceColor(0.1), "10%")
}

func TestIssues(t *testing.T) {
	u, out, _ := newTestUI()
	u.Issues(nil, "No issues yet.")
	assert.Equal(t, "No issues yet.\n", out.String())

	out.Reset()
	line, col := 12, 4
	u.Issues([]models.Issue{
		{Type: models.IssueTypeSyntax, Message: "missing colon", Line: &line, Column: &col, Severity: models.SeverityError, Recommendation: "add ':'"},
		{Type: models.IssueTypeStyle, Message: "long line"},
	}, "No issues yet.")

	got := out.String()
	assert.Contains(t, got, "missing colon")
	assert.Contains(t, got, "line 12, col 4")
	assert.Contains(t, got, "severity error")
	assert.Contains(t, got, "add ':'")
	assert.Contains(t, got, "long line")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"ID", "Language"})
	require.NotNil(t, table)

	table.Append([]string{"42", "python"})
	table.Append([]string{"43", "java"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "python"), "table output should contain rows")
	assert.True(t, strings.Contains(result, "LANGUAGE") || strings.Contains(result, "Language"),
		"table output should contain headers")
}
