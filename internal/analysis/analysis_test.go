package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/client"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/testutil"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func issues(n int) []models.Issue {
	out := make([]models.Issue, n)
	for i := range out {
		out[i] = models.Issue{Type: models.IssueTypeLogic, Message: fmt.Sprintf("issue %d", i+1)}
	}
	return out
}

func newTestPipeline(t *testing.T, tokens TokenSource) (*Pipeline, *testutil.Backend) {
	t.Helper()
	b := testutil.NewBackend(t)
	c := client.New(client.Config{BaseURL: b.URL(), Timeout: 5 * time.Second}, nil, nil)
	return NewPipeline(c, tokens, nil), b
}

func TestAnalyze_StandardTruncatesToCeilHalf(t *testing.T) {
	p, b := newTestPipeline(t, nil)
	b.SetAnalysis(testutil.Analysis{Issues: issues(7), AIFeedback: "Issue one. Issue two. Issue three."})

	res, err := p.Analyze(context.Background(), models.LanguagePython, "x = 1", models.DepthStandard)
	require.NoError(t, err)
	require.Len(t, res.Issues, 4)
	assert.Equal(t, "issue 1", res.Issues[0].Message)
	assert.Equal(t, "issue 4", res.Issues[3].Message)
	assert.Equal(t, "Summary (Standard Mode):\nIssue one. Issue two.", res.AIFeedback)
}

func TestAnalyze_DeepKeepsEverything(t *testing.T) {
	p, b := newTestPipeline(t, nil)
	b.SetAnalysis(testutil.Analysis{Issues: issues(7), AIFeedback: "Issue one. Issue two. Issue three."})

	res, err := p.Analyze(context.Background(), models.LanguagePython, "x = 1", models.DepthDeep)
	require.NoError(t, err)
	assert.Len(t, res.Issues, 7)
	assert.Equal(t, "Issue one. Issue two. Issue three.", res.AIFeedback)
}

func TestAnalyze_NilIssuesBecomeEmpty(t *testing.T) {
	p, b := newTestPipeline(t, nil)
	b.SetAnalysis(testutil.Analysis{AIFeedback: ""})

	res, err := p.Analyze(context.Background(), models.LanguageC, "int x;", models.DepthStandard)
	require.NoError(t, err)
	assert.NotNil(t, res.Issues)
	assert.Empty(t, res.Issues)
	assert.Equal(t, "Summary (Standard Mode):\nBasic checks completed.", res.AIFeedback)
}

func TestAnalyze_UsesTokenSource(t *testing.T) {
	p, b := newTestPipeline(t, staticToken("jwt"))
	_, err := p.Analyze(context.Background(), models.LanguageJava, "class A {}", models.DepthDeep)
	require.NoError(t, err)

	anon, b2 := newTestPipeline(t, staticToken(""))
	_, err = anon.Analyze(context.Background(), models.LanguageJava, "class A {}", models.DepthDeep)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer jwt"}, b.AnalyzeAuthHeaders())
	assert.Equal(t, []string{""}, b2.AnalyzeAuthHeaders())
}

func TestAnalyze_FailureIsUniform(t *testing.T) {
	p, b := newTestPipeline(t, nil)
	b.Fail(testutil.RouteAnalyze, http.StatusInternalServerError)

	_, err := p.Analyze(context.Background(), models.LanguagePython, "x", models.DepthDeep)
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	b.Close()
	_, err = p.Analyze(context.Background(), models.LanguagePython, "x", models.DepthDeep)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

type failingTransport struct{}

func (failingTransport) Analyze(context.Context, string, client.AnalyzeRequest) (*client.AnalyzeResponse, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestAnalyze_TransportError(t *testing.T) {
	p := NewPipeline(failingTransport{}, nil, nil)
	res, err := p.Analyze(context.Background(), models.LanguagePython, "x", models.DepthStandard)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestApplyStandardDepth_Counts(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {1, 1}, {2, 1}, {3, 2}, {6, 3}, {7, 4},
	}
	for _, tc := range cases {
		res := &Result{Issues: issues(tc.in)}
		ApplyStandardDepth(res)
		assert.Len(t, res.Issues, tc.want, "n=%d", tc.in)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"three sentences", "Issue one. Issue two. Issue three.", "Issue one. Issue two."},
		{"two sentences", "First. Second.", "First. Second."},
		{"one unterminated", "Looks good overall", "Looks good overall"},
		{"one terminated", "Looks good.", "Looks good."},
		{"empty", "", "Basic checks completed."},
		{"only dots", "...", "Basic checks completed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "Summary (Standard Mode):\n"+tt.want, Summarize(tt.in))
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.85, Confidence(&Result{Issues: issues(3)}), 1e-9)
	assert.InDelta(t, 1.0, Confidence(&Result{}), 1e-9)
	assert.InDelta(t, 0.0, Confidence(&Result{Issues: issues(40)}), 1e-9)

	backend := 0.42
	assert.InDelta(t, 0.42, Confidence(&Result{Issues: issues(3), Confidence: &backend}), 1e-9)
}
