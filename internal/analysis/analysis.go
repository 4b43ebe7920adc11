// Package analysis submits snippets to the backend and applies the
// client-side depth post-processing.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/joescharf/revu/internal/client"
	"github.com/joescharf/revu/internal/models"
)

// ErrBackendUnavailable is the uniform failure for any analysis request;
// transport errors and bad statuses are not distinguished.
var ErrBackendUnavailable = errors.New("backend not reachable or request failed")

const (
	summaryPrefix    = "Summary (Standard Mode):\n"
	summaryFallback  = "Basic checks completed."
	confidencePerHit = 0.05
)

// Transport performs the raw /analyze call.
type Transport interface {
	Analyze(ctx context.Context, token string, req client.AnalyzeRequest) (*client.AnalyzeResponse, error)
}

// TokenSource yields the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Result is a post-processed analysis.
type Result struct {
	Issues     []models.Issue
	AIFeedback string
	// Confidence is the backend's own value, nil when it did not send one.
	Confidence *float64
}

// Pipeline is the analysis request pipeline.
type Pipeline struct {
	transport Transport
	tokens    TokenSource
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. The token is read from tokens on every
// request. A nil logger uses slog.Default().
func NewPipeline(t Transport, tokens TokenSource, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{transport: t, tokens: tokens, logger: logger}
}

// Analyze submits content. Callers must reject empty content beforehand.
func (p *Pipeline) Analyze(ctx context.Context, lang models.Language, content string, depth models.Depth) (*Result, error) {
	var token string
	if p.tokens != nil {
		token = p.tokens.Token()
	}

	resp, err := p.transport.Analyze(ctx, token, client.AnalyzeRequest{
		Language: lang,
		Content:  content,
		Depth:    depth,
	})
	if err != nil {
		p.logger.Error("analyze request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	res := &Result{
		Issues:     resp.Issues,
		AIFeedback: resp.AIFeedback,
		Confidence: resp.Confidence,
	}
	if res.Issues == nil {
		res.Issues = []models.Issue{}
	}
	if depth == models.DepthStandard {
		ApplyStandardDepth(res)
	}
	return res, nil
}

// ApplyStandardDepth keeps the first ceil(n/2) issues, in order, and replaces
// the feedback with a summary of its first two sentences.
func ApplyStandardDepth(res *Result) {
	keep := (len(res.Issues) + 1) / 2
	res.Issues = res.Issues[:keep]
	res.AIFeedback = Summarize(res.AIFeedback)
}

// Summarize returns the standard-mode summary of feedback.
func Summarize(feedback string) string {
	parts := strings.Split(feedback, ".")
	n := min(2, len(parts))
	head := strings.Join(parts[:n], ".")
	if len(parts) > n {
		head += "."
	}
	if strings.Trim(head, ". \t\r\n") == "" {
		return summaryPrefix + summaryFallback
	}
	return summaryPrefix + strings.TrimSpace(head)
}

// Confidence returns the backend's confidence when supplied, otherwise a
// linear estimate from the issue count clamped to [0, 1].
func Confidence(res *Result) float64 {
	if res.Confidence != nil {
		return *res.Confidence
	}
	return math.Max(0, math.Min(1, 1-float64(len(res.Issues))*confidencePerHit))
}
