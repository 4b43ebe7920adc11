package review

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/analysis"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/sessions"
	"github.com/joescharf/revu/internal/view"
)

// ViewReview is the view generation key used by Run.
const ViewReview = "review"

// NoFeedback replaces an empty feedback string from the backend.
const NoFeedback = "No AI feedback available."

var (
	// ErrEmptyContent is returned for snippets that are empty after trimming.
	ErrEmptyContent = errors.New("please enter or upload code before analyzing")
	// ErrStale is returned when a newer review started before this one finished.
	ErrStale = errors.New("review superseded by a newer request")
)

// Config holds review configuration.
type Config struct {
	// Model is recorded with every confidence sample.
	Model string
}

// DefaultConfig returns the default review config, reading from viper when available.
func DefaultConfig() Config {
	model := strings.TrimSpace(viper.GetString("review.model"))
	if model == "" {
		model = "AI Reviewer"
	}
	return Config{Model: model}
}

// Analyzer runs one analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, lang models.Language, content string, depth models.Depth) (*analysis.Result, error)
}

// SessionSaver persists a finished review.
type SessionSaver interface {
	Save(ctx context.Context, s models.Session) sessions.SaveOutcome
}

// ConfidenceLog records confidence samples.
type ConfidenceLog interface {
	SaveConfidenceEntry(ctx context.Context, e models.ConfidenceEntry) error
}

// Request is one review submission.
type Request struct {
	// View keys stale-result dropping; a newer request under the same view
	// supersedes this one. Empty means ViewReview.
	View     string
	Language models.Language
	Content  string
	Depth    models.Depth
}

// Result is a completed review.
type Result struct {
	Session    models.Session
	Depth      models.Depth
	Confidence float64
	Save       sessions.SaveOutcome
}

// Runner runs reviews end to end.
type Runner struct {
	analyzer    Analyzer
	saver       SessionSaver
	confidence  ConfidenceLog
	generations *view.Tracker
	cfg         Config
	logger      *slog.Logger

	now func() time.Time
}

// NewRunner creates a review runner. A nil logger uses slog.Default().
func NewRunner(a Analyzer, saver SessionSaver, confidence ConfidenceLog, generations *view.Tracker, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		analyzer:    a,
		saver:       saver,
		confidence:  confidence,
		generations: generations,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Run analyzes req.Content and records the outcome. A remote save failure
// does not fail the run; it is reported in Result.Save.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	// 1. Validate input
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}

	// 2. Analyze under a fresh generation
	key := req.View
	if key == "" {
		key = ViewReview
	}
	gen := r.generations.Begin(key)
	defer r.generations.Finish(gen)

	res, err := r.analyzer.Analyze(ctx, req.Language, req.Content, req.Depth)
	if !r.generations.Current(gen) {
		r.logger.Debug("dropping stale review", "generation", gen)
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}

	feedback := res.AIFeedback
	if feedback == "" {
		feedback = NoFeedback
	}

	// 3. Build the session
	now := r.now().UTC()
	s := models.Session{
		ID:         models.SessionID(uuid.NewString()),
		Timestamp:  now,
		Language:   req.Language,
		Snippet:    req.Content,
		Issues:     res.Issues,
		AIFeedback: feedback,
	}

	// 4. Persist the session and a confidence sample
	out := &Result{
		Session:    s,
		Depth:      req.Depth,
		Confidence: analysis.Confidence(res),
	}
	out.Save = r.saver.Save(ctx, s)

	entry := models.ConfidenceEntry{Timestamp: now, Model: r.cfg.Model, Confidence: out.Confidence}
	if err := r.confidence.SaveConfidenceEntry(ctx, entry); err != nil {
		r.logger.Error("saving confidence sample", "error", err)
	}

	r.logger.Info("review complete", "session", s.ID, "issues", len(s.Issues), "confidence", out.Confidence)
	return out, nil
}
