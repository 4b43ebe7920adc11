package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/output"
	"github.com/joescharf/revu/internal/review"
)

var (
	analyzeLang  string
	analyzeDepth string
	analyzeJSON  bool
)

// stdinInput is read when the source argument is "-".
var stdinInput io.Reader = os.Stdin

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Review a code snippet",
	Long: `Submit code to the review backend and record the session.

The snippet is read from <file>, from stdin when the argument is "-", or
from the saved draft when no argument is given. The language is inferred
from the file extension unless --lang is set; the depth defaults to the
saved preference (see 'revu settings depth').`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src string
		if len(args) > 0 {
			src = args[0]
		}
		return analyzeRun(cmdContext(cmd), src)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeLang, "lang", "l", "", "Language: javascript, python, java, c, cpp")
	analyzeCmd.Flags().StringVarP(&analyzeDepth, "depth", "d", "", "Depth: standard or deep")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

// readSource loads a snippet from a file path, "-" for stdin, or the draft
// when src is empty. The returned language is empty when it cannot be
// inferred.
func readSource(ctx context.Context, s *services, src string) (string, models.Language, error) {
	switch src {
	case "":
		return s.local.Draft(ctx), "", nil
	case "-":
		data, err := io.ReadAll(stdinInput)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}

	if err := review.CheckLoadable(src); err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", "", fmt.Errorf("failed to read the selected file: %w", err)
	}
	lang, _ := review.DetectLanguage(src)
	return string(data), lang, nil
}

func resolveLanguage(flag string, detected models.Language) (models.Language, error) {
	if flag != "" {
		return models.ParseLanguage(flag)
	}
	if detected != "" {
		return detected, nil
	}
	return models.LanguageJavaScript, nil
}

func resolveDepth(ctx context.Context, s *services, flag string) (models.Depth, error) {
	if flag != "" {
		return models.ParseDepth(flag)
	}
	return s.local.Depth(ctx), nil
}

func analyzeRun(ctx context.Context, src string) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}

	content, detected, err := readSource(ctx, s, src)
	if err != nil {
		return err
	}
	lang, err := resolveLanguage(analyzeLang, detected)
	if err != nil {
		return err
	}
	depth, err := resolveDepth(ctx, s, analyzeDepth)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would analyze %d bytes of %s in %s mode", len(content), lang, depth)
		return nil
	}

	// Loaded snippets become the draft, as if typed into the editor
	if src != "" {
		if err := s.local.SaveDraft(ctx, content); err != nil {
			ui.Warning("Could not save draft: %v", err)
		}
	}

	res, err := s.reviewer.Run(ctx, review.Request{Language: lang, Content: content, Depth: depth})
	if err != nil {
		if errors.Is(err, review.ErrEmptyContent) {
			return fmt.Errorf("%w (pass a file, '-' for stdin, or set a draft)", err)
		}
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Session)
	}

	printReview(res)
	return nil
}

func printReview(res *review.Result) {
	mode := "Standard"
	if res.Depth == models.DepthDeep {
		mode = "Deep"
	}
	fmt.Fprintf(ui.Out, "Code Review (%s Mode): %s\n\n", mode, res.Session.Language)

	ui.Issues(res.Session.Issues, "No issues yet.")
	fmt.Fprintln(ui.Out)

	fmt.Fprintln(ui.Out, output.Cyan("AI Feedback"))
	fmt.Fprintln(ui.Out, review.FormatFeedback(res.Session.AIFeedback, res.Depth))
	fmt.Fprintln(ui.Out)

	fmt.Fprintf(ui.Out, "Confidence: %s\n", output.ConfidenceColor(res.Confidence))
	ui.VerboseLog("session %s", res.Session.ID)

	switch {
	case res.Save.LocalErr != nil:
		ui.Warning("Could not save session locally: %v", res.Save.LocalErr)
	case res.Save.RemoteErr != nil:
		ui.Warning("Saved locally; saving to server failed: %v", res.Save.RemoteErr)
	case res.Save.Remote != nil:
		ui.Success("Saved session %s (server id %s)", shortID(string(res.Session.ID)), res.Save.Remote.ID)
	default:
		ui.Success("Saved session %s locally", shortID(string(res.Session.ID)))
	}
}
