package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/analytics"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/output"
	"github.com/joescharf/revu/internal/sessions"
)

var (
	sessionLang  string
	sessionLimit int
	sessionJSON  bool
	sessionForce bool
)

const dashboardLimit = 10

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Browse and manage review sessions",
	Long: `List, show, and delete review sessions.

While logged in these commands use the server history; otherwise they use
the sessions stored on this machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionListRun(cmdContext(cmd))
	},
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionListRun(cmdContext(cmd))
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's snippet, issues, and feedback",
	Long:  "Show one session. IDs may be abbreviated to any unique prefix.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionShowRun(cmdContext(cmd), args[0])
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionDeleteRun(cmdContext(cmd), args[0])
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every local session",
	Long:  "Delete every session stored on this machine. Not available while logged in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionClearRun(cmdContext(cmd))
	},
}

func init() {
	sessionListCmd.Flags().StringVar(&sessionLang, "lang", "all", "Filter by language")
	sessionListCmd.Flags().IntVar(&sessionLimit, "limit", 0, "Maximum number of sessions (0 for all)")
	sessionListCmd.Flags().BoolVar(&sessionJSON, "json", false, "Print sessions as JSON")
	sessionShowCmd.Flags().BoolVar(&sessionJSON, "json", false, "Print the session as JSON")
	sessionDeleteCmd.Flags().BoolVarP(&sessionForce, "force", "f", false, "Do not ask for confirmation")
	sessionClearCmd.Flags().BoolVarP(&sessionForce, "force", "f", false, "Do not ask for confirmation")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}

func sessionListRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}

	res := s.sessions.List(ctx, sessions.DashboardPolicy)
	if res.RemoteErr != nil {
		ui.Warning("Server history unavailable, showing local sessions: %v", res.RemoteErr)
	}
	list := sessions.FilterByLanguage(res.Sessions, sessionLang)
	if sessionLimit > 0 && len(list) > sessionLimit {
		list = list[:sessionLimit]
	}

	if sessionJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		ui.Info("No review sessions found.")
		return nil
	}
	printSessionTable(list)
	ui.VerboseLog("%d sessions from %s store", len(list), res.Source)
	return nil
}

// dashboardRun prints the greeting, a recency line and the latest sessions.
func dashboardRun(ctx context.Context, s *services) error {
	st := s.auth.State()
	if st.LoggedIn() {
		fmt.Fprintf(ui.Out, "Welcome, %s!\n", output.Cyan(st.User.Username))
	} else {
		fmt.Fprintln(ui.Out, "Not logged in; showing sessions stored on this machine.")
	}

	res := s.sessions.List(ctx, sessions.DashboardPolicy)
	if res.RemoteErr != nil {
		ui.Warning("Server history unavailable, showing local sessions: %v", res.RemoteErr)
	}
	sum := analytics.Summarize(res.Sessions)
	fmt.Fprintf(ui.Out, "%d sessions, last review %s\n\n", sum.Sessions, analytics.Recency(sum.LastReview, time.Now()))

	if sum.Empty() {
		ui.Info("No review sessions yet. Try: revu analyze main.py")
		return nil
	}
	list := res.Sessions
	if len(list) > dashboardLimit {
		list = list[:dashboardLimit]
	}
	printSessionTable(list)
	return nil
}

func printSessionTable(list []models.Session) {
	table := ui.Table([]string{"ID", "When", "Language", "Issues", "Snippet"})
	for _, ss := range list {
		_ = table.Append([]string{
			output.Cyan(shortID(string(ss.ID))),
			timeAgo(ss.Timestamp),
			strings.ToUpper(string(ss.Language)),
			fmt.Sprintf("%d", len(ss.Issues)),
			firstLine(ss.Snippet, 40),
		})
	}
	_ = table.Render()
}

func sessionShowRun(ctx context.Context, ref string) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	id, err := resolveSessionID(ctx, s, ref)
	if err != nil {
		return err
	}

	sess, src, err := s.sessions.Get(ctx, id, sessions.DetailPolicy)
	if err != nil {
		return err
	}

	if sessionJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}

	fmt.Fprintf(ui.Out, "Session %s  %s  %s\n", output.Cyan(string(sess.ID)), sess.Timestamp.Local().Format("2006-01-02 15:04:05"), strings.ToUpper(string(sess.Language)))
	ui.VerboseLog("from %s store", src)
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, sess.Snippet)
	fmt.Fprintln(ui.Out)
	ui.Issues(sess.Issues, "No issues recorded.")
	if sess.AIFeedback != "" {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, output.Cyan("AI Feedback"))
		fmt.Fprintln(ui.Out, sess.AIFeedback)
	}
	return nil
}

func sessionDeleteRun(ctx context.Context, ref string) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	id, err := resolveSessionID(ctx, s, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete session %s", id)
		return nil
	}
	if !sessionForce && !confirm(fmt.Sprintf("Delete session %s?", shortID(string(id)))) {
		ui.Info("Aborted")
		return nil
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	ui.Success("Deleted session %s", output.Cyan(shortID(string(id))))
	return nil
}

func sessionClearRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	if s.sessions.Authenticated() {
		return sessions.ErrBulkRemoteUnsupported
	}

	n := len(s.local.ListSessions(ctx))
	if dryRun {
		ui.DryRunMsg("Would delete %d local sessions", n)
		return nil
	}
	if !sessionForce && !confirm("Clear all saved sessions?") {
		ui.Info("Aborted")
		return nil
	}

	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	ui.Success("Cleared %d sessions", n)
	return nil
}

// resolveSessionID expands a unique ID prefix against the current history.
// An exact match always wins.
func resolveSessionID(ctx context.Context, s *services, ref string) (models.SessionID, error) {
	res := s.sessions.List(ctx, sessions.DashboardPolicy)

	var matches []models.SessionID
	for _, ss := range res.Sessions {
		if string(ss.ID) == ref {
			return ss.ID, nil
		}
		if strings.HasPrefix(string(ss.ID), ref) {
			matches = append(matches, ss.ID)
		}
	}

	switch len(matches) {
	case 0:
		// Let the store decide; the session may be outside the listed history.
		return models.SessionID(ref), nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous session ID %s: matches %d sessions", ref, len(matches))
	}
}

func confirm(prompt string) bool {
	fmt.Fprintf(ui.Out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(stdinInput).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// shortID returns a truncated ID for display (first 8 chars).
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// firstLine returns the first non-blank line of s, cut to max runes.
func firstLine(s string, max int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if len(r) > max {
			return string(r[:max-1]) + "…"
		}
		return line
	}
	return ""
}

// timeAgo returns a human-readable duration from a time.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
