package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/analytics"
	"github.com/joescharf/revu/internal/auth"
	"github.com/joescharf/revu/internal/output"
	"github.com/joescharf/revu/internal/sessions"
)

var analyticsJSON bool

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Issue type and severity distribution of your reviews",
	Long: `Aggregate the server session history of the logged-in user by issue
type and severity, and summarize the local confidence trend.

Requires login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyticsRun(cmdContext(cmd))
	},
}

func init() {
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(analyticsCmd)
}

func analyticsRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	st := s.auth.State()
	if !st.LoggedIn() {
		return fmt.Errorf("%w: please log in to view analytics data", auth.ErrUnauthenticated)
	}

	res := s.sessions.List(ctx, sessions.AnalyticsPolicy)
	if res.RemoteErr != nil {
		ui.Warning("Could not load sessions from the server: %v", res.RemoteErr)
	}
	sum := analytics.Summarize(res.Sessions)
	trend := analytics.TrendOf(s.local.ConfidenceEntries(ctx))

	if analyticsJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary    analytics.Summary `json:"summary"`
			Confidence analytics.Trend   `json:"confidence"`
		}{sum, trend})
	}

	fmt.Fprintf(ui.Out, "Analytics for %s\n\n", output.Cyan(st.User.Username))
	if sum.Empty() {
		ui.Info("No analytics data yet. Run a few code reviews first.")
		return nil
	}
	fmt.Fprintf(ui.Out, "%d sessions, %d issues\n\n", sum.Sessions, sum.Issues)

	printCounts("Issue type", sum.ByType)
	printCounts("Severity", sum.BySeverity)
	printCounts("Language", sum.ByLanguage)

	if trend.Samples > 0 {
		fmt.Fprintf(ui.Out, "Confidence: latest %s, mean %s, range %s to %s over %d reviews\n",
			output.ConfidenceColor(trend.Latest), output.ConfidenceColor(trend.Mean),
			output.ConfidenceColor(trend.Min), output.ConfidenceColor(trend.Max), trend.Samples)
	}
	return nil
}

func printCounts(header string, counts []analytics.Count) {
	if len(counts) == 0 {
		return
	}
	table := ui.Table([]string{header, "Count"})
	for _, c := range counts {
		_ = table.Append([]string{c.Name, fmt.Sprintf("%d", c.Count)})
	}
	_ = table.Render()
	fmt.Fprintln(ui.Out)
}
