package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/revu/internal/models"
)

// UI provides colored output and respects verbose/dry-run modes.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	blue          = color.New(color.FgHiBlue).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// SeverityColor returns the severity colored by seriousness. Empty
// severities render as "-".
func SeverityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityError:
		return red(string(sev))
	case models.SeverityWarning:
		return yellow(string(sev))
	case models.SeverityInfo:
		return cyan(string(sev))
	case "":
		return "-"
	default:
		return string(sev)
	}
}

// IssueTypeColor returns the capitalized issue type colored by category.
// Types without a dedicated color render blue.
func IssueTypeColor(t models.IssueType) string {
	label := IssueTitle(t)
	switch t {
	case models.IssueTypeRuntime:
		return red(label)
	case models.IssueTypeSyntax:
		return yellow(label)
	case models.IssueTypeSemgrep:
		return magenta(label)
	default:
		return blue(label)
	}
}

// IssueTitle capitalizes the first letter of an issue type.
func IssueTitle(t models.IssueType) string {
	s := string(t)
	if s == "" {
		return "Issue"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ConfidenceColor formats a confidence in [0, 1] as a colored percentage.
func ConfidenceColor(c float64) string {
	s := fmt.Sprintf("%.0f%%", c*100)
	switch {
	case c >= 0.8:
		return green(s)
	case c >= 0.5:
		return yellow(s)
	default:
		return red(s)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Issues prints one block per issue: the colored type and message, then the
// location, severity and recommendation when present.
func (u *UI) Issues(issues []models.Issue, empty string) {
	if len(issues) == 0 {
		fmt.Fprintln(u.Out, empty)
		return
	}
	for _, is := range issues {
		fmt.Fprintf(u.Out, "%s %s\n", IssueTypeColor(is.Type), is.Message)
		var details []string
		if is.Line != nil {
			loc := fmt.Sprintf("line %d", *is.Line)
			if is.Column != nil {
				loc += fmt.Sprintf(", col %d", *is.Column)
			}
			details = append(details, loc)
		}
		if is.Severity != "" {
			details = append(details, "severity "+SeverityColor(is.Severity))
		}
		if is.Confidence != nil {
			details = append(details, "confidence "+ConfidenceColor(*is.Confidence))
		}
		if len(details) > 0 {
			fmt.Fprintf(u.Out, "    %s\n", strings.Join(details, " \u00b7 "))
		}
		if is.Recommendation != "" {
			fmt.Fprintf(u.Out, "    %s %s\n", Cyan("fix:"), is.Recommendation)
		}
	}
}
