package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/local"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/output"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change review preferences",
	Long: `Preferences are stored with your sessions, not in the config file.

  depth  standard or deep analysis (default standard)
  theme  light or dark (default light)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShowRun(cmdContext(cmd))
	},
}

var settingsDepthCmd = &cobra.Command{
	Use:       "depth [standard|deep]",
	Short:     "Show or set the default analysis depth",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(models.DepthStandard), string(models.DepthDeep)},
	RunE: func(cmd *cobra.Command, args []string) error {
		var v string
		if len(args) > 0 {
			v = args[0]
		}
		return settingsDepthRun(cmdContext(cmd), v)
	},
}

var settingsThemeCmd = &cobra.Command{
	Use:       "theme [light|dark]",
	Short:     "Show or set the display theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(local.ThemeLight), string(local.ThemeDark)},
	RunE: func(cmd *cobra.Command, args []string) error {
		var v string
		if len(args) > 0 {
			v = args[0]
		}
		return settingsThemeRun(cmdContext(cmd), v)
	},
}

func init() {
	settingsCmd.AddCommand(settingsDepthCmd)
	settingsCmd.AddCommand(settingsThemeCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsShowRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ui.Out, "  %-8s %s\n", "depth", output.Cyan(string(s.local.Depth(ctx))))
	fmt.Fprintf(ui.Out, "  %-8s %s\n", "theme", output.Cyan(string(s.local.Theme(ctx))))
	return nil
}

func settingsDepthRun(ctx context.Context, value string) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	if value == "" {
		fmt.Fprintln(ui.Out, s.local.Depth(ctx))
		return nil
	}

	d, err := models.ParseDepth(value)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would set depth to %s", d)
		return nil
	}
	if err := s.local.SetDepth(ctx, d); err != nil {
		return fmt.Errorf("save depth: %w", err)
	}
	ui.Success("Depth set to %s", output.Cyan(string(d)))
	return nil
}

func settingsThemeRun(ctx context.Context, value string) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	if value == "" {
		fmt.Fprintln(ui.Out, s.local.Theme(ctx))
		return nil
	}

	t := local.Theme(value)
	if t != local.ThemeLight && t != local.ThemeDark {
		return fmt.Errorf("unsupported theme %q (want light or dark)", value)
	}
	if dryRun {
		ui.DryRunMsg("Would set theme to %s", t)
		return nil
	}
	if err := s.local.SetTheme(ctx, t); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	ui.Success("Theme set to %s", output.Cyan(string(t)))
	return nil
}
