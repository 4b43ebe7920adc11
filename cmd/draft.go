package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Show or change the saved draft snippet",
	Long: `The draft is the snippet 'revu analyze' uses when no file is given.
Files passed to 'revu analyze' replace it.

Running bare 'revu draft' is the same as 'revu draft show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftShowRun(cmdContext(cmd))
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftShowRun(cmdContext(cmd))
	},
}

var draftSetCmd = &cobra.Command{
	Use:   "set <file|->",
	Short: "Replace the draft with a file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftSetRun(cmdContext(cmd), args[0])
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftClearRun(cmdContext(cmd))
	},
}

func init() {
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftSetCmd)
	draftCmd.AddCommand(draftClearCmd)
	rootCmd.AddCommand(draftCmd)
}

func draftShowRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	d := s.local.Draft(ctx)
	if d == "" {
		ui.Info("No draft saved.")
		return nil
	}
	fmt.Fprint(ui.Out, d)
	if d[len(d)-1] != '\n' {
		fmt.Fprintln(ui.Out)
	}
	return nil
}

func draftSetRun(ctx context.Context, src string) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	content, _, err := readSource(ctx, s, src)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would save a %d byte draft", len(content))
		return nil
	}
	if err := s.local.SaveDraft(ctx, content); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	ui.Success("Draft saved (%d bytes)", len(content))
	return nil
}

func draftClearRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would clear the draft")
		return nil
	}
	if err := s.local.SaveDraft(ctx, ""); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	ui.Success("Draft cleared")
	return nil
}
