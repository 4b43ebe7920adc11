package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/analysis"
	"github.com/joescharf/revu/internal/auth"
	"github.com/joescharf/revu/internal/client"
	"github.com/joescharf/revu/internal/local"
	"github.com/joescharf/revu/internal/output"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/sessions"
	"github.com/joescharf/revu/internal/store"
	"github.com/joescharf/revu/internal/view"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store
	svc       *services

	verbose bool
	dryRun  bool
)

// services is the wired client stack. It is built on first use so that
// config and version commands run without a database or backend.
type services struct {
	local    *local.Store
	client   *client.Client
	auth     *auth.Holder
	pipeline *analysis.Pipeline
	sessions *sessions.Reconciler
	tracker  *view.Tracker
	reviewer *review.Runner
}

var rootCmd = &cobra.Command{
	Use:   "revu",
	Short: "AI code review from the terminal",
	Long: `revu submits code snippets to an AI code review backend and keeps
a history of review sessions. Sessions are stored locally and, when you
are logged in, on the server as well.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/revu/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "revu")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REVU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "revu"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key's default, rooted at stateDir.
func setDefaults(stateDir string) {
	apiDefaults := client.DefaultConfig()
	localDefaults := local.DefaultConfig()

	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "revu.db"))
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("api.base_url", apiDefaults.BaseURL)
	viper.SetDefault("api.timeout", apiDefaults.Timeout)
	viper.SetDefault("review.model", "AI Reviewer")
	viper.SetDefault("local.max_sessions", localDefaults.MaxSessions)
	viper.SetDefault("local.max_confidence_entries", localDefaults.MaxConfidenceEntries)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})))

	// Store and services are initialized lazily, only when commands need them.
}

// logLevel maps log_level to a slog level; --verbose forces debug.
func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(viper.GetString("log_level")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// rootRun handles `revu` with no subcommand: show the dashboard.
func rootRun(cmd *cobra.Command) error {
	s, err := getServices(cmdContext(cmd))
	if err != nil {
		return cmd.Help()
	}
	return dashboardRun(cmdContext(cmd), s)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getStore returns the shared store, initializing it on first call.
func getStore(ctx context.Context) (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getServices wires the client stack on first call. A persisted token is
// validated before returning, so commands see the restored login state.
func getServices(ctx context.Context) (*services, error) {
	if svc != nil {
		return svc, nil
	}

	kv, err := getStore(ctx)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	ls := local.New(kv, local.Config{
		MaxSessions:          viper.GetInt("local.max_sessions"),
		MaxConfidenceEntries: viper.GetInt("local.max_confidence_entries"),
	}, logger.With("component", "local"))

	c := client.New(client.Config{
		BaseURL: viper.GetString("api.base_url"),
		Timeout: viper.GetDuration("api.timeout"),
	}, ls, logger.With("component", "client"))

	holder := auth.NewHolder(ls, c, logger.With("component", "auth"))
	<-holder.Restore(ctx)

	pipeline := analysis.NewPipeline(c, holder, logger.With("component", "analysis"))
	reconciler := sessions.NewReconciler(ls, c, holder, logger.With("component", "sessions"))
	tracker := view.NewTracker()

	svc = &services{
		local:    ls,
		client:   c,
		auth:     holder,
		pipeline: pipeline,
		sessions: reconciler,
		tracker:  tracker,
		reviewer: review.NewRunner(pipeline, reconciler, ls, tracker, review.DefaultConfig(), logger.With("component", "review")),
	}
	return svc, nil
}
