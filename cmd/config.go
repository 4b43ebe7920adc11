package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/revu/internal/output"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "revu"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage revu configuration.

Preferences such as depth and theme live in the local store; see 'revu settings'.
Running bare 'revu config' is the same as 'revu config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write config.yaml with the effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration and where each value comes from",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configCheckRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

const configTemplate = `# revu configuration
# Effective values and their sources: revu config show

# Directory for revu's own files (default: ~/.config/revu)
# state_dir: {{ .StateDir }}

# SQLite database holding sessions, the draft, and the login token
# db_path: {{ .DBPath }}

# Diagnostics on stderr: debug, info, warn, error
log_level: "{{ .LogLevel }}"

# Review backend
api:
  base_url: "{{ .APIBaseURL }}"
  # Per-request timeout, as a Go duration
  timeout: "{{ .APITimeout }}"

review:
  # Label stored with each confidence sample
  model: "{{ .ReviewModel }}"

# Retention on this machine; 0 keeps everything
local:
  max_sessions: {{ .MaxSessions }}
  max_confidence_entries: {{ .MaxConfidenceEntries }}
`

type configTemplateData struct {
	StateDir             string
	DBPath               string
	LogLevel             string
	APIBaseURL           string
	APITimeout           string
	ReviewModel          string
	MaxSessions          int
	MaxConfidenceEntries int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func renderConfig() ([]byte, error) {
	data := configTemplateData{
		StateDir:             viper.GetString("state_dir"),
		DBPath:               viper.GetString("db_path"),
		LogLevel:             viper.GetString("log_level"),
		APIBaseURL:           viper.GetString("api.base_url"),
		APITimeout:           viper.GetDuration("api.timeout").String(),
		ReviewModel:          viper.GetString("review.model"),
		MaxSessions:          viper.GetInt("local.max_sessions"),
		MaxConfidenceEntries: viper.GetInt("local.max_confidence_entries"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse config template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return buf.Bytes(), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	content, err := renderConfig()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintf(ui.Out, "\n%s", content)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintf(ui.Out, "\n%s", content)
	return nil
}

// configKeys lists the keys shown by 'config show', in display order.
var configKeys = []string{
	"api.base_url",
	"api.timeout",
	"log_level",
	"review.model",
	"local.max_sessions",
	"local.max_confidence_entries",
	"state_dir",
	"db_path",
}

// envVarFor maps a config key to the variable AutomaticEnv reads for it.
func envVarFor(key string) string {
	return "REVU_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	fileKeys := map[string]bool{}
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
		fileKeys = readConfigFileValues(cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	table := ui.Table([]string{"Key", "Value", "Source"})
	for _, k := range configKeys {
		_ = table.Append([]string{k, fmt.Sprint(viper.Get(k)), detectSource(k, envVarFor(k), fileKeys)})
	}
	return table.Render()
}

// readConfigFileValues returns the dotted keys present in the YAML file.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}
	flattenKeys("", parsed, result)
	return result
}

func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
			continue
		}
		result[fullKey] = true
	}
}

func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return "env: " + envVar
	}
	if fileValues[key] {
		return "file"
	}
	return "default"
}

// validateConfig reports every invalid setting.
func validateConfig() []error {
	var errs []error

	raw := viper.GetString("api.base_url")
	if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url: %q is not an http(s) URL", raw))
	}
	if viper.GetDuration("api.timeout") <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout: must be a positive duration, got %q", viper.GetString("api.timeout")))
	}
	switch strings.ToLower(viper.GetString("log_level")) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", viper.GetString("log_level")))
	}
	for _, k := range []string{"local.max_sessions", "local.max_confidence_entries"} {
		if viper.GetInt(k) < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", k))
		}
	}
	if viper.GetString("db_path") == "" {
		errs = append(errs, errors.New("db_path: must not be empty"))
	}
	return errs
}

func configCheckRun() error {
	errs := validateConfig()
	if len(errs) == 0 {
		ui.Success("Configuration OK (backend %s)", output.Cyan(viper.GetString("api.base_url")))
		return nil
	}
	for _, err := range errs {
		ui.Error("%v", err)
	}
	return fmt.Errorf("%d invalid config values", len(errs))
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return errors.New("$EDITOR is not set; export EDITOR=vim or similar")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'revu config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
