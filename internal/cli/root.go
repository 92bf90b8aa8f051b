// Package cli wires the giji commands: the import profiles, label and
// template management, the ops HTTP server and the diagnostics.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/opentelekomcloud-infra/giji/internal/config"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.AppConfig
	logger *slog.Logger
)

// Version information (set at build time via -ldflags).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// commands that must work without configuration or credentials.
var noConfigCommands = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
	"health":     true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "giji",
		Short: "giji imports GitHub issues from opentelekomcloud-docs into Jira",
		Long: `giji walks the documentation repositories of the configured GitHub
organizations, selects issues by profile (bulk, bug, demand) and creates
the matching Jira issues. It also manages the standard label set,
distributes issue-form templates, and serves an ops API over the
recorded import history.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noConfigCommands[cmd.Name()] {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}

			level := logLevel
			if level == "" {
				level = cfg.LogLevel
			}
			logger = newLogger(level, logFormat)
			slog.SetDefault(logger)
			return nil
		},
		// Running with no arguments prints help and exits 0.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./giji.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text|json)")

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newLabelsCmd())
	rootCmd.AddCommand(newTemplatesCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger builds the slog logger for the requested level and format.
// Logs go to stderr so command output on stdout stays parseable.
func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logLocation is the timezone used for the JSON startup logs of the
// migration and tracing bootstrap. Falls back to UTC when the zone
// database is absent (scratch containers).
func logLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.UTC
	}
	return loc
}
