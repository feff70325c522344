// Package cli provides the command-line interface for wiresync.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wiresync/internal/config"
	"github.com/ppiankov/wiresync/internal/privacy"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:          "wiresync",
	Short:        "Incrementally sync a news wire into a local store",
	Long:         "wiresync lists the channels of a news-wire API, fetches the items changed since the last successful sync, resolves the assets they reference, and stores everything in SQLite.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("wiresync %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".wiresync", "config directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the stderr logger for cfg. --verbose forces debug.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		if l, err := config.ParseLevel(cfg.Log.Level); err == nil {
			level = l
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: newRedactor(cfg).ReplaceAttr,
	}))
}

// newRedactor hides the api token and the configured log.redact patterns.
// Patterns were validated by config.Load.
func newRedactor(cfg *config.Config) *privacy.Redactor {
	if cfg == nil {
		r, _ := privacy.NewRedactor(nil)
		return r
	}
	r, err := privacy.NewRedactor(cfg.Log.Redact, cfg.API.Token)
	if err != nil {
		r, _ = privacy.NewRedactor(nil, cfg.API.Token)
	}
	return r
}
