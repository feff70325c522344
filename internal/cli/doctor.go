package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wiresync/internal/config"
	"github.com/ppiankov/wiresync/internal/store"
	"github.com/ppiankov/wiresync/internal/types"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, database and API reachability",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config.yaml: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config.yaml (provider %s, %s)", cfg.Provider.Name, cfg.API.BaseURL)

	// Token
	if cfg.API.Token == "" {
		printCheck(false, "api token (set %s)", cfg.API.TokenEnv)
		ok = false
	} else {
		printCheck(true, "api token from %s", tokenSource(cfg))
	}

	// Database
	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		printCheck(false, "database: %v", err)
		ok = false
	} else {
		defer func() { _ = db.Close() }()
		version, err := db.SchemaVersion(context.Background())
		if err != nil {
			printCheck(false, "database schema: %v", err)
			ok = false
		} else {
			printCheck(true, "database %s (schema v%d)", cfg.Storage.Path, version)
		}
	}

	// API
	if cfg.API.Token != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := checkAPI(ctx, cfg); err != nil {
			printCheck(false, "api: %v", newRedactor(cfg).Error(err))
			if types.Retryable(err) {
				printInfo("transport failures are usually temporary; retry later")
			}
			ok = false
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func checkAPI(ctx context.Context, cfg *config.Config) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	channels, err := client.Channels(ctx)
	if err != nil {
		return err
	}
	printCheck(true, "api reachable (%d channels)", len(channels))
	return nil
}

func tokenSource(cfg *config.Config) string {
	if os.Getenv(cfg.API.TokenEnv) != "" {
		return "$" + cfg.API.TokenEnv
	}
	return "config.yaml"
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
