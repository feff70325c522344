package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wiresync/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}

	if !wrote {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s. Set %s and edit api.base_url before syncing.\n", configDir, config.DefaultTokenEnv)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# wiresync configuration

api:
  base_url: https://rmb.reuters.com/rmd/rest/xml
  token_env: WIRESYNC_TOKEN
  timeout: 13s

provider:
  name: reuters

sync:
  window: 12h          # lookback when never synced or stale
  max_staleness: 168h  # older watermarks restart from the window
  date_format: "2006.01.02.15.04"
  lease_ttl: 30m

schedule:
  every: 15m

storage:
  path: .wiresync/wiresync.db
  retain_days: 30

metrics:
  addr: ""             # e.g. ":9090" to serve /metrics in run mode

log:
  level: info
  redact: []           # extra regexps hidden in logs and errors

digest:
  since: 24h
  limit: 50
`
