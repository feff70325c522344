package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/wiresync/internal/config"
	"github.com/ppiankov/wiresync/internal/store"
	"github.com/ppiankov/wiresync/internal/watermark"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync watermark, lease and item counts",
	RunE:  statusAction,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "terminal", "output format: terminal, json")
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Provider      string    `json:"provider"`
	Watermark     time.Time `json:"watermark"`
	Synced        bool      `json:"synced"`
	LeaseOwner    string    `json:"lease_owner,omitempty"`
	LeaseUntil    time.Time `json:"lease_until"`
	Items         int       `json:"items"`
	SchemaVersion int64     `json:"schema_version"`
	Database      string    `json:"database"`
}

func statusAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := buildStatus(ctx, cfg, db)
	if err != nil {
		return err
	}

	switch statusFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "terminal", "":
		printStatus(os.Stdout, report, time.Now())
		return nil
	default:
		return fmt.Errorf("unknown format %q (want terminal or json)", statusFormat)
	}
}

func buildStatus(ctx context.Context, cfg *config.Config, db *store.Store) (statusReport, error) {
	wm, err := watermark.New(db, cfg.Provider.Name)
	if err != nil {
		return statusReport{}, err
	}
	p, err := wm.Provider(ctx)
	if err != nil {
		return statusReport{}, fmt.Errorf("load provider: %w", err)
	}

	count, err := db.CountItems(ctx, cfg.Provider.Name)
	if err != nil {
		return statusReport{}, err
	}
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return statusReport{}, err
	}

	return statusReport{
		Provider:      p.Name,
		Watermark:     p.Updated,
		Synced:        p.HasUpdated(),
		LeaseOwner:    p.LeaseOwner,
		LeaseUntil:    p.LeaseUntil,
		Items:         count,
		SchemaVersion: version,
		Database:      cfg.Storage.Path,
	}, nil
}

func printStatus(w io.Writer, r statusReport, now time.Time) {
	fmt.Fprintf(w, "provider:   %s\n", r.Provider)
	if r.Synced {
		fmt.Fprintf(w, "watermark:  %s (%s)\n", r.Watermark.UTC().Format(time.RFC3339), humanize.RelTime(r.Watermark, now, "ago", "from now"))
	} else {
		fmt.Fprintln(w, "watermark:  never synced")
	}
	if r.LeaseOwner != "" && r.LeaseUntil.After(now) {
		fmt.Fprintf(w, "lease:      held by %s until %s\n", r.LeaseOwner, r.LeaseUntil.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "lease:      free")
	}
	fmt.Fprintf(w, "items:      %s\n", humanize.Comma(int64(r.Items)))
	fmt.Fprintf(w, "database:   %s (schema v%d)\n", r.Database, r.SchemaVersion)
}
