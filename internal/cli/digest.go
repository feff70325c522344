package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wiresync/internal/config"
	"github.com/ppiankov/wiresync/internal/digest"
	"github.com/ppiankov/wiresync/internal/store"
	"github.com/ppiankov/wiresync/internal/watermark"
)

var (
	digestSince  string
	digestFormat string
	digestLimit  int
	noColor      bool
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Display recently synced items",
	RunE:  digestAction,
}

func init() {
	digestCmd.Flags().StringVar(&digestSince, "since", "", "time window (e.g. 48h, 7d)")
	digestCmd.Flags().StringVar(&digestFormat, "format", "terminal", "output format: terminal, json, markdown, atom, rss")
	digestCmd.Flags().IntVar(&digestLimit, "limit", 0, "maximum items to show")
	digestCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(digestCmd)
}

func digestAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	formatter, err := digest.New(digestFormat, !noColor)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	sinceDur := cfg.Digest.Since.Duration
	if digestSince != "" {
		sinceDur, err = parseDuration(digestSince)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
	}
	limit := cfg.Digest.Limit
	if digestLimit > 0 {
		limit = digestLimit
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	items, err := db.ListItems(ctx, store.ItemFilter{
		Source: cfg.Provider.Name,
		Since:  time.Now().Add(-sinceDur),
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	total, err := db.CountItems(ctx, cfg.Provider.Name)
	if err != nil {
		return err
	}

	wm, err := watermark.New(db, cfg.Provider.Name)
	if err != nil {
		return err
	}
	last, _, err := wm.LastUpdated(ctx)
	if err != nil {
		return fmt.Errorf("read watermark: %w", err)
	}

	return formatter.Format(os.Stdout, digest.DigestInput{
		Provider:  cfg.Provider.Name,
		Items:     items,
		Total:     total,
		Since:     sinceDur,
		Watermark: last,
	})
}

// parseDuration accepts time.ParseDuration strings plus whole days ("7d").
func parseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
