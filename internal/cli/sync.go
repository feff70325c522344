package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wiresync/internal/config"
	"github.com/ppiankov/wiresync/internal/ingest"
	"github.com/ppiankov/wiresync/internal/newsml"
	"github.com/ppiankov/wiresync/internal/source"
	"github.com/ppiankov/wiresync/internal/store"
	"github.com/ppiankov/wiresync/internal/types"
	"github.com/ppiankov/wiresync/internal/watermark"
)

var noPrune bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one incremental sync cycle",
	RunE:  syncAction,
}

func init() {
	syncCmd.Flags().BoolVar(&noPrune, "no-prune", false, "skip retention pruning after the cycle")
	rootCmd.AddCommand(syncCmd)
}

func syncAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	syncer, err := newSyncer(cfg, db, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := runCycle(ctx, cfg, db, syncer, !noPrune)
	if errors.Is(err, types.ErrCycleInProgress) {
		fmt.Println("Another sync cycle is in progress, skipped.")
		return nil
	}
	if err != nil {
		return newRedactor(cfg).Error(err)
	}

	fmt.Printf("Synced %d items from %d channels (%d ids, %d fetches", res.Saved, res.Channels, res.IDs, res.Fetched)
	if res.Skipped > 0 {
		fmt.Printf(", %d skipped", res.Skipped)
	}
	fmt.Printf("), window %s to %s", res.Start.Format(time.RFC3339), res.End.Format(time.RFC3339))
	if res.Pruned > 0 {
		fmt.Printf(" (%d old items pruned)", res.Pruned)
	}
	fmt.Println()
	return nil
}

// cycleResult is an ingest result plus post-cycle housekeeping.
type cycleResult struct {
	ingest.Result
	Pruned int64
}

// runCycle runs one Update and, on success, prunes expired items.
func runCycle(ctx context.Context, cfg *config.Config, db *store.Store, syncer *ingest.Syncer, prune bool) (cycleResult, error) {
	res, err := syncer.Update(ctx)
	if err != nil {
		return cycleResult{Result: res}, fmt.Errorf("sync %s: %w", cfg.Provider.Name, err)
	}

	out := cycleResult{Result: res}
	if prune {
		out.Pruned, err = db.PruneOld(ctx, cfg.Storage.RetainDays)
		if err != nil {
			return out, fmt.Errorf("prune old: %w", err)
		}
	}
	return out, nil
}

// newSyncer wires the HTTP fetcher, NewsML parser, watermark store and
// store lease into a Syncer.
func newSyncer(cfg *config.Config, db *store.Store, logger *slog.Logger) (*ingest.Syncer, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	wm, err := watermark.New(db, cfg.Provider.Name)
	if err != nil {
		return nil, fmt.Errorf("create watermark store: %w", err)
	}

	syncer, err := ingest.New(client, db, wm, ingest.Options{
		Window:       cfg.Sync.Window.Duration,
		MaxStaleness: cfg.Sync.MaxStaleness.Duration,
		LeaseTTL:     cfg.Sync.LeaseTTL.Duration,
		Locker:       db,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create syncer: %w", err)
	}
	return syncer, nil
}

func newClient(cfg *config.Config) (*source.Client, error) {
	if cfg.API.Token == "" {
		return nil, fmt.Errorf("api token is empty (set %s)", cfg.API.TokenEnv)
	}

	fetcher, err := source.NewHTTPFetcher(cfg.API.BaseURL, cfg.API.Timeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	client, err := source.NewClient(fetcher, newsml.New(), cfg.API.Token, cfg.Sync.DateFormat)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}
