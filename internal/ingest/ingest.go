// Package ingest runs incremental sync cycles: list channels, list ids
// changed inside the watermark window, fetch their items, resolve the
// assets they reference and persist everything before the watermark moves.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/wiresync/internal/metrics"
	"github.com/ppiankov/wiresync/internal/types"
)

const (
	DefaultWindow       = 12 * time.Hour
	DefaultMaxStaleness = 7 * 24 * time.Hour
	DefaultLeaseTTL     = 30 * time.Minute
)

// API is the remote feed surface used by a cycle. *source.Client
// satisfies it.
type API interface {
	Channels(ctx context.Context) ([]string, error)
	IDs(ctx context.Context, channel string, start, end time.Time) ([]string, error)
	Items(ctx context.Context, guid string) ([]types.Item, error)
}

// ItemStore persists items under a source name.
type ItemStore interface {
	InsertItem(ctx context.Context, source string, item types.Item) error
}

// Watermarks loads and advances the provider record. *watermark.Store
// satisfies it.
type Watermarks interface {
	Name() string
	Provider(ctx context.Context) (types.Provider, error)
	Advance(ctx context.Context, p types.Provider, t time.Time) error
}

// Locker is the cross-process cycle guard. *store.Store satisfies it.
type Locker interface {
	AcquireLease(ctx context.Context, providerID int64, owner string, now time.Time, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, providerID int64, owner string) error
}

type Options struct {
	Window       time.Duration
	MaxStaleness time.Duration
	LeaseTTL     time.Duration
	Locker       Locker // optional
	Now          func() time.Time
	Logger       *slog.Logger
}

// Result summarizes one cycle.
type Result struct {
	RunID    string
	Start    time.Time
	End      time.Time
	Channels int
	IDs      int
	Fetched  int // Items calls, top-level and asset
	Saved    int
	Skipped  int // ids, refs and items already handled this cycle
}

type Syncer struct {
	api        API
	items      ItemStore
	watermarks Watermarks
	locker     Locker
	opts       Options
	logger     *slog.Logger
	now        func() time.Time

	mu sync.Mutex
}

func New(api API, items ItemStore, watermarks Watermarks, opts Options) (*Syncer, error) {
	if api == nil {
		return nil, errors.New("api is required")
	}
	if items == nil {
		return nil, errors.New("item store is required")
	}
	if watermarks == nil {
		return nil, errors.New("watermark store is required")
	}

	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MaxStaleness <= 0 {
		opts.MaxStaleness = DefaultMaxStaleness
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = DefaultLeaseTTL
	}

	s := &Syncer{
		api:        api,
		items:      items,
		watermarks: watermarks,
		locker:     opts.Locker,
		opts:       opts,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// ComputeWindow returns the id query range for a cycle starting at now.
// A missing or stale watermark restarts from now minus window.
func ComputeWindow(last time.Time, ok bool, now time.Time, window, maxStaleness time.Duration) (time.Time, time.Time) {
	start := last
	if !ok || last.Before(now.Add(-maxStaleness)) {
		start = now.Add(-window)
	}
	return start, now
}

// Update runs one sync cycle. The watermark advances only when every
// channel, id and asset was fetched and stored. A concurrent or leased
// cycle returns types.ErrCycleInProgress.
func (s *Syncer) Update(ctx context.Context) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	name := s.watermarks.Name()
	if !s.mu.TryLock() {
		metrics.CycleFinished(name, metrics.ResultSkipped, 0)
		return Result{}, types.ErrCycleInProgress
	}
	defer s.mu.Unlock()

	began := time.Now()
	updated := s.now().UTC()
	res := Result{RunID: uuid.NewString()}
	log := s.logger.With("provider", name, "run_id", res.RunID)

	provider, err := s.watermarks.Provider(ctx)
	if err != nil {
		return s.fail(log, name, res, began, fmt.Errorf("load provider: %w", err))
	}

	if s.locker != nil {
		ok, err := s.locker.AcquireLease(ctx, provider.ID, res.RunID, updated, s.opts.LeaseTTL)
		if err != nil {
			return s.fail(log, name, res, began, &types.StoreError{Op: "acquire lease", Err: err})
		}
		if !ok {
			log.Info("sync cycle skipped, lease held", "lease_owner", provider.LeaseOwner)
			metrics.CycleFinished(name, metrics.ResultSkipped, 0)
			return res, types.ErrCycleInProgress
		}
		defer func() {
			if err := s.locker.ReleaseLease(context.WithoutCancel(ctx), provider.ID, res.RunID); err != nil {
				log.Warn("release lease failed", "error", err)
			}
		}()

		// A cycle that held the lease before us may have advanced the watermark.
		provider, err = s.watermarks.Provider(ctx)
		if err != nil {
			return s.fail(log, name, res, began, fmt.Errorf("reload provider: %w", err))
		}
	}

	res.Start, res.End = ComputeWindow(provider.Updated, provider.HasUpdated(), updated, s.opts.Window, s.opts.MaxStaleness)
	log.Info("sync cycle started", "start", res.Start, "end", res.End)

	c := &cycle{
		syncer:  s,
		source:  name,
		log:     log,
		fetched: make(map[string]bool),
		queued:  make(map[string]bool),
		res:     &res,
	}

	if err := c.run(ctx); err != nil {
		return s.fail(log, name, res, began, err)
	}

	if err := s.watermarks.Advance(ctx, provider, updated); err != nil {
		return s.fail(log, name, res, began, fmt.Errorf("advance watermark: %w", err))
	}

	metrics.WatermarkSet(name, updated)
	metrics.CycleFinished(name, metrics.ResultSuccess, time.Since(began))
	log.Info("sync cycle completed",
		"channels", res.Channels,
		"ids", res.IDs,
		"fetched", res.Fetched,
		"saved", res.Saved,
		"skipped", res.Skipped,
		"duration", time.Since(began).Round(time.Millisecond),
	)
	return res, nil
}

func (s *Syncer) fail(log *slog.Logger, name string, res Result, began time.Time, err error) (Result, error) {
	kind := types.Kind(err)
	metrics.FetchError(name, kind)
	metrics.CycleFinished(name, metrics.ResultFailure, time.Since(began))
	log.Error("sync cycle failed", "kind", kind, "error", err, "saved", res.Saved)
	return res, err
}
