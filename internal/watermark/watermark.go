// Package watermark tracks the last successfully synced instant of a
// provider.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/wiresync/internal/types"
)

// Repository is the persistence the watermark store needs. *store.Store
// satisfies it.
type Repository interface {
	FindProvider(ctx context.Context, name string) (types.Provider, error)
	CreateProvider(ctx context.Context, name string) (types.Provider, error)
	UpdateProvider(ctx context.Context, id int64, updated time.Time) error
}

// Store reads and writes the watermark of one named provider.
type Store struct {
	repo Repository
	name string
}

func New(repo Repository, name string) (*Store, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("provider name is required")
	}
	return &Store{repo: repo, name: name}, nil
}

// Name returns the provider name the store is bound to.
func (s *Store) Name() string {
	return s.name
}

// Provider finds the provider record, creating it on first access.
func (s *Store) Provider(ctx context.Context) (types.Provider, error) {
	p, err := s.repo.FindProvider(ctx, s.name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return types.Provider{}, &types.StoreError{Op: "find provider", Err: err}
	}

	p, err = s.repo.CreateProvider(ctx, s.name)
	if err != nil {
		return types.Provider{}, &types.StoreError{Op: "create provider", Err: err}
	}
	return p, nil
}

// LastUpdated returns the stored watermark. ok is false when the provider
// has never completed a cycle.
func (s *Store) LastUpdated(ctx context.Context) (time.Time, bool, error) {
	p, err := s.Provider(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if !p.HasUpdated() {
		return time.Time{}, false, nil
	}
	return p.Updated, true, nil
}

// SetLastUpdated stores t as the watermark.
func (s *Store) SetLastUpdated(ctx context.Context, t time.Time) error {
	p, err := s.Provider(ctx)
	if err != nil {
		return err
	}
	return s.Advance(ctx, p, t)
}

// Advance writes t as the watermark of an already loaded provider.
func (s *Store) Advance(ctx context.Context, p types.Provider, t time.Time) error {
	if p.ID == 0 {
		return &types.StoreError{Op: "advance watermark", Err: errors.New("provider has no id")}
	}
	if err := s.repo.UpdateProvider(ctx, p.ID, t.UTC()); err != nil {
		return &types.StoreError{Op: "advance watermark", Err: fmt.Errorf("provider %s: %w", p.Name, err)}
	}
	return nil
}
