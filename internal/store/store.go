package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/wiresync/internal/types"
)

// Fixed-width UTC layout so stored instants compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var errNotInitialized = errors.New("store is not initialized")

type Store struct {
	db *sql.DB
}

// StoredItem is a persisted item with its bookkeeping columns.
type StoredItem struct {
	types.Item
	ID         int64
	Source     string // sync provider name that ingested the item
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// ItemFilter holds optional filters for ListItems.
type ItemFilter struct {
	Source string    // sync provider name
	Since  time.Time // inserted at or after
	Limit  int       // keep only the newest N; 0 = all
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FindProvider returns the provider named name or an error wrapping
// types.ErrNotFound.
func (s *Store) FindProvider(ctx context.Context, name string) (types.Provider, error) {
	if s == nil || s.db == nil {
		return types.Provider{}, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, updated, lease_owner, lease_until
		FROM providers
		WHERE name = ?
	`, name)

	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Provider{}, fmt.Errorf("provider %q: %w", name, types.ErrNotFound)
	}
	if err != nil {
		return types.Provider{}, err
	}
	return p, nil
}

// CreateProvider inserts a provider with no watermark. Creating an existing
// name is a no-op that returns the stored record.
func (s *Store) CreateProvider(ctx context.Context, name string) (types.Provider, error) {
	if s == nil || s.db == nil {
		return types.Provider{}, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(name) == "" {
		return types.Provider{}, errors.New("provider name is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO providers (name, created_at)
		VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, formatTime(time.Now()))
	if err != nil {
		return types.Provider{}, fmt.Errorf("insert provider: %w", err)
	}

	return s.FindProvider(ctx, name)
}

// UpdateProvider sets the watermark of provider id in one statement.
func (s *Store) UpdateProvider(ctx context.Context, id int64, updated time.Time) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if updated.IsZero() {
		return errors.New("updated is required")
	}

	res, err := s.db.ExecContext(ctx, "UPDATE providers SET updated = ? WHERE id = ?", formatTime(updated), id)
	if err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("provider %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// AcquireLease takes the provider lease for owner until now+ttl. It
// succeeds when the lease is free, expired, or already held by owner.
func (s *Store) AcquireLease(ctx context.Context, providerID int64, owner string, now time.Time, ttl time.Duration) (bool, error) {
	if s == nil || s.db == nil {
		return false, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if owner == "" {
		return false, errors.New("lease owner is required")
	}
	if ttl <= 0 {
		return false, errors.New("lease ttl must be positive")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE providers
		SET lease_owner = ?, lease_until = ?
		WHERE id = ?
			AND (lease_owner IS NULL OR lease_owner = ? OR lease_until IS NULL OR lease_until < ?)
	`, owner, formatTime(now.Add(ttl)), providerID, owner, formatTime(now))
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	return n == 1, nil
}

// ReleaseLease clears the lease if owner still holds it.
func (s *Store) ReleaseLease(ctx context.Context, providerID int64, owner string) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE providers
		SET lease_owner = NULL, lease_until = NULL
		WHERE id = ? AND lease_owner = ?
	`, providerID, owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// InsertItem upserts item by guid. A stored item with a higher version is
// left untouched, so replays of an older payload are harmless.
func (s *Store) InsertItem(ctx context.Context, source string, item types.Item) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(source) == "" {
		return errors.New("source is required")
	}
	if strings.TrimSpace(item.GUID) == "" {
		return errors.New("guid is required")
	}

	renditions := item.Renditions
	if renditions == nil {
		renditions = []types.Rendition{}
	}
	renditionsJSON, err := json.Marshal(renditions)
	if err != nil {
		return fmt.Errorf("encode renditions: %w", err)
	}

	groups := item.Groups
	if groups == nil {
		groups = []types.Group{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode groups: %w", err)
	}

	now := formatTime(time.Now())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (
			guid, source, version, item_class, provider, pub_status, urgency,
			headline, slugline, byline, language, first_created, version_created,
			body_html, body_text, renditions, groups_json, inserted_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			source = excluded.source,
			version = excluded.version,
			item_class = excluded.item_class,
			provider = excluded.provider,
			pub_status = excluded.pub_status,
			urgency = excluded.urgency,
			headline = excluded.headline,
			slugline = excluded.slugline,
			byline = excluded.byline,
			language = excluded.language,
			first_created = excluded.first_created,
			version_created = excluded.version_created,
			body_html = excluded.body_html,
			body_text = excluded.body_text,
			renditions = excluded.renditions,
			groups_json = excluded.groups_json,
			updated_at = excluded.updated_at
		WHERE excluded.version >= items.version
	`,
		item.GUID,
		source,
		item.Version,
		item.ItemClass,
		item.Provider,
		item.PubStatus,
		item.Urgency,
		item.Headline,
		item.Slugline,
		item.Byline,
		item.Language,
		nullTime(item.FirstCreated),
		nullTime(item.VersionCreated),
		nullString(item.BodyHTML),
		nullString(item.BodyText),
		string(renditionsJSON),
		string(groupsJSON),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

const itemColumns = `id, guid, source, version, item_class, provider, pub_status, urgency,
	headline, slugline, byline, language, first_created, version_created,
	body_html, body_text, renditions, groups_json, inserted_at, updated_at`

// GetItem returns the stored item for guid or an error wrapping
// types.ErrNotFound.
func (s *Store) GetItem(ctx context.Context, guid string) (StoredItem, error) {
	if s == nil || s.db == nil {
		return StoredItem{}, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE guid = ?", guid)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredItem{}, fmt.Errorf("item %q: %w", guid, types.ErrNotFound)
	}
	if err != nil {
		return StoredItem{}, err
	}
	return item, nil
}

// ListItems returns matching items in insertion order.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]StoredItem, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := "SELECT " + itemColumns + " FROM items WHERE 1 = 1"
	var args []any
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	if !filter.Since.IsZero() {
		query += " AND inserted_at >= ?"
		args = append(args, formatTime(filter.Since))
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	query = "SELECT * FROM (" + query + ") ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []StoredItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// CountItems returns how many items source has stored; "" counts all.
func (s *Store) CountItems(ctx context.Context, source string) (int, error) {
	if s == nil || s.db == nil {
		return 0, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := "SELECT COUNT(*) FROM items"
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// PruneOld deletes items inserted more than retainDays ago. Returns the
// number of items removed.
func (s *Store) PruneOld(ctx context.Context, retainDays int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if retainDays <= 0 {
		return 0, nil
	}

	cutoff := formatTime(time.Now().AddDate(0, 0, -retainDays))
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE inserted_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune old items: %w", err)
	}

	n, _ := res.RowsAffected()
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(scanner rowScanner) (types.Provider, error) {
	var (
		p                   types.Provider
		updated, leaseUntil sql.NullString
		leaseOwner          sql.NullString
	)
	if err := scanner.Scan(&p.ID, &p.Name, &updated, &leaseOwner, &leaseUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Provider{}, err
		}
		return types.Provider{}, fmt.Errorf("scan provider: %w", err)
	}

	var err error
	if p.Updated, err = parseNullTime(updated); err != nil {
		return types.Provider{}, fmt.Errorf("parse updated: %w", err)
	}
	if p.LeaseUntil, err = parseNullTime(leaseUntil); err != nil {
		return types.Provider{}, fmt.Errorf("parse lease_until: %w", err)
	}
	if leaseOwner.Valid {
		p.LeaseOwner = leaseOwner.String
	}
	return p, nil
}

func scanItem(scanner rowScanner) (StoredItem, error) {
	var (
		item                        StoredItem
		firstCreated, versionCreate sql.NullString
		bodyHTML, bodyText          sql.NullString
		renditions, groups          string
		insertedAt, updatedAt       string
	)

	if err := scanner.Scan(
		&item.ID,
		&item.GUID,
		&item.Source,
		&item.Version,
		&item.ItemClass,
		&item.Provider,
		&item.PubStatus,
		&item.Urgency,
		&item.Headline,
		&item.Slugline,
		&item.Byline,
		&item.Language,
		&firstCreated,
		&versionCreate,
		&bodyHTML,
		&bodyText,
		&renditions,
		&groups,
		&insertedAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredItem{}, err
		}
		return StoredItem{}, fmt.Errorf("scan item: %w", err)
	}

	if bodyHTML.Valid {
		item.BodyHTML = bodyHTML.String
	}
	if bodyText.Valid {
		item.BodyText = bodyText.String
	}

	var err error
	if item.FirstCreated, err = parseNullTime(firstCreated); err != nil {
		return StoredItem{}, fmt.Errorf("parse first_created: %w", err)
	}
	if item.VersionCreated, err = parseNullTime(versionCreate); err != nil {
		return StoredItem{}, fmt.Errorf("parse version_created: %w", err)
	}
	if item.InsertedAt, err = parseTime(insertedAt); err != nil {
		return StoredItem{}, fmt.Errorf("parse inserted_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return StoredItem{}, fmt.Errorf("parse updated_at: %w", err)
	}

	if err := json.Unmarshal([]byte(renditions), &item.Renditions); err != nil {
		return StoredItem{}, fmt.Errorf("decode renditions: %w", err)
	}
	if err := json.Unmarshal([]byte(groups), &item.Groups); err != nil {
		return StoredItem{}, fmt.Errorf("decode groups: %w", err)
	}
	if len(item.Renditions) == 0 {
		item.Renditions = nil
	}
	if len(item.Groups) == 0 {
		item.Groups = nil
	}

	return item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(timeLayout, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseNullTime(v sql.NullString) (time.Time, error) {
	if !v.Valid {
		return time.Time{}, nil
	}
	return parseTime(v.String)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
