// Package store persists feedsift's settings and counters in SQLite:
// a single key→value table shared by the watcher, the control surface,
// and any other process pointed at the same database file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/feedsift/feedsift/internal/dbopen"
)

// Schema creates the settings table.
const Schema = `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Well-known keys.
const (
	KeyPostsAnalyzed     = "postsAnalyzed"
	KeyFlaggedPosts      = "llmPostsFound"
	KeyUnfollowedAuthors = "unfollowedAuthors"
	KeyEnableDetection   = "enableDetection"
	KeyAutoUnfollow      = "autoUnfollow"
	KeyDebugMode         = "debugMode"
)

// defaults applied when a key has never been written.
var defaults = map[string]string{
	KeyPostsAnalyzed:     "0",
	KeyFlaggedPosts:      "0",
	KeyUnfollowedAuthors: "0",
	KeyEnableDetection:   "true",
	KeyAutoUnfollow:      "false",
	KeyDebugMode:         "false",
}

// Store wraps the settings table.
type Store struct {
	db *sql.DB
}

// New creates a Store over an already-opened database and ensures the
// schema exists.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens the database at path and creates a Store over it.
func Open(path string) (*Store, *sql.DB, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, nil, fmt.Errorf("store: open: %w", err)
	}
	return &Store{db: db}, db, nil
}

// get returns the raw value, falling back to the registered default.
func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		if def, ok := defaults[key]; ok {
			return def, nil
		}
		return "", fmt.Errorf("store: unknown key %q", key)
	}
	if err != nil {
		return "", fmt.Errorf("store: get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// GetInt returns an integer setting.
func (s *Store) GetInt(ctx context.Context, key string) (int, error) {
	raw, err := s.get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("store: %s is not an integer: %w", key, err)
	}
	return n, nil
}

// SetInt writes an integer setting.
func (s *Store) SetInt(ctx context.Context, key string, v int) error {
	return s.set(ctx, key, strconv.Itoa(v))
}

// Increment adds delta to an integer setting and returns the new value.
// This is a read-modify-write, not an atomic SQL increment: two
// processes racing on the same key can lose an update. That matches the
// storage contract the counters were specified with; counters are
// advisory statistics, not ledger entries.
func (s *Store) Increment(ctx context.Context, key string, delta int) (int, error) {
	cur, err := s.GetInt(ctx, key)
	if err != nil {
		return 0, err
	}
	next := cur + delta
	if err := s.SetInt(ctx, key, next); err != nil {
		return 0, err
	}
	return next, nil
}

// GetBool returns a boolean setting.
func (s *Store) GetBool(ctx context.Context, key string) (bool, error) {
	raw, err := s.get(ctx, key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("store: %s is not a boolean: %w", key, err)
	}
	return b, nil
}

// SetBool writes a boolean setting.
func (s *Store) SetBool(ctx context.Context, key string, v bool) error {
	return s.set(ctx, key, strconv.FormatBool(v))
}

// Stats bundles the three counters for the control surface.
type Stats struct {
	PostsAnalyzed     int `json:"postsAnalyzed"`
	FlaggedPosts      int `json:"llmPostsFound"`
	UnfollowedAuthors int `json:"unfollowedAuthors"`
}

// GetStats reads all counters.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.PostsAnalyzed, err = s.GetInt(ctx, KeyPostsAnalyzed); err != nil {
		return st, err
	}
	if st.FlaggedPosts, err = s.GetInt(ctx, KeyFlaggedPosts); err != nil {
		return st, err
	}
	if st.UnfollowedAuthors, err = s.GetInt(ctx, KeyUnfollowedAuthors); err != nil {
		return st, err
	}
	return st, nil
}

// ResetCounters zeroes the three counters, leaving toggles untouched.
func (s *Store) ResetCounters(ctx context.Context) error {
	for _, key := range []string{KeyPostsAnalyzed, KeyFlaggedPosts, KeyUnfollowedAuthors} {
		if err := s.SetInt(ctx, key, 0); err != nil {
			return err
		}
	}
	return nil
}
