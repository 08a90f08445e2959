// Package state is the durable client-side storage: the persisted token pair
// and the remembered project selection. It is read once at startup and
// written only by login, refresh, logout and project selection.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pzaremba/sprintdesk/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	keyTokenPair = "token_pair"
	keyProjectID = "project_id"
)

// Store persists client state in a single-table SQLite key/value store.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the state database at path.
// If path is ":memory:", uses an in-memory database. Sets WAL mode and runs
// the schema migration.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS client_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating state schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("writing state key %q: %w", key, err)
	}
	return nil
}

func (s *Store) clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clearing state key %q: %w", key, err)
	}
	return nil
}

// TokenPair returns the persisted token pair, or ok=false when none is stored.
func (s *Store) TokenPair(ctx context.Context) (domain.TokenPair, bool, error) {
	raw, ok, err := s.get(ctx, keyTokenPair)
	if err != nil || !ok {
		return domain.TokenPair{}, false, err
	}
	var pair domain.TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		// A corrupt record is as good as no record.
		return domain.TokenPair{}, false, nil
	}
	return pair, true, nil
}

// SetTokenPair persists the token pair, replacing any previous one.
func (s *Store) SetTokenPair(ctx context.Context, pair domain.TokenPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshaling token pair: %w", err)
	}
	return s.set(ctx, keyTokenPair, string(raw))
}

// ClearTokenPair removes the persisted token pair. Clearing an absent pair
// is a no-op.
func (s *Store) ClearTokenPair(ctx context.Context) error {
	return s.clear(ctx, keyTokenPair)
}

// ProjectID returns the remembered project selection, or ok=false when none
// is stored. The id is not validated here; the project store re-checks it
// against the loaded project list.
func (s *Store) ProjectID(ctx context.Context) (string, bool, error) {
	return s.get(ctx, keyProjectID)
}

// SetProjectID remembers the selected project across restarts.
func (s *Store) SetProjectID(ctx context.Context, id string) error {
	return s.set(ctx, keyProjectID, id)
}

// ClearProjectID forgets the remembered project selection.
func (s *Store) ClearProjectID(ctx context.Context) error {
	return s.clear(ctx, keyProjectID)
}
