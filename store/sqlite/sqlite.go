/*
Package sqlite persists reference rate snapshots and saved bond definitions.

PURPOSE:
  The engine itself is in-memory. This package keeps what a server needs
  across restarts: the rate table it was fed, and the bond series users
  saved.

KEY TABLES:
  bonds:          Bond definitions as JSON (factory.BondJSON), versioned
  rate_snapshots: Whole rate tables as JSON (rates.Snapshot), append-only

APPEND-ONLY SNAPSHOTS:
  Saving rates never overwrites: every save is a new row and loading picks
  the most recent one. Older snapshots stay for audit.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In-memory databases are pinned to a
  single connection, every connection would otherwise see its own empty
  database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/bonds.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  id, err := store.SaveRateSnapshot(ctx, rateStore.Snapshot())
  snap, err := store.LatestRateSnapshot(ctx)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/rates"
)

// Store implements bond and rate snapshot persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Saved bond series
	CREATE TABLE IF NOT EXISTS bonds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		definition_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bonds_name ON bonds(name);

	-- Rate tables (append-only, latest wins)
	CREATE TABLE IF NOT EXISTS rate_snapshots (
		id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		days INTEGER NOT NULL,
		series_json TEXT NOT NULL,
		taken_at TEXT NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_rate_snapshots_seq ON rate_snapshots(seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BOND STORE
// =============================================================================

// BondRecord is a saved bond definition. DefinitionJSON holds a
// factory.BondJSON document.
type BondRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DefinitionJSON string    `json:"definition_json"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SaveBond inserts or updates a bond definition. An empty ID gets a new
// UUID. Updating an existing ID bumps its version.
func (s *Store) SaveBond(ctx context.Context, bond BondRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bond.ID == "" {
		bond.ID = uuid.NewString()
	}

	query := `
		INSERT INTO bonds (id, name, definition_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			definition_json = excluded.definition_json,
			version = bonds.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, query, bond.ID, bond.Name, bond.DefinitionJSON, now, now); err != nil {
		return "", fmt.Errorf("failed to save bond %s: %w", bond.ID, err)
	}
	return bond.ID, nil
}

// GetBond returns generic.ErrBondNotFound for an unknown id.
func (s *Store) GetBond(ctx context.Context, id string) (*BondRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b BondRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, definition_json, version, created_at, updated_at FROM bonds WHERE id = ?",
		id,
	).Scan(&b.ID, &b.Name, &b.DefinitionJSON, &b.Version, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrBondNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bond %s: %w", id, err)
	}

	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

// ListBonds returns all bonds ordered by name.
func (s *Store) ListBonds(ctx context.Context) ([]BondRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, definition_json, version, created_at, updated_at FROM bonds ORDER BY name, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bonds: %w", err)
	}
	defer rows.Close()

	var bonds []BondRecord
	for rows.Next() {
		var b BondRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.Name, &b.DefinitionJSON, &b.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		bonds = append(bonds, b)
	}
	return bonds, rows.Err()
}

// DeleteBond removes a bond. Deleting an unknown id is ErrBondNotFound.
func (s *Store) DeleteBond(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM bonds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete bond %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrBondNotFound, id)
	}
	return nil
}

// =============================================================================
// RATE SNAPSHOT STORE
// =============================================================================

// SnapshotInfo describes a saved rate table without its data.
type SnapshotInfo struct {
	ID      string       `json:"id"`
	Start   generic.Date `json:"start"`
	Days    int          `json:"days"`
	TakenAt time.Time    `json:"taken_at"`
}

// SaveRateSnapshot appends a snapshot and returns its id.
func (s *Store) SaveRateSnapshot(ctx context.Context, snap rates.Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seriesJSON, err := json.Marshal(snap.Series)
	if err != nil {
		return "", fmt.Errorf("failed to encode rate series: %w", err)
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_snapshots (id, start_date, days, series_json, taken_at, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM rate_snapshots))
	`, id, snap.Start.String(), snap.Days, string(seriesJSON), snap.TakenAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to save rate snapshot: %w", err)
	}
	return id, nil
}

// LatestRateSnapshot returns the most recently saved snapshot, or
// generic.ErrSnapshotNotFound when none was saved.
func (s *Store) LatestRateSnapshot(ctx context.Context) (*rates.Snapshot, error) {
	return s.querySnapshot(ctx,
		"SELECT start_date, days, series_json, taken_at FROM rate_snapshots ORDER BY seq DESC LIMIT 1")
}

// GetRateSnapshot returns one snapshot by id.
func (s *Store) GetRateSnapshot(ctx context.Context, id string) (*rates.Snapshot, error) {
	return s.querySnapshot(ctx,
		"SELECT start_date, days, series_json, taken_at FROM rate_snapshots WHERE id = ?", id)
}

// ListRateSnapshots returns snapshot metadata, newest first.
func (s *Store) ListRateSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, start_date, days, taken_at FROM rate_snapshots ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list rate snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var start, takenAt string
		if err := rows.Scan(&info.ID, &start, &info.Days, &takenAt); err != nil {
			return nil, err
		}
		if info.Start, err = parseStart(start); err != nil {
			return nil, err
		}
		info.TakenAt, _ = time.Parse(time.RFC3339Nano, takenAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *Store) querySnapshot(ctx context.Context, query string, args ...any) (*rates.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap rates.Snapshot
	var start, seriesJSON, takenAt string

	err := s.db.QueryRowContext(ctx, query, args...).Scan(&start, &snap.Days, &seriesJSON, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rate snapshot: %w", err)
	}

	if snap.Start, err = parseStart(start); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seriesJSON), &snap.Series); err != nil {
		return nil, fmt.Errorf("failed to decode rate series: %w", err)
	}
	snap.TakenAt, _ = time.Parse(time.RFC3339Nano, takenAt)
	return &snap, nil
}

// parseStart reads an empty start date as the zero date of an empty table.
func parseStart(s string) (generic.Date, error) {
	if s == "" {
		return generic.Date{}, nil
	}
	return generic.ParseDate(s)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo purposes).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"bonds", "rate_snapshots"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
