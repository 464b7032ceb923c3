// Package sqlite implements storage.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"EverglowMissions/internal/storage"
	"EverglowMissions/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

const migrationTable = "schema_migrations"

// Store provides SQLite-backed persistence for save units.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open opens and migrates a save unit store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveUnit upserts the save unit of playerID.
func (s *Store) SaveUnit(ctx context.Context, playerID string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	if payload == nil {
		payload = []byte{}
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO save_units (player_id, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET
		    payload = excluded.payload,
		    updated_at = excluded.updated_at`,
		playerID,
		payload,
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save unit %s: %w", playerID, err)
	}
	return nil
}

// LoadUnit returns the save unit of playerID or storage.ErrNotFound.
func (s *Store) LoadUnit(ctx context.Context, playerID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	playerID = strings.TrimSpace(playerID)

	var payload []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM save_units WHERE player_id = ?`, playerID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, playerID)
		}
		return nil, fmt.Errorf("load unit %s: %w", playerID, err)
	}
	return payload, nil
}

// DeleteUnit removes the save unit of playerID. Missing units are ignored.
func (s *Store) DeleteUnit(ctx context.Context, playerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM save_units WHERE player_id = ?`, strings.TrimSpace(playerID)); err != nil {
		return fmt.Errorf("delete unit %s: %w", playerID, err)
	}
	return nil
}

// ListUnits returns every stored unit ordered by player id.
func (s *Store) ListUnits(ctx context.Context) ([]storage.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT player_id, length(payload), updated_at FROM save_units ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []storage.Unit
	for rows.Next() {
		var u storage.Unit
		var updatedAt int64
		if err := rows.Scan(&u.PlayerID, &u.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// runMigrations applies embedded SQL migrations in filename order, each at
// most once.
func (s *Store) runMigrations() error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := s.sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := s.sqlDB.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := extractUpMigration(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := s.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file, err)
		}
		if _, err := tx.Exec(upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, file, s.now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// extractUpMigration isolates the `-- +migrate Up` segment for execution.
func extractUpMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	rest := content[upIdx+len("-- +migrate Up"):]
	if downIdx := strings.Index(rest, "-- +migrate Down"); downIdx != -1 {
		return rest[:downIdx]
	}
	return rest
}
