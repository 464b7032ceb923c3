package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"EverglowMissions/internal/storage"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "missions.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	_, path := openStore(t)

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() {
		_ = sqlDB.Close()
	}()

	var name string
	if err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'save_units'`).Scan(&name); err != nil {
		t.Fatalf("save_units table missing: %v", err)
	}
	var applied int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied migrations = %d, want 1", applied)
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missions.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.SaveUnit(context.Background(), "p1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.LoadUnit(context.Background(), "p1")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("payload = %q", got)
	}
}

func TestSaveUnitRoundTrip(t *testing.T) {
	store, _ := openStore(t)
	store.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	ctx := context.Background()

	if err := store.SaveUnit(ctx, "alice", []byte("v1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveUnit(ctx, "alice", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := store.SaveUnit(ctx, "bob", []byte("bob-data")); err != nil {
		t.Fatalf("save bob: %v", err)
	}

	got, err := store.LoadUnit(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("payload = %q, want v2", got)
	}

	units, err := store.ListUnits(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(units) != 2 || units[0].PlayerID != "alice" || units[1].PlayerID != "bob" {
		t.Fatalf("units = %+v", units)
	}
	if units[1].Size != len("bob-data") {
		t.Fatalf("bob size = %d", units[1].Size)
	}
	if !units[0].UpdatedAt.Equal(time.UnixMilli(1_700_000_000_000)) {
		t.Fatalf("updated at = %v", units[0].UpdatedAt)
	}

	if err := store.DeleteUnit(ctx, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.LoadUnit(ctx, "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestLoadUnitMissing(t *testing.T) {
	store, _ := openStore(t)
	if _, err := store.LoadUnit(context.Background(), "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveUnitValidation(t *testing.T) {
	store, _ := openStore(t)
	if err := store.SaveUnit(context.Background(), " ", []byte("x")); err == nil {
		t.Fatal("expected error for empty player id")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.SaveUnit(ctx, "p", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var nilStore *Store
	if err := nilStore.SaveUnit(context.Background(), "p", nil); err == nil {
		t.Fatal("expected error for nil store")
	}
	if err := nilStore.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}

func TestExtractUpMigration(t *testing.T) {
	got := extractUpMigration("-- +migrate Up\nCREATE TABLE x (id INT);\n-- +migrate Down\nDROP TABLE x;\n")
	if got != "\nCREATE TABLE x (id INT);\n" {
		t.Fatalf("up = %q", got)
	}
	if extractUpMigration("SELECT 1;") != "SELECT 1;" {
		t.Fatal("content without markers should pass through")
	}
}
