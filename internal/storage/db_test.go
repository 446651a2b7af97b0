package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}
	if config.MaxOpenConns != 4 {
		t.Errorf("expected MaxOpenConns 4, got %d", config.MaxOpenConns)
	}
	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}
	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}
	if !config.AutoMigrate {
		t.Error("expected AutoMigrate to default to true")
	}
}

func TestOpen(t *testing.T) {
	db, err := Open(DefaultConfig(MemoryPath))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("failed to ping database: %v", err)
	}
	if db.Conn() == nil {
		t.Error("expected non-nil connection")
	}
}

func TestOpenWithNilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("expected error when opening with nil config")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(DefaultConfig(MemoryPath))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("failed to close database: %v", err)
	}
	if err := db.Ping(); err == nil {
		t.Error("expected error when pinging closed database")
	}
}

func TestMigrate_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	db, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if dirty {
		t.Error("database is dirty after migrations")
	}
	if version < 2 {
		t.Errorf("expected schema version >= 2, got %d", version)
	}
	_ = db.Close()

	// Reopening runs migrations again as a no-op.
	db, err = Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Errorf("Migrate() on current schema error = %v", err)
	}
}

func TestMigrate_Disabled(t *testing.T) {
	config := DefaultConfig(MemoryPath)
	config.AutoMigrate = false
	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	version, _, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 before migrating, got %d", version)
	}
}

func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := Open(DefaultConfig(MemoryPath))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db)
}

func TestService_SaveAndLoad(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	payload, err := svc.LoadSet(ctx, "SOR")
	if err != nil {
		t.Fatalf("LoadSet() error = %v", err)
	}
	if payload != nil {
		t.Errorf("expected nil payload for unknown set, got %s", payload)
	}

	batch := ledger.ChangeBatch{
		ID:     "batch-1",
		Source: "increment",
		Changes: []ledger.Change{
			{Number: 3, Delta: 1, Quantity: 1},
			{Number: 7, Delta: 2, Quantity: 2},
		},
	}
	if err := svc.SaveSet(ctx, "SOR", []byte(`{"3":1,"7":2}`), batch); err != nil {
		t.Fatalf("SaveSet() error = %v", err)
	}
	if err := svc.SaveSet(ctx, "SHD", []byte(`{}`), ledger.ChangeBatch{ID: "batch-2", Source: "reset"}); err != nil {
		t.Fatalf("SaveSet() error = %v", err)
	}

	payload, err = svc.LoadSet(ctx, "SOR")
	if err != nil {
		t.Fatalf("LoadSet() error = %v", err)
	}
	if string(payload) != `{"3":1,"7":2}` {
		t.Errorf("unexpected payload %s", payload)
	}

	keys, err := svc.SetKeys(ctx)
	if err != nil {
		t.Fatalf("SetKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "SHD" || keys[1] != "SOR" {
		t.Errorf("SetKeys() = %v", keys)
	}

	changes, err := svc.RecentChanges(ctx, "SOR", 10)
	if err != nil {
		t.Fatalf("RecentChanges() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	for _, c := range changes {
		if c.BatchID != "batch-1" || c.Source != "increment" {
			t.Errorf("unexpected change %+v", c)
		}
	}

	history, err := svc.CardHistory(ctx, "SOR", 7)
	if err != nil {
		t.Fatalf("CardHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].QuantityAfter != 2 {
		t.Errorf("CardHistory() = %+v", history)
	}
}

func TestService_BacksLedger(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	l := ledger.New(ledger.Config{Catalogs: testCatalogs{}, Store: svc})
	if _, err := l.Increment(ctx, "SOR", 1); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	reloaded := ledger.New(ledger.Config{Catalogs: testCatalogs{}, Store: svc})
	q, err := reloaded.Quantity(ctx, "SOR", 1)
	if err != nil {
		t.Fatalf("Quantity() error = %v", err)
	}
	if q != 1 {
		t.Errorf("expected persisted quantity 1, got %d", q)
	}
}

func TestService_SaveSets(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	err := svc.SaveSets(ctx, []ledger.SetWrite{
		{SetKey: "SOR", Payload: []byte(`{"1":2}`), Batch: ledger.ChangeBatch{ID: "b", Source: "import:merge", Changes: []ledger.Change{{Number: 1, Delta: 2, Quantity: 2}}}},
		{SetKey: "SHD", Payload: []byte(`{"4":1}`), Batch: ledger.ChangeBatch{ID: "b", Source: "import:merge", Changes: []ledger.Change{{Number: 4, Delta: 1, Quantity: 1}}}},
	})
	if err != nil {
		t.Fatalf("SaveSets() error = %v", err)
	}

	for key, want := range map[string]string{"SOR": `{"1":2}`, "SHD": `{"4":1}`} {
		payload, err := svc.LoadSet(ctx, key)
		if err != nil {
			t.Fatalf("LoadSet(%s) error = %v", key, err)
		}
		if string(payload) != want {
			t.Errorf("LoadSet(%s) = %s, want %s", key, payload, want)
		}
	}

	changes, err := svc.RecentChanges(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentChanges() error = %v", err)
	}
	if len(changes) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(changes))
	}
}
