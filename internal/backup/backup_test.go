package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/storage/models"
)

type staticExporter struct {
	snap ledger.Snapshot
	err  error
}

func (e staticExporter) Export(ctx context.Context) (ledger.Snapshot, error) {
	return e.snap, e.err
}

type memRecorder struct {
	mu   sync.Mutex
	runs []*models.BackupRun
}

func (r *memRecorder) RecordBackup(ctx context.Context, run *models.BackupRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func testSnapshot() ledger.Snapshot {
	return ledger.Snapshot{Version: 1, Sets: map[string]map[string]int{
		"SOR": {"3": 2, "10": 1},
		"SHD": {},
	}}
}

// clock returns successive seconds so every backup gets a distinct name.
func clock() func() time.Time {
	t := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestManager_BackupAndPrune(t *testing.T) {
	dir := t.TempDir()
	rec := &memRecorder{}
	m := NewManager(staticExporter{snap: testSnapshot()}, Config{Dir: dir, Keep: 2, Recorder: rec, now: clock()})
	ctx := context.Background()

	var last Result
	for i := 0; i < 4; i++ {
		res, err := m.Backup(ctx)
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		last = res
	}

	if last.Sets != 2 || last.Cards != 3 {
		t.Errorf("unexpected result %+v", last)
	}
	if len(last.Pruned) != 1 {
		t.Errorf("expected 1 pruned file on the last run, got %v", last.Pruned)
	}

	files, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 backups kept, got %d", len(files))
	}
	if files[0] != last.Path {
		t.Errorf("newest backup should be listed first: %v", files)
	}

	data, err := os.ReadFile(last.Path)
	if err != nil {
		t.Fatal(err)
	}
	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("backup is not a snapshot: %v", err)
	}
	if snap.Sets["SOR"]["3"] != 2 {
		t.Errorf("unexpected snapshot contents %+v", snap)
	}

	if len(rec.runs) != 4 {
		t.Errorf("expected 4 recorded runs, got %d", len(rec.runs))
	}
}

func TestManager_ExportFailureIsRecorded(t *testing.T) {
	rec := &memRecorder{}
	m := NewManager(staticExporter{err: errors.New("db locked")}, Config{Dir: t.TempDir(), Recorder: rec})

	if _, err := m.Backup(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.runs) != 1 || rec.runs[0].Error == nil {
		t.Fatalf("failure should be recorded, got %+v", rec.runs)
	}
}

func TestManager_ListMissingDir(t *testing.T) {
	m := NewManager(staticExporter{}, Config{Dir: filepath.Join(t.TempDir(), "none")})
	files, err := m.List()
	if err != nil || len(files) != 0 {
		t.Errorf("List() = %v, %v; want empty", files, err)
	}
}

func TestScheduler(t *testing.T) {
	if _, err := NewScheduler(nil, "whenever", nil); err == nil {
		t.Error("expected error for invalid schedule")
	}

	done := make(chan Result, 1)
	m := NewManager(staticExporter{snap: testSnapshot()}, Config{Dir: t.TempDir()})
	s, err := NewScheduler(m, "@every 1h", func(r Result, err error) {
		if err == nil {
			done <- r
		}
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}

	st := s.Status()
	if !st.Running || st.NextBackup.IsZero() {
		t.Errorf("unexpected status %+v", st)
	}

	if _, err := s.Trigger(); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onDone was not called")
	}
	if got := s.Status().BackupCount; got != 1 {
		t.Errorf("BackupCount = %d, want 1", got)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err == nil {
		t.Error("second Stop should fail")
	}
}
