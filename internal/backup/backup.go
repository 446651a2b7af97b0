// Package backup writes ledger snapshots to a directory on a cron schedule
// and keeps only the newest few.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ramonehamilton/swu-binder/internal/export"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/storage/models"
)

const filePrefix = "ledger"

// Exporter produces the snapshot to back up.
type Exporter interface {
	Export(ctx context.Context) (ledger.Snapshot, error)
}

// Recorder stores the outcome of each run. Optional.
type Recorder interface {
	RecordBackup(ctx context.Context, run *models.BackupRun) error
}

// Config configures a Manager.
type Config struct {
	Dir string
	// Keep is the number of newest snapshots retained; 0 keeps everything.
	Keep     int
	Recorder Recorder
	Logger   *slog.Logger

	// now is overridable in tests.
	now func() time.Time
}

// Manager writes and prunes snapshot backups.
type Manager struct {
	source Exporter
	cfg    Config

	mu sync.Mutex
}

// NewManager creates a backup manager for the given snapshot source.
func NewManager(source Exporter, cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Manager{source: source, cfg: cfg}
}

// Result describes one completed backup.
type Result struct {
	Path   string   `json:"path"`
	Sets   int      `json:"sets"`
	Cards  int      `json:"cards"`
	Pruned []string `json:"pruned,omitempty"`
}

// Backup writes one snapshot and prunes old ones. Runs are serialized.
func (m *Manager) Backup(ctx context.Context) (res Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() { m.record(ctx, res, err) }()

	snap, err := m.source.Export(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export ledger: %w", err)
	}

	name := export.GenerateFilename(filePrefix, export.FormatJSON, m.cfg.now())
	res.Path = filepath.Join(m.cfg.Dir, name)
	res.Sets = len(snap.Sets)
	for _, set := range snap.Sets {
		for _, q := range set {
			res.Cards += q
		}
	}

	if err := export.SaveSnapshot(res.Path, snap, true); err != nil {
		return Result{Path: res.Path}, fmt.Errorf("write backup: %w", err)
	}

	res.Pruned, err = m.prune()
	if err != nil {
		return res, fmt.Errorf("prune backups: %w", err)
	}

	m.cfg.Logger.Info("ledger backup written", "path", res.Path, "sets", res.Sets, "cards", res.Cards, "pruned", len(res.Pruned))
	return res, nil
}

func (m *Manager) record(ctx context.Context, res Result, err error) {
	if m.cfg.Recorder == nil {
		return
	}
	run := &models.BackupRun{Path: res.Path, Sets: res.Sets, Cards: res.Cards}
	if err != nil {
		msg := err.Error()
		run.Error = &msg
	}
	if recErr := m.cfg.Recorder.RecordBackup(ctx, run); recErr != nil {
		m.cfg.Logger.Warn("failed to record backup run", "error", recErr)
	}
}

// List returns existing backup files, newest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix+"_") || filepath.Ext(name) != ".json" {
			continue
		}
		files = append(files, filepath.Join(m.cfg.Dir, name))
	}
	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

func (m *Manager) prune() ([]string, error) {
	if m.cfg.Keep <= 0 {
		return nil, nil
	}
	files, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(files) <= m.cfg.Keep {
		return nil, nil
	}

	var removed []string
	for _, f := range files[m.cfg.Keep:] {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed = append(removed, f)
	}
	return removed, nil
}

// Status reports scheduler state.
type Status struct {
	Running      bool      `json:"running"`
	Schedule     string    `json:"schedule"`
	LastBackup   time.Time `json:"lastBackup"`
	NextBackup   time.Time `json:"nextBackup"`
	BackupCount  int       `json:"backupCount"`
	FailureCount int       `json:"failureCount"`
	LastError    string    `json:"lastError,omitempty"`
}

// Scheduler runs Manager.Backup on a cron schedule.
type Scheduler struct {
	manager  *Manager
	schedule string
	cron     *cron.Cron
	entry    cron.EntryID
	onDone   func(Result, error)

	mu           sync.RWMutex
	running      bool
	lastBackup   time.Time
	lastError    error
	backupCount  int
	failureCount int
}

// NewScheduler creates a scheduler. schedule is a standard five-field cron
// expression or a descriptor such as "@daily" or "@every 6h". onDone is
// optional and called after every run.
func NewScheduler(manager *Manager, schedule string, onDone func(Result, error)) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		manager:  manager,
		schedule: schedule,
		onDone:   onDone,
	}, nil
}

// Start begins running backups on schedule.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(s.schedule, s.run)
	if err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}
	c.Start()

	s.cron, s.entry, s.running = c, id, true
	return nil
}

// Stop stops the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	<-c.Stop().Done()
	return nil
}

// Trigger runs a backup now without affecting the schedule.
func (s *Scheduler) Trigger() (Result, error) {
	return s.backup()
}

func (s *Scheduler) run() {
	_, _ = s.backup()
}

func (s *Scheduler) backup() (Result, error) {
	res, err := s.manager.Backup(context.Background())

	s.mu.Lock()
	s.lastBackup = time.Now()
	s.lastError = err
	if err != nil {
		s.failureCount++
	} else {
		s.backupCount++
	}
	s.mu.Unlock()

	if s.onDone != nil {
		s.onDone(res, err)
	}
	return res, err
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Running:      s.running,
		Schedule:     s.schedule,
		LastBackup:   s.lastBackup,
		BackupCount:  s.backupCount,
		FailureCount: s.failureCount,
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	if s.running && s.cron != nil {
		st.NextBackup = s.cron.Entry(s.entry).Next
	}
	return st
}
