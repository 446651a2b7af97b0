// Package inbox watches a drop folder and imports collection files placed in it.
//
// Every regular .csv or .json file in the folder is parsed, applied to the
// ledger, and then moved to imported/ or failed/ so it is never applied twice.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ramonehamilton/swu-binder/internal/importer"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

const (
	ImportedDir = "imported"
	FailedDir   = "failed"

	defaultSettle = 500 * time.Millisecond
)

// Importer applies parsed counts to the ledger.
type Importer interface {
	Import(ctx context.Context, data map[string]ledger.Counts, mode ledger.ImportMode) (ledger.ImportResult, error)
}

// Outcome describes one processed file.
type Outcome struct {
	File   string
	Moved  string
	Format importer.Format
	Result ledger.ImportResult
	Err    error
}

// Config configures a Watcher.
type Config struct {
	Dir  string
	Mode ledger.ImportMode
	// Settle is how long a file must stay unchanged before it is read.
	Settle time.Duration
	Logger *slog.Logger
	// OnProcessed is called after every file. Optional.
	OnProcessed func(Outcome)
}

// Watcher imports files dropped into a directory.
type Watcher struct {
	ledger Importer
	cfg    Config

	mu      sync.Mutex
	pending map[string]time.Time
	// unmoved holds files that were imported but could not be moved out,
	// so later passes retry the move without importing them again.
	unmoved map[string]fileStamp
}

type fileStamp struct {
	size int64
	mod  time.Time
}

func stampOf(info os.FileInfo) fileStamp {
	return fileStamp{size: info.Size(), mod: info.ModTime()}
}

func (s fileStamp) matches(info os.FileInfo) bool {
	return s.size == info.Size() && s.mod.Equal(info.ModTime())
}

// New creates a watcher. The directory is created on Run.
func New(l Importer, cfg Config) *Watcher {
	if cfg.Mode == "" {
		cfg.Mode = ledger.ModeMerge
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		ledger:  l,
		cfg:     cfg,
		pending: make(map[string]time.Time),
		unmoved: make(map[string]fileStamp),
	}
}

// Run watches the directory until ctx is cancelled. Files already present
// when Run starts are processed first.
func (w *Watcher) Run(ctx context.Context) (err error) {
	for _, d := range []string{w.cfg.Dir, filepath.Join(w.cfg.Dir, ImportedDir), filepath.Join(w.cfg.Dir, FailedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch inbox: %w", err)
	}

	if _, err := w.Scan(ctx); err != nil {
		w.cfg.Logger.Warn("initial inbox scan failed", "error", err)
	}
	w.cfg.Logger.Info("watching inbox", "dir", w.cfg.Dir, "mode", w.cfg.Mode)

	ticker := time.NewTicker(w.cfg.Settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && eligible(event.Name) {
				w.mark(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Warn("inbox watcher error", "error", err)
		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				w.process(ctx, path)
			}
		}
	}
}

// Scan processes every eligible file currently in the directory.
func (w *Watcher) Scan(ctx context.Context) ([]Outcome, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var out []Outcome
	for _, e := range entries {
		path := filepath.Join(w.cfg.Dir, e.Name())
		if e.Type().IsRegular() && eligible(path) {
			out = append(out, w.process(ctx, path))
		}
	}
	return out, nil
}

func (w *Watcher) mark(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
}

// settled removes and returns files that have not changed for the settle time.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.cfg.Settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) process(ctx context.Context, path string) Outcome {
	out := Outcome{File: path}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		// Already moved by an earlier pass.
		return out
	}
	if err == nil && w.alreadyImported(path, info) {
		w.cfg.Logger.Debug("retrying move of imported inbox file", "file", filepath.Base(path))
		out.Moved = w.move(path, ImportedDir, info)
		return out
	}

	var data []byte
	if err == nil {
		data, err = os.ReadFile(path)
	}
	if err == nil {
		var parsed *importer.Result
		parsed, err = importer.Parse(data)
		if err == nil {
			out.Format = parsed.Format
			out.Result, err = w.ledger.Import(ctx, parsed.Data, w.cfg.Mode)
		}
	}
	out.Err = err

	dest := ImportedDir
	if err != nil {
		dest = FailedDir
		w.cfg.Logger.Warn("inbox import failed", "file", filepath.Base(path), "error", err)
	} else {
		w.cfg.Logger.Info("inbox import applied", "file", filepath.Base(path),
			"format", out.Format, "applied", out.Result.Applied, "skipped", out.Result.Skipped)
	}

	out.Moved = w.move(path, dest, info)

	if w.cfg.OnProcessed != nil {
		w.cfg.OnProcessed(out)
	}
	return out
}

// move files path under dest. An imported file that cannot be moved is
// remembered until a later pass moves it or its contents change.
func (w *Watcher) move(path, dest string, info os.FileInfo) string {
	moved, err := moveTo(path, filepath.Join(w.cfg.Dir, dest))

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.cfg.Logger.Error("failed to move inbox file", "file", path, "error", err)
		if dest == ImportedDir && info != nil {
			w.unmoved[path] = stampOf(info)
		}
		return ""
	}
	delete(w.unmoved, path)
	return moved
}

func (w *Watcher) alreadyImported(path string, info os.FileInfo) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.unmoved[path]
	if ok && !st.matches(info) {
		delete(w.unmoved, path)
		return false
	}
	return ok
}

func eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".csv", ".json":
		return true
	}
	return false
}

// moveTo renames path into dir, adding a timestamp when the name is taken.
func moveTo(path, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(filepath.Base(path), ext)
		dest = filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, time.Now().Format("20060102_150405.000"), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}
