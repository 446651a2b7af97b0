package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ramonehamilton/swu-binder/internal/cards/source"
	"github.com/ramonehamilton/swu-binder/internal/events"
	"github.com/ramonehamilton/swu-binder/internal/session"
	"github.com/ramonehamilton/swu-binder/internal/storage"
	"github.com/ramonehamilton/swu-binder/internal/version"
)

// app is the wiring every command works through: the database-backed ledger
// and the catalog session on top of it.
type app struct {
	opts  *rootOptions
	db    *storage.DB
	store *storage.Service
	sess  *session.Session
}

func (o *rootOptions) openApp() (*app, error) {
	cfg := o.cfg
	if strings.TrimSpace(cfg.Catalog.Location) == "" {
		return nil, errors.New("no catalog location configured: set catalog.location, --catalog or SWU_BINDER_CATALOG_LOCATION")
	}

	requestTimeout, _ := cfg.GetRequestTimeout()
	rateLimit, _ := cfg.GetRateLimit()
	fetchTimeout, _ := cfg.GetFetchTimeout()

	src, err := source.New(source.Options{
		Location:       cfg.Catalog.Location,
		ManifestFile:   cfg.Catalog.ManifestFile,
		RequestTimeout: requestTimeout,
		RateLimit:      rateLimit,
		UserAgent:      "swu-binder/" + version.Version,
	})
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath(o.dir)
	if dbPath != storage.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := storage.Open(storage.DefaultConfig(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	store := storage.NewService(db)

	dispatcher := events.NewDispatcher()
	if cfg.App.DebugMode {
		dispatcher.Register(events.NewLoggingObserver(true))
	}

	sess := session.New(session.Options{
		Source:         src,
		Store:          store,
		Synonyms:       cfg.Synonyms(),
		Logger:         o.logger,
		Dispatcher:     dispatcher,
		FetchTimeout:   fetchTimeout,
		PrewarmWorkers: cfg.Catalog.PrewarmWorkers,
	})

	return &app{opts: o, db: db, store: store, sess: sess}, nil
}

func (a *app) Close() {
	a.sess.Close()
	if err := a.db.Close(); err != nil {
		log.Printf("[App] Error closing database: %v", err)
	}
}

// setKey returns the explicit set argument or the configured default.
func (a *app) setKey(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if s := a.opts.cfg.App.DefaultSet; s != "" {
		return s, nil
	}
	return "", errors.New("no set given: pass one or set app.default_set / --set")
}

// loadAll builds every set in the manifest. Failures are logged and skipped.
func (a *app) loadAll(ctx context.Context) {
	if err := a.sess.Catalogs.Prewarm(ctx); err != nil {
		a.opts.logger.Warn("some sets failed to load", "error", err)
	}
}
