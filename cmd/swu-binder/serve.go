package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/swu-binder/internal/api"
	"github.com/ramonehamilton/swu-binder/internal/backup"
	"github.com/ramonehamilton/swu-binder/internal/inbox"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the binder API with scheduled backups and the import inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx)
		},
	}

	cmd.Flags().IntP("port", "p", 0, "API port (default from config)")
	cmd.Flags().Bool("inbox", false, "watch the inbox folder for collection files")
	cmd.Flags().Bool("prewarm", true, "build every set at startup")
	_ = opts.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = opts.v.BindPFlag("inbox.enabled", cmd.Flags().Lookup("inbox"))
	_ = opts.v.BindPFlag("catalog.prewarm", cmd.Flags().Lookup("prewarm"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.opts.cfg

	if cfg.Catalog.Prewarm {
		a.sess.PrewarmAsync(ctx, cfg.App.DefaultSet)
	}

	deps := api.Deps{History: a.store, BackupLog: a.store}

	if cfg.Storage.BackupEnabled {
		sched, err := backup.NewScheduler(a.backupManager(), cfg.Storage.BackupSchedule, func(res backup.Result, err error) {
			if err != nil {
				log.Printf("[Backup] Scheduled backup failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer func() { _ = sched.Stop() }()
		deps.Backups = sched
		log.Printf("[Backup] Scheduled %s into %s", cfg.Storage.BackupSchedule, cfg.BackupDir(a.opts.dir))
	}

	if cfg.Inbox.Enabled {
		w := inbox.New(a.sess.Ledger, inbox.Config{
			Dir:    cfg.InboxDir(a.opts.dir),
			Mode:   ledger.ImportMode(cfg.Inbox.Mode),
			Logger: a.opts.logger,
		})
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Printf("[Inbox] Watcher stopped: %v", err)
			}
		}()
	}

	timeout, _ := cfg.GetServerTimeout()
	srv := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: timeout,
	}, a.sess, deps)
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Printf("Serving on http://localhost:%d (Ctrl+C to stop)\n", srv.Port())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
