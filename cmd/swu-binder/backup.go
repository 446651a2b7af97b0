package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/swu-binder/internal/backup"
)

func (a *app) backupManager() *backup.Manager {
	cfg := a.opts.cfg
	return backup.NewManager(a.sess.Ledger, backup.Config{
		Dir:      cfg.BackupDir(a.opts.dir),
		Keep:     cfg.Storage.BackupKeep,
		Recorder: a.store,
		Logger:   a.opts.logger,
	})
}

func newBackupCmd(opts *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a ledger snapshot to the backup directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.backupManager()
			out := cmd.OutOrStdout()

			if list {
				files, err := m.List()
				if err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintln(out, "No backups.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, f := range files {
					info, err := os.Stat(f)
					if err != nil {
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", filepath.Base(f), humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				runs, err := a.store.RecentBackups(cmd.Context(), 5)
				if err != nil {
					return err
				}
				for _, r := range runs {
					if r.Error != nil {
						fmt.Fprintf(out, "%s: failed: %s\n", humanize.Time(r.CreatedAt), *r.Error)
					}
				}
				return nil
			}

			res, err := m.Backup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Backed up %d sets (%s cards) to %s\n", res.Sets, humanize.Comma(int64(res.Cards)), res.Path)
			if len(res.Pruned) > 0 {
				fmt.Fprintf(out, "Removed %d old backups\n", len(res.Pruned))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list existing backups instead")
	return cmd
}
