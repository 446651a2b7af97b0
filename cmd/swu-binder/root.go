package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramonehamilton/swu-binder/internal/config"
	"github.com/ramonehamilton/swu-binder/internal/version"
)

const envPrefix = "SWU_BINDER"

// overrides are the config keys that flags and SWU_BINDER_* variables can set.
var overrides = []string{
	"catalog.location",
	"catalog.manifest_file",
	"catalog.prewarm",
	"storage.db_path",
	"storage.backup_dir",
	"storage.backup_enabled",
	"storage.backup_schedule",
	"server.port",
	"inbox.enabled",
	"inbox.dir",
	"inbox.mode",
	"app.debug_mode",
	"app.default_set",
}

// rootOptions carries state shared by every subcommand.
type rootOptions struct {
	v *viper.Viper

	cfg    *config.Config
	dir    string
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "swu-binder",
		Short:         "Track a Star Wars: Unlimited collection as a binder",
		Long:          "swu-binder maps set catalogs onto 12-pocket binder pages and tracks owned copies of every base card.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default ~/.swu-binder/config.toml)")
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringP("catalog", "c", "", "manifest base URL or local catalog directory")
	pf.String("db", "", `ledger database path (":memory:" for a throwaway ledger)`)
	pf.StringP("set", "s", "", "active set key")
	pf.BoolP("verbose", "v", false, "debug logging")

	_ = opts.v.BindPFlag("catalog.location", pf.Lookup("catalog"))
	_ = opts.v.BindPFlag("storage.db_path", pf.Lookup("db"))
	_ = opts.v.BindPFlag("app.default_set", pf.Lookup("set"))
	_ = opts.v.BindPFlag("app.debug_mode", pf.Lookup("verbose"))

	cmd.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newLocateCmd(opts),
		newStatsCmd(opts),
		newMissingCmd(opts),
		newBulkCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newChartCmd(opts),
		newBackupCmd(opts),
	)
	return cmd
}

// init loads .env, the TOML file, and then flag and environment overrides.
func (o *rootOptions) init(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range overrides {
		_ = o.v.BindEnv(key)
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	o.dir = dir

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path == "" {
		if path, err = config.Path(); err != nil {
			return err
		}
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	applyOverrides(cfg, o.v)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	o.cfg = cfg

	level := slog.LevelInfo
	if cfg.App.DebugMode {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)
	return nil
}

// applyOverrides copies every key set by a flag or environment variable onto cfg.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	str("catalog.location", &cfg.Catalog.Location)
	str("catalog.manifest_file", &cfg.Catalog.ManifestFile)
	boolean("catalog.prewarm", &cfg.Catalog.Prewarm)
	str("storage.db_path", &cfg.Storage.DBPath)
	str("storage.backup_dir", &cfg.Storage.BackupDir)
	boolean("storage.backup_enabled", &cfg.Storage.BackupEnabled)
	str("storage.backup_schedule", &cfg.Storage.BackupSchedule)
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	boolean("inbox.enabled", &cfg.Inbox.Enabled)
	str("inbox.dir", &cfg.Inbox.Dir)
	str("inbox.mode", &cfg.Inbox.Mode)
	boolean("app.debug_mode", &cfg.App.DebugMode)
	str("app.default_set", &cfg.App.DefaultSet)
}
