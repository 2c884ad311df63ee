package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/config"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/offlineengine"
)

type rootOptions struct {
	configPath string
	site       string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hitctl",
		Short: "Build and inspect analytics hits",
		Long: `hitctl turns a list of tracking parameters into the hit URLs a tracker would send.

Parameters are read from a YAML file, ordered and serialized like the SDK does,
and split into a multihit when they exceed the maximum hit size.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "tracker configuration file (.toml, .yaml, .yml or .json)")
	flags.StringVar(&opts.site, "site", "", "site id, overrides the configuration")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(newBuildCmd(opts), newPendingCmd(opts))

	return cmd
}

// logger writes text logs to w, at debug level when verbose.
func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config, or the defaults plus environment overrides without it, then applies --site.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if o.configPath != "" {
		read, err := config.Read(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = read
	} else if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	if o.site != "" {
		cfg.Site = o.site
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openOfflineStore opens the sqlite file at path and makes sure the hit table exists.
func openOfflineStore(cmd *cobra.Command, path string, logger *slog.Logger) (*offlineengine.Store, func(), error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open offline database: %w", err)
	}
	db.SetMaxOpenConns(1)

	closeDB := func() { _ = db.Close() }

	store, err := offlineengine.NewStoreFromSQLDB(db,
		offlineengine.WithDialect(offlineengine.DialectSQLite),
		offlineengine.WithLogger(logger),
	)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	if err := store.CreateTable(cmd.Context()); err != nil {
		closeDB()
		return nil, nil, err
	}

	return store, closeDB, nil
}
