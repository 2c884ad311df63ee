package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/tracker"
)

type buildOptions struct {
	*rootOptions
	paramsPath string
	maxHitSize int
	offlineDB  string
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the hits for a parameter file and print one per line",
		Long: `Reads the parameters from --params, builds the hits and prints them one per line.
With --offline-db the hits are stored in the sqlite offline store instead of only being printed.

Example:
  hitctl build --config tracker.toml --params params.yaml --max-hit-size 2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.paramsPath, "params", "", "YAML file listing the parameters")
	cmd.Flags().IntVar(&opts.maxHitSize, "max-hit-size", 0, "maximum hit size in bytes, overrides the configuration")
	cmd.Flags().StringVar(&opts.offlineDB, "offline-db", "", "sqlite file the built hits are stored in")
	_ = cmd.MarkFlagRequired("params")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := opts.logger(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.maxHitSize > 0 {
		cfg.MaxHitSize = opts.maxHitSize
	}

	specs, err := readParamFile(opts.paramsPath)
	if err != nil {
		return err
	}

	b, err := builder.New(cfg.BuilderConfiguration(), builder.WithLogger(logger))
	if err != nil {
		return err
	}

	trackerOptions := []tracker.Option{tracker.WithLogger(logger)}

	if opts.offlineDB != "" {
		store, closeDB, err := openOfflineStore(cmd, opts.offlineDB, logger)
		if err != nil {
			return err
		}
		defer closeDB()

		trackerOptions = append(trackerOptions,
			tracker.WithOfflineMode(tracker.OfflineAlways),
			tracker.WithOfflineStore(store),
		)
	} else {
		trackerOptions = append(trackerOptions,
			tracker.WithOfflineMode(tracker.OfflineNever),
			tracker.WithSender(printSender(out)),
		)
	}

	t, err := tracker.New(b, trackerOptions...)
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	for _, spec := range specs {
		w, err := spec.toWrite()
		if err != nil {
			return err
		}

		if err := t.SetParam(ctx, w.key, w.value, w.valueType, w.options...); err != nil {
			return err
		}
	}

	hits, err := t.Dispatch(ctx)
	if err != nil {
		return err
	}

	if opts.offlineDB != "" {
		for _, hitURL := range hits {
			if _, err := fmt.Fprintln(out, hitURL); err != nil {
				return err
			}
		}
	}

	return nil
}

// printSender delivers hits by printing them.
func printSender(w io.Writer) tracker.SenderFunc {
	return func(_ context.Context, hitURL string) error {
		_, err := fmt.Fprintln(w, hitURL)
		return err
	}
}
