package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type pendingOptions struct {
	*rootOptions
	offlineDB string
	limit     int
	remove    bool
}

func newPendingCmd(root *rootOptions) *cobra.Command {
	opts := &pendingOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List the hits waiting in an offline store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPending(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.offlineDB, "offline-db", "", "sqlite file of the offline store")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of hits to list, 0 for all")
	cmd.Flags().BoolVar(&opts.remove, "delete", false, "delete the listed hits")
	_ = cmd.MarkFlagRequired("offline-db")

	return cmd
}

func runPending(cmd *cobra.Command, opts *pendingOptions) error {
	ctx := cmd.Context()
	logger := opts.logger(cmd.ErrOrStderr())

	store, closeDB, err := openOfflineStore(cmd, opts.offlineDB, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	hits, err := store.Pending(ctx, opts.limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	ids := make([]string, 0, len(hits))

	for _, h := range hits {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", h.ID, h.CreatedAt.Format(time.RFC3339), h.RetryCount, h.URL)
		ids = append(ids, h.ID)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if opts.remove && len(ids) > 0 {
		deleted, err := store.Delete(ctx, ids...)
		if err != nil {
			return err
		}

		logger.Info("pending hits deleted", "rows_affected", deleted)
	}

	return nil
}
