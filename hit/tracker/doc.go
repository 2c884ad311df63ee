// Package tracker owns a hit.Buffer behind a serial Queue and hands built hits over for delivery.
//
// Every write and read of the Buffer runs on the Tracker's Queue, so a Tracker can be shared between
// goroutines. Building happens outside the Queue on a Snapshot captured inside it.
//
// Dispatch builds hits, clears the volatile parameters and then, depending on the OfflineMode, sends
// them with the configured Sender, stores them with the configured OfflineStore, or both:
//
//	t, err := tracker.New(b,
//		tracker.WithSender(sender),
//		tracker.WithOfflineStore(store),
//		tracker.WithOfflineMode(tracker.OfflineRequired),
//	)
//	if err != nil {
//		return err
//	}
//	defer t.Close()
//
//	_ = t.SetParam(ctx, "p", hit.String("home"), hit.TypeString)
//	hits, err := t.Dispatch(ctx)
package tracker
