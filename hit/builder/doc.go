// Package builder turns a hit.Snapshot into size-bounded hit URLs.
//
// A build runs in three stages:
//   - OrganizeParameters: a deterministic total order honoring the placement options
//   - PrepareQuery: evaluation of every value thunk, type formatting, JSON merging and percent-encoding
//   - Build: splitting the fragments over one or more hits of at most MaxHitSize bytes
//
// Oversized fragments never get lost. A splittable key (see Configuration.SplittableKeys) is sliced at
// array element boundaries over several hits; any other key is absorbed into the current hit, which is
// then tagged with the error indicator "&mherr=1". Hits of a multihit carry "&mh=<index>-<count>-<id>".
//
// Usage examples:
//
//	cfg := builder.DefaultConfiguration("123456")
//	b, err := builder.New(cfg, builder.WithLogger(slog.Default()))
//	if err != nil {
//		// handle error
//	}
//
//	for _, hitURL := range b.Build(ctx, buf.Snapshot()) {
//		// hand over to the sender
//	}
package builder
