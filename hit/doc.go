// Package hit provides the core types of the hit construction engine: typed parameters with lazily
// evaluated values, placement options, and the Buffer which accumulates them between two hits.
//
// The package defines the write side of the engine. Callers (screens, gestures, carts, orders,
// configuration, lifecycle bookkeeping) write into a Buffer; the builder package reads an immutable
// Snapshot of it and turns it into one or more hit URLs.
//
// Key types:
//   - Value: closed union of the supported value kinds (string, integer, float, bool, array, JSON, lazy)
//   - Parameter: a key with one or more value thunks, a ValueType and ParamOptions
//   - ParamOptions: placement (first, last, before, after), persistence, append, encoding, separator
//   - Buffer: the persistent and volatile ordered parameter collections
//   - Snapshot: an immutable copy of a Buffer taken for one build
//
// Common usage pattern:
//
//	buf := hit.NewBuffer()
//	buf.SetParam("idclient", hit.String(visitorID), hit.TypeString, hit.Persistent())
//	buf.SetParam("p", hit.String("home::index"), hit.TypeString)
//	buf.SetParam("ref", hit.String(referrer), hit.TypeString, hit.Last())
//	buf.SetParam("stc", hit.JSON(map[string]any{"cart": 3}), hit.TypeJSON, hit.Append())
//
//	hits := b.Build(ctx, buf.Snapshot())
//	buf.ClearVolatile()
//
// The Buffer is not safe for concurrent use; the tracker package serializes access to it.
package hit
