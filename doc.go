// Package cardkit mounts self-contained content bundles ("cards") under
// stable identifiers and exposes their internal files as addressable,
// cacheable resources. It is the resource-serving backbone for renderers
// that display card content in sandboxed views, while itself staying
// independent of any rendering concern.
//
// # Mount Sources
//
// A card can be mounted from four source kinds, modeled as a closed
// union over [MountSource]:
//
//   - [ZipPath] — a zip archive on the local filesystem
//   - [ZipData] — a zip archive held entirely in memory
//   - [DirectoryPath] — a directory tree served in place
//   - [NetworkURL] — a zip archive fetched once over HTTP
//
// Archive-backed mounts buffer the whole payload at mount time, which
// bounds usable archive size to available memory.
//
// # Basic Usage
//
//	mgr := cardkit.NewManager(nil)
//
//	ctx := context.Background()
//	if err := mgr.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Dispose()
//
//	// Mount a bundle
//	result, err := mgr.Mount(ctx, "card-42", cardkit.ZipPath("bundle.zip"))
//
//	// Read a resource (extracted on demand, cached afterwards)
//	res, err := mgr.Load(ctx, "card-42", "index.html")
//
//	// Query the index without loading bytes
//	meta := mgr.Info(ctx, "card-42", "style.css")
//	entries := mgr.List(ctx, "card-42")
//
//	// Tear down: releases the handle, purges the card's cache entries,
//	// and removes the persisted record
//	mgr.Unmount(ctx, "card-42")
//
// # Persistence and Recovery
//
// Persistent mounts (the default) are recorded in a single JSON mount
// table. After a restart, [Manager.Initialize] loads only the table
// metadata; runtimes are rebuilt lazily on first access for recoverable
// source kinds (zip-path and directory). In-memory payloads are never
// persisted, so zip-data and network mounts do not survive a restart.
// A recovery that fails — typically because the backing file moved or
// was deleted — purges the stale record and reads as "not found" rather
// than an error.
//
// Persistence is a session-continuity optimization, not a correctness
// requirement: a store failure degrades to "mount lost on next restart"
// and never fails an otherwise successful in-memory operation.
//
// # Resource Cache
//
// Extracted resources land in a bounded cache keyed by "card:path",
// with least-recently-accessed eviction, lazy TTL expiry, a total size
// cap, and an entry count cap. A payload larger than half the size cap
// is never cached. Unmounting a card deterministically purges every
// entry keyed under it.
//
// # Concurrency
//
// A card's file index and archive handle are immutable once built, so
// concurrent loads on one mounted card proceed freely. Mount table
// writes are serialized process-wide. Concurrent Mount/Unmount calls
// racing on the same card id must be serialized by the caller.
package cardkit
