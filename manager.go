package cardkit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// MountResult summarizes a successful mount.
type MountResult struct {
	CardID        string
	ResourceCount int
	TotalSize     int64
	Strategy      Strategy
	MountedAt     time.Time
}

// ResourceData is a fully loaded resource.
type ResourceData struct {
	Data     []byte
	MimeType string
	Size     int64
	Path     string
	// Checksum is the hex-encoded xxhash of Data.
	Checksum string
}

// ResourceMeta describes a resource without loading its bytes.
type ResourceMeta struct {
	Path     string
	Size     int64
	MimeType string
	Exists   bool
}

// ResourceEntry is one row of a card's file index.
type ResourceEntry struct {
	Path  string
	Size  int64
	IsDir bool
}

// cardRuntime is the in-memory state of one mounted card. The index and
// archive handle are immutable once built, so concurrent loads on the
// same card need no coordination. Never persisted.
type cardRuntime struct {
	cardID     string
	source     MountSource
	strategy   Strategy
	archive    ArchiveReader // nil when pre-extracted
	index      map[string]ArchiveEntry
	entries    []ArchiveEntry
	preloaded  map[string][]byte // pre-extract strategy only
	mountedAt  time.Time
	record     MountRecord
	persistent bool
}

// extract returns one entry's bytes from the runtime's backing.
func (rt *cardRuntime) extract(resourcePath string) ([]byte, error) {
	if rt.preloaded != nil {
		data, ok := rt.preloaded[resourcePath]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resourcePath)
		}
		return data, nil
	}
	return rt.archive.Extract(resourcePath)
}

// close releases the runtime's archive handle.
func (rt *cardRuntime) close() {
	if rt.archive != nil {
		rt.archive.Close()
		rt.archive = nil
	}
}

// Manager owns the runtime state of all mounted cards and orchestrates
// mount, unmount, lazy recovery, and the cached resource read path.
//
// Construct one Manager at the application's composition root and pass
// it to consumers; there is no package-level instance.
//
// Concurrent reads on mounted cards are safe. Concurrent Mount/Unmount
// calls racing on the same card are not serialized internally — callers
// that can race mutations of one card must serialize them themselves.
type Manager struct {
	mu       sync.RWMutex
	runtimes map[string]*cardRuntime
	records  map[string]MountRecord // persisted records, mirrors the store
	cache    *ResourceCache
	store    *MountStore
	logger   *zap.Logger
}

// NewManager creates a Manager. A nil cfg uses defaults: mount table at
// ./data/mounts.json and DefaultCacheConfig bounds.
func NewManager(cfg *Config, opts ...ManagerOption) *Manager {
	storePath := "./data/mounts.json"
	cacheCfg := DefaultCacheConfig()
	if cfg != nil {
		if cfg.StorePath != "" {
			storePath = cfg.StorePath
		}
		cacheCfg = cfg.CacheConfig()
	}

	m := &Manager{
		runtimes: make(map[string]*cardRuntime),
		records:  make(map[string]MountRecord),
		cache:    NewResourceCache(cacheCfg),
		store:    NewMountStore(storePath),
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads the persisted mount table metadata. No archives are
// opened; runtimes are rebuilt lazily on first access. A missing or
// corrupt table degrades to an empty one and is never fatal.
func (m *Manager) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	records, err := m.store.Load()
	if err != nil {
		if errors.Is(err, ErrStoreCorrupt) {
			m.logger.Warn("mount table corrupt, starting empty",
				zap.String("path", m.store.Path()), zap.Error(err))
		} else {
			m.logger.Warn("mount table unreadable, starting empty",
				zap.String("path", m.store.Path()), zap.Error(err))
		}
		records = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]MountRecord, len(records))
	for _, rec := range records {
		m.records[rec.CardID] = rec
	}

	m.logger.Info("mount table loaded",
		zap.String("path", m.store.Path()), zap.Int("records", len(records)))
	return nil
}

// ============================================================================
// Mount Lifecycle
// ============================================================================

// Mount registers a card bundle under cardID. Mounting an already
// mounted card fully unmounts the previous runtime first, so a remount
// is never additive. Persistence failure degrades to a session-only
// mount and is never surfaced as a mount error.
func (m *Manager) Mount(ctx context.Context, cardID string, source MountSource, opts ...MountOption) (*MountResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if cardID == "" {
		return nil, wrapCardErr("mount", cardID, "", ErrEmptyCardID)
	}
	if source == nil {
		return nil, wrapCardErr("mount", cardID, "", ErrUnsupportedSource)
	}

	options := defaultMountOptions()
	for _, opt := range opts {
		opt(&options)
	}

	// Idempotent remount: tear the previous runtime down completely.
	if m.IsMounted(cardID) {
		m.unmountCard(cardID)
	}

	rt, err := m.buildRuntime(ctx, cardID, source, options.Strategy)
	if err != nil {
		return nil, wrapCardErr("mount", cardID, "", err)
	}
	rt.persistent = options.Persistent

	m.mu.Lock()
	m.runtimes[cardID] = rt
	if options.Persistent {
		m.records[cardID] = rt.record
	}
	m.mu.Unlock()

	if options.Persistent {
		if err := m.store.Put(rt.record); err != nil {
			// Works this session, lost on restart.
			m.logger.Warn("mount record persist failed",
				zap.String("card", cardID), zap.Error(err))
		}
	}

	m.logger.Info("card mounted",
		zap.String("card", cardID),
		zap.String("strategy", string(rt.strategy)),
		zap.Int("resources", rt.record.ResourceCount),
		zap.Int64("totalSize", rt.record.TotalSize))

	return &MountResult{
		CardID:        cardID,
		ResourceCount: rt.record.ResourceCount,
		TotalSize:     rt.record.TotalSize,
		Strategy:      rt.strategy,
		MountedAt:     rt.mountedAt,
	}, nil
}

// Unmount releases the card's archive handle, purges its cache entries,
// and removes its persisted record. Unmounting a card with no active
// mount is a no-op; Unmount never fails.
func (m *Manager) Unmount(ctx context.Context, cardID string) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}
	m.unmountCard(cardID)
	return nil
}

// unmountCard tears down runtime, cache entries, and persisted record.
func (m *Manager) unmountCard(cardID string) {
	m.mu.Lock()
	rt := m.runtimes[cardID]
	delete(m.runtimes, cardID)
	_, hadRecord := m.records[cardID]
	delete(m.records, cardID)
	m.mu.Unlock()

	if rt != nil {
		rt.close()
	}
	m.cache.EvictCard(cardID)

	if hadRecord {
		if err := m.store.Delete(cardID); err != nil {
			m.logger.Warn("mount record delete failed",
				zap.String("card", cardID), zap.Error(err))
		}
	}

	if rt != nil || hadRecord {
		m.logger.Info("card unmounted", zap.String("card", cardID))
	}
}

// buildRuntime opens the source's backend and builds the immutable file
// index. Directory sources always use the fs-link strategy and Network
// sources the network-fetch strategy, whatever the caller asked for.
func (m *Manager) buildRuntime(ctx context.Context, cardID string, source MountSource, strategy Strategy) (*cardRuntime, error) {
	var (
		archive ArchiveReader
		err     error
	)

	switch s := source.(type) {
	case ZipPathSource:
		archive, err = OpenZipFile(s.Path)
	case ZipDataSource:
		archive, err = NewZipArchive(s.Data)
	case DirectorySource:
		strategy = StrategyFSLink
		archive, err = NewDirArchive(s.Path)
	case NetworkSource:
		strategy = StrategyNetworkFetch
		var data []byte
		data, err = FetchArchive(ctx, s.URL)
		if err == nil {
			archive, err = NewZipArchive(data)
		}
	default:
		// Unreachable: MountSource is a closed union.
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, source)
	}
	if err != nil {
		return nil, err
	}

	entries := archive.Entries()
	index := make(map[string]ArchiveEntry, len(entries))
	var resourceCount int
	var totalSize int64
	for _, entry := range entries {
		index[entry.Path] = entry
		if !entry.IsDir {
			resourceCount++
			totalSize += entry.Size
		}
	}

	rt := &cardRuntime{
		cardID:    cardID,
		source:    source,
		strategy:  strategy,
		archive:   archive,
		index:     index,
		entries:   entries,
		mountedAt: time.Now().UTC(),
	}

	if strategy == StrategyPreExtract {
		preloaded := make(map[string][]byte, resourceCount)
		for _, entry := range entries {
			if entry.IsDir {
				continue
			}
			data, err := archive.Extract(entry.Path)
			if err != nil {
				archive.Close()
				return nil, err
			}
			preloaded[entry.Path] = data
		}
		archive.Close()
		rt.archive = nil
		rt.preloaded = preloaded
	}

	rt.record = MountRecord{
		CardID:         cardID,
		Source:         EncodeSource(source),
		Strategy:       strategy,
		MountedAt:      rt.mountedAt,
		ResourceCount:  resourceCount,
		TotalSize:      totalSize,
		LastAccessedAt: rt.mountedAt,
	}

	return rt, nil
}

// ============================================================================
// Lazy Mount Recovery
// ============================================================================

// ensureRuntime returns the live runtime for a card, attempting exactly
// one recovery pass from the persisted record when none exists. A failed
// recovery purges the stale record; a non-recoverable source is treated
// the same as "not mounted" with no store mutation.
func (m *Manager) ensureRuntime(ctx context.Context, cardID string) (*cardRuntime, error) {
	m.mu.RLock()
	rt, ok := m.runtimes[cardID]
	rec, hasRecord := m.records[cardID]
	m.mu.RUnlock()

	if ok {
		return rt, nil
	}
	if !hasRecord {
		return nil, ErrNotMounted
	}

	source, err := DecodeSource(rec.Source)
	if err != nil || !source.Recoverable() {
		return nil, ErrNotMounted
	}

	rt, err = m.buildRuntime(ctx, cardID, source, rec.Strategy)
	if err != nil {
		// Expected steady state: the backing file moved or was deleted.
		// Purge the stale record so the card stops advertising itself.
		m.logger.Info("mount recovery failed, purging record",
			zap.String("card", cardID), zap.Error(err))

		m.mu.Lock()
		delete(m.records, cardID)
		m.mu.Unlock()

		if derr := m.store.Delete(cardID); derr != nil {
			m.logger.Warn("stale record delete failed",
				zap.String("card", cardID), zap.Error(derr))
		}
		return nil, ErrNotMounted
	}

	// Keep the stored record's identity: the runtime resumes the old
	// mount rather than starting a new one, and no redundant write is
	// issued to the store.
	rt.record = rec
	rt.persistent = true

	m.mu.Lock()
	// Another reader may have recovered concurrently; keep the winner.
	if existing, ok := m.runtimes[cardID]; ok {
		m.mu.Unlock()
		rt.close()
		return existing, nil
	}
	m.runtimes[cardID] = rt
	m.mu.Unlock()

	m.logger.Info("card recovered from mount table", zap.String("card", cardID))
	return rt, nil
}

// ============================================================================
// Resource Access
// ============================================================================

// Load returns a resource's bytes and MIME type, from cache when
// possible. The owning record's last-accessed time is refreshed on
// every successful load, cache hit or miss.
func (m *Manager) Load(ctx context.Context, cardID, resourcePath string) (*ResourceData, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	resourcePath = normalizeResourcePath(resourcePath)
	if !isValidResourcePath(resourcePath) {
		return nil, wrapCardErr("load", cardID, resourcePath, ErrInvalidPath)
	}

	key := cacheKey(cardID, resourcePath)
	if data, contentType, ok := m.cache.Get(key); ok {
		m.touchRecord(cardID)
		return &ResourceData{
			Data:     data,
			MimeType: contentType,
			Size:     int64(len(data)),
			Path:     resourcePath,
			Checksum: resourceChecksum(data),
		}, nil
	}

	rt, err := m.ensureRuntime(ctx, cardID)
	if err != nil {
		return nil, wrapCardErr("load", cardID, resourcePath, err)
	}

	entry, ok := rt.index[resourcePath]
	if !ok || entry.IsDir {
		return nil, wrapCardErr("load", cardID, resourcePath, ErrResourceNotFound)
	}

	data, err := rt.extract(resourcePath)
	if err != nil {
		return nil, wrapCardErr("load", cardID, resourcePath, err)
	}

	contentType := ResolveContentType(resourcePath)
	m.cache.Set(key, data, contentType)
	m.touchRecord(cardID)

	return &ResourceData{
		Data:     data,
		MimeType: contentType,
		Size:     int64(len(data)),
		Path:     resourcePath,
		Checksum: resourceChecksum(data),
	}, nil
}

// Info describes a resource from the file index without loading bytes.
// A card that cannot be mounted or recovered yields Exists=false rather
// than an error.
func (m *Manager) Info(ctx context.Context, cardID, resourcePath string) *ResourceMeta {
	resourcePath = normalizeResourcePath(resourcePath)
	meta := &ResourceMeta{Path: resourcePath}

	rt, err := m.ensureRuntime(ctx, cardID)
	if err != nil {
		return meta
	}

	entry, ok := rt.index[resourcePath]
	if !ok || entry.IsDir {
		return meta
	}

	meta.Exists = true
	meta.Size = entry.Size
	meta.MimeType = ResolveContentType(resourcePath)
	return meta
}

// Exists reports whether a resource path is present in the card's index.
func (m *Manager) Exists(ctx context.Context, cardID, resourcePath string) bool {
	return m.Info(ctx, cardID, resourcePath).Exists
}

// List returns the card's full file index, empty when the card cannot
// be mounted or recovered.
func (m *Manager) List(ctx context.Context, cardID string) []ResourceEntry {
	rt, err := m.ensureRuntime(ctx, cardID)
	if err != nil {
		return nil
	}

	entries := make([]ResourceEntry, 0, len(rt.entries))
	for _, e := range rt.entries {
		entries = append(entries, ResourceEntry{Path: e.Path, Size: e.Size, IsDir: e.IsDir})
	}
	return entries
}

// ListGlob returns index entries whose paths match a glob pattern, e.g.
// "images/*.png" or "**.css".
func (m *Manager) ListGlob(ctx context.Context, cardID, pattern string) ([]ResourceEntry, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var matched []ResourceEntry
	for _, e := range m.List(ctx, cardID) {
		if g.Match(e.Path) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// ResourceChecksum loads a resource and returns its checksum under the
// given algorithm.
func (m *Manager) ResourceChecksum(ctx context.Context, cardID, resourcePath string, algorithm ChecksumAlgorithm) (string, error) {
	res, err := m.Load(ctx, cardID, resourcePath)
	if err != nil {
		return "", err
	}
	return Checksum(res.Data, algorithm)
}

// touchRecord refreshes a card's last-accessed timestamp in memory and,
// for persisted mounts, in the store. Store failures are logged and
// swallowed.
func (m *Manager) touchRecord(cardID string) {
	now := time.Now().UTC()

	m.mu.Lock()
	if rt, ok := m.runtimes[cardID]; ok {
		rt.record.LastAccessedAt = now
	}
	rec, persisted := m.records[cardID]
	if persisted {
		rec.LastAccessedAt = now
		m.records[cardID] = rec
	}
	m.mu.Unlock()

	if persisted {
		if err := m.store.Touch(cardID, now); err != nil {
			m.logger.Warn("last-access persist failed",
				zap.String("card", cardID), zap.Error(err))
		}
	}
}

// ============================================================================
// Mount Queries
// ============================================================================

// MountedCards returns a record for every live runtime plus persisted
// records for cards whose runtime has not been rebuilt yet, sorted by
// card id.
func (m *Manager) MountedCards() []MountRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]MountRecord, 0, len(m.runtimes)+len(m.records))
	seen := make(map[string]bool, len(m.runtimes))

	for cardID, rt := range m.runtimes {
		records = append(records, rt.record)
		seen[cardID] = true
	}
	for cardID, rec := range m.records {
		if !seen[cardID] {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CardID < records[j].CardID
	})
	return records
}

// IsMounted reports whether a card has a live runtime or a persisted
// record a read could recover from.
func (m *Manager) IsMounted(cardID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.runtimes[cardID]; ok {
		return true
	}
	_, ok := m.records[cardID]
	return ok
}

// MountInfo returns the card's mount record, preferring the live
// runtime's view.
func (m *Manager) MountInfo(cardID string) (*MountRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rt, ok := m.runtimes[cardID]; ok {
		rec := rt.record
		return &rec, true
	}
	if rec, ok := m.records[cardID]; ok {
		return &rec, true
	}
	return nil, false
}

// ============================================================================
// Cache and Watch Surface
// ============================================================================

// ClearCache drops every cached resource for every card.
func (m *Manager) ClearCache() {
	m.cache.Clear()
}

// CacheStats returns the resource cache's performance counters.
func (m *Manager) CacheStats() CacheStatistics {
	return m.cache.Stats()
}

// Watch returns a ChangeToken for a card. Directory-backed mounts are
// watched natively; a detected change purges the card's cache entries
// before the token signals. Archive-backed mounts are buffered whole at
// mount time and cannot change externally, so they return a
// NeverChangeToken.
func (m *Manager) Watch(cardID string) (ChangeToken, error) {
	m.mu.RLock()
	rt, ok := m.runtimes[cardID]
	m.mu.RUnlock()
	if !ok {
		return nil, wrapCardErr("watch", cardID, "", ErrNotMounted)
	}

	dir, isDir := rt.source.(DirectorySource)
	if !isDir {
		return NeverChangeToken{}, nil
	}

	var subdirs []string
	for _, e := range rt.entries {
		if e.IsDir {
			subdirs = append(subdirs, e.Path)
		}
	}

	return newDirWatchToken(dir.Path, subdirs, func() {
		m.cache.EvictCard(cardID)
		m.logger.Info("directory mount changed, cache purged", zap.String("card", cardID))
	})
}

// Dispose releases all live archive handles and clears the cache.
// Persisted records are untouched, so recoverable mounts come back
// lazily after the next Initialize.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	runtimes := m.runtimes
	m.runtimes = make(map[string]*cardRuntime)
	m.mu.Unlock()

	for _, rt := range runtimes {
		rt.close()
	}
	m.cache.Clear()

	m.logger.Info("manager disposed", zap.Int("released", len(runtimes)))
	return nil
}
