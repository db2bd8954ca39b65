package cardkit

import "go.uber.org/zap"

// Strategy is the policy for obtaining resource bytes from a mounted card.
type Strategy string

const (
	// StrategyDirectRead extracts entries from the buffered archive on demand
	StrategyDirectRead Strategy = "direct-read"

	// StrategyPreExtract extracts every entry into memory at mount time
	StrategyPreExtract Strategy = "pre-extract"

	// StrategyNetworkFetch buffers the archive from a URL once at mount time
	StrategyNetworkFetch Strategy = "network-fetch"

	// StrategyFSLink serves a directory tree in place, without copying
	StrategyFSLink Strategy = "fs-link"
)

// MountOption configures a single Mount call.
type MountOption func(*MountOptions)

// MountOptions contains the per-mount settings.
type MountOptions struct {
	// Strategy selects how resource bytes are obtained. Directory and
	// Network sources override it to fs-link and network-fetch.
	Strategy Strategy

	// Persistent controls whether a MountRecord is written to the mount
	// store so the mount survives a restart.
	Persistent bool
}

func defaultMountOptions() MountOptions {
	return MountOptions{
		Strategy:   StrategyDirectRead,
		Persistent: true,
	}
}

// WithStrategy selects the resource-byte strategy for a mount.
func WithStrategy(strategy Strategy) MountOption {
	return func(o *MountOptions) {
		o.Strategy = strategy
	}
}

// WithPersistent controls whether the mount is recorded in the mount store.
func WithPersistent(persistent bool) MountOption {
	return func(o *MountOptions) {
		o.Persistent = persistent
	}
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Manager)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCache replaces the resource cache, primarily for tests that need
// custom bounds or a fake clock.
func WithCache(cache *ResourceCache) ManagerOption {
	return func(m *Manager) {
		if cache != nil {
			m.cache = cache
		}
	}
}
