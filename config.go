package cardkit

import (
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Path of the persisted mount table document
	StorePath string `env:"CARDKIT_STORE_PATH,default:./data/mounts.json"`

	// Resource cache bounds
	CacheMaxSize    int64 `env:"CARDKIT_CACHE_MAX_SIZE,default:67108864"` // 64MB default
	CacheMaxEntries int   `env:"CARDKIT_CACHE_MAX_ENTRIES,default:256"`
	CacheTTLSeconds int   `env:"CARDKIT_CACHE_TTL_SECONDS,default:1800"` // 30 minutes default

	// Default strategy for zip-backed mounts
	DefaultStrategy string `env:"CARDKIT_DEFAULT_STRATEGY,default:direct-read"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CacheConfig converts the flat env settings into cache bounds.
func (c *Config) CacheConfig() CacheConfig {
	return CacheConfig{
		MaxSize:    c.CacheMaxSize,
		MaxEntries: c.CacheMaxEntries,
		TTL:        time.Duration(c.CacheTTLSeconds) * time.Second,
	}
}

// NewFromEnv creates a Manager from environment variables (convenience constructor)
func NewFromEnv(opts ...ManagerOption) (*Manager, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return NewManager(cfg, opts...), nil
}
