package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/meeting-auditor/internal/adapters/cache"
	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates verdict caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVerdictCache creates the configured cache and a function that stops
// it. A disabled cache is nil.
func (f *CacheFactory) CreateVerdictCache() (core.VerdictCache, func(), error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cache configuration: %w", err)
	}
	if !cacheCfg.Enabled {
		return nil, func() {}, nil
	}

	switch cacheCfg.Type {
	case "memory":
		c := cache.NewMemoryCache(f.logger, cacheCfg.CleanupFrequency)
		return c, c.Stop, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		c, err := cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger, cacheCfg.CleanupFrequency)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Stop, nil
	case "mysql":
		c, err := cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger, cacheCfg.CleanupFrequency)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}
