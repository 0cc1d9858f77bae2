package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/db"
	"go.uber.org/zap"
)

// DatabaseManager owns the per-account SQLite cache. Each Gmail account gets
// its own file so cached summaries never leak between accounts.
type DatabaseManager struct {
	config *config.Config
	logger *zap.Logger

	mu                  sync.RWMutex
	currentStore        *db.Store
	currentAccountEmail string
}

// NewDatabaseManager creates a new DatabaseManager instance
func NewDatabaseManager(cfg *config.Config, logger *zap.Logger) *DatabaseManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatabaseManager{config: cfg, logger: logger}
}

// SwitchToAccount opens the cache for accountEmail and returns a cache
// service over it. It returns (nil, nil) when caching is disabled.
func (dm *DatabaseManager) SwitchToAccount(ctx context.Context, accountEmail string) (*CacheServiceImpl, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.currentStore != nil && dm.currentAccountEmail == accountEmail {
		return NewCacheService(db.NewCacheStore(dm.currentStore)), nil
	}
	dm.closeLocked()

	if !dm.config.LLM.CacheEnabled {
		dm.logger.Debug("AI cache disabled, not opening database", zap.String("account", accountEmail))
		return nil, nil
	}

	dbPath := DatabasePathForAccount(dm.config.LLM.CachePath, accountEmail)
	store, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for account %s at %s: %w", accountEmail, dbPath, err)
	}
	dm.currentStore = store
	dm.currentAccountEmail = accountEmail
	dm.logger.Info("opened AI cache", zap.String("account", accountEmail), zap.String("path", dbPath))

	return NewCacheService(db.NewCacheStore(store)), nil
}

// CurrentAccountEmail returns the account whose database is open
func (dm *DatabaseManager) CurrentAccountEmail() string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.currentAccountEmail
}

// IsInitialized returns true if a database is currently open
func (dm *DatabaseManager) IsInitialized() bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.currentStore != nil
}

// Close closes the current database connection
func (dm *DatabaseManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.closeLocked()
}

func (dm *DatabaseManager) closeLocked() error {
	if dm.currentStore == nil {
		return nil
	}
	err := dm.currentStore.Close()
	if err != nil {
		dm.logger.Warn("failed to close AI cache", zap.String("account", dm.currentAccountEmail), zap.Error(err))
	}
	dm.currentStore = nil
	dm.currentAccountEmail = ""
	return err
}

// DatabasePathForAccount resolves the cache file. A cachePath with an
// extension is used as-is; otherwise it is a directory holding one file per
// account.
func DatabasePathForAccount(cachePath, accountEmail string) string {
	baseDir := config.DefaultCacheDir()
	if cachePath != "" {
		baseDir = config.ExpandPath(cachePath)
	}
	if ext := filepath.Ext(baseDir); ext != "" && ext != "." {
		return baseDir
	}

	safe := strings.ToLower(strings.TrimSpace(accountEmail))
	safe = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "@", "_", " ", "_").Replace(safe)
	if safe == "" {
		safe = "default"
	}
	return filepath.Join(baseDir, safe+".sqlite3")
}
