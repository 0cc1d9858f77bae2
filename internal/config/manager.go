package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Manager provides centralized configuration management with validation and watching
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	watchers []func(*Config)

	configPath   string
	lastModTime  time.Time
	watchCancel  context.CancelFunc
	watchRunning bool
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	cfg := DefaultConfig()
	applyEnv(cfg)
	return &Manager{config: cfg}
}

// LoadFromFile loads configuration from a file with validation
func (m *Manager) LoadFromFile(configPath string) error {
	configPath = ExpandPath(configPath)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.configPath = configPath
	if stat, err := os.Stat(configPath); err == nil {
		m.lastModTime = stat.ModTime()
	}
	watchers := append(([]func(*Config))(nil), m.watchers...)
	m.mu.Unlock()

	notify(watchers, cfg)
	return nil
}

// GetConfig returns a copy of the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := *m.config
	return &c
}

// Path returns the file the configuration was loaded from
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// AddWatcher adds a configuration change watcher
func (m *Manager) AddWatcher(watcher func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, watcher)
}

// Watch polls the configuration file and reloads it when it changes
func (m *Manager) Watch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.configPath == "" {
		return fmt.Errorf("no config file path set")
	}
	if m.watchRunning {
		return fmt.Errorf("already watching configuration file")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchRunning = true
	go m.watchConfigFile(watchCtx)
	return nil
}

// StopWatching stops watching the configuration file
func (m *Manager) StopWatching() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchRunning = false
}

// GetCredentialPaths returns the credential and token paths with proper expansion
func (m *Manager) GetCredentialPaths() (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	credPath, tokenPath := DefaultCredentialPaths()
	if m.config.Credentials != "" {
		credPath = ExpandPath(m.config.Credentials)
	}
	if m.config.Token != "" {
		tokenPath = ExpandPath(m.config.Token)
	}
	return credPath, tokenPath
}

// Validate checks a configuration for values that cannot work
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if cfg.LLM.Enabled {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "gemini", "ollama":
		case "bedrock":
			if strings.TrimSpace(cfg.LLM.Model) == "" {
				return fmt.Errorf("bedrock provider requires llm.model")
			}
		default:
			return fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
		}
		if cfg.LLM.Timeout != "" {
			if _, err := time.ParseDuration(cfg.LLM.Timeout); err != nil {
				return fmt.Errorf("invalid LLM timeout: %w", err)
			}
		}
	}

	if cfg.Inbox.MaxResults < 1 || cfg.Inbox.MaxResults > 50 {
		return fmt.Errorf("inbox.max_results must be between 1 and 50")
	}
	if cfg.Inbox.DeleteSearchLimit < 1 || cfg.Inbox.DeleteFallbackLimit < 1 {
		return fmt.Errorf("inbox delete limits must be positive")
	}
	if cfg.Server.ReadTimeout != "" {
		if _, err := time.ParseDuration(cfg.Server.ReadTimeout); err != nil {
			return fmt.Errorf("invalid server read timeout: %w", err)
		}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return nil
}

// applyDefaults fills zero values left by a partial config file
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = def.LLM.Provider
	}
	if cfg.LLM.MaxBodyLength <= 0 {
		cfg.LLM.MaxBodyLength = def.LLM.MaxBodyLength
	}
	if cfg.Inbox.MaxResults == 0 {
		cfg.Inbox.MaxResults = def.Inbox.MaxResults
	}
	if cfg.Inbox.DetailWorkers <= 0 {
		cfg.Inbox.DetailWorkers = def.Inbox.DetailWorkers
	}
	if cfg.Inbox.DeleteSearchLimit == 0 {
		cfg.Inbox.DeleteSearchLimit = def.Inbox.DeleteSearchLimit
	}
	if cfg.Inbox.DeleteFallbackLimit == 0 {
		cfg.Inbox.DeleteFallbackLimit = def.Inbox.DeleteFallbackLimit
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.MaxConnections <= 0 {
		cfg.Server.MaxConnections = def.Server.MaxConnections
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}

// applyEnv lets the environment supply secrets that should not live in the file
func applyEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" && strings.EqualFold(cfg.LLM.Provider, "gemini") {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.LLM.Region == "" {
		cfg.LLM.Region = os.Getenv("AWS_REGION")
	}
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

func notify(watchers []func(*Config), cfg *Config) {
	for _, watcher := range watchers {
		c := *cfg
		go watcher(&c)
	}
}

func (m *Manager) watchConfigFile(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkConfigFileChanges()
		}
	}
}

func (m *Manager) checkConfigFileChanges() {
	m.mu.RLock()
	configPath := m.configPath
	lastModTime := m.lastModTime
	m.mu.RUnlock()

	if configPath == "" {
		return
	}
	stat, err := os.Stat(configPath)
	if err != nil {
		return
	}
	if stat.ModTime().After(lastModTime) {
		_ = m.LoadFromFile(configPath)
	}
}
