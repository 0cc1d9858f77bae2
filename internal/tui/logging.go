package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ajramos/inboxpilot/internal/config"
	"go.uber.org/zap"
)

// NewFileLogger builds a JSON logger that writes to path instead of the
// terminal the dashboard draws on. An empty path uses the default log file.
func NewFileLogger(path, level string) (*zap.Logger, error) {
	if path == "" {
		path = config.DefaultLogPath()
	}
	if path == "" {
		return zap.NewNop(), nil
	}
	path = config.ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.DisableStacktrace = true
	return cfg.Build(zap.Fields(zap.String("ui", "chat")))
}
