package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// themeFile is the on-disk layout of a theme
type themeFile struct {
	InboxPilot *ColorsConfig `yaml:"inboxpilot"`
}

// LoadTheme reads a YAML theme. Colors the file leaves out keep their
// defaults; an empty path returns the defaults.
func LoadTheme(path string) (*ColorsConfig, error) {
	colors := DefaultColors()
	if path == "" {
		return colors, nil
	}

	path = ExpandPath(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(DefaultConfigDir(), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var probe struct {
		InboxPilot yaml.Node `yaml:"inboxpilot"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if probe.InboxPilot.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid theme file: missing inboxpilot section")
	}

	theme := themeFile{InboxPilot: colors}
	if err := probe.InboxPilot.Decode(theme.InboxPilot); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if err := ValidateTheme(theme.InboxPilot); err != nil {
		return nil, err
	}
	return theme.InboxPilot, nil
}

// SaveTheme writes a theme to a YAML file
func SaveTheme(theme *ColorsConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create themes directory: %w", err)
	}
	data, err := yaml.Marshal(themeFile{InboxPilot: theme})
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}
	return nil
}

// ValidateTheme validates a theme configuration
func ValidateTheme(theme *ColorsConfig) error {
	if theme == nil {
		return fmt.Errorf("theme is nil")
	}

	required := []struct {
		name  string
		color Color
	}{
		{"body.fgColor", theme.Body.FgColor},
		{"body.bgColor", theme.Body.BgColor},
		{"chat.userColor", theme.Chat.UserColor},
		{"chat.assistantColor", theme.Chat.AssistantColor},
	}
	for _, req := range required {
		if req.color == "" {
			return fmt.Errorf("missing required color: %s", req.name)
		}
	}
	return nil
}
