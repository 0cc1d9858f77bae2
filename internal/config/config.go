package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AppDir is the directory name under ~/.config
const AppDir = "inboxpilot"

// LLMConfig holds all LLM-related configuration
type LLMConfig struct {
	// Core LLM settings
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"` // gemini, ollama, bedrock
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"` // For AWS Bedrock
	APIKey   string `json:"api_key"`
	Timeout  string `json:"timeout"`

	// MaxBodyLength caps the email body (in runes) sent with each prompt
	MaxBodyLength int `json:"max_body_length"`

	// Caching configuration
	CacheEnabled bool   `json:"cache_enabled"`
	CachePath    string `json:"cache_path"`

	// Template file paths (relative to config dir or absolute)
	InterpretTemplate string `json:"interpret_template"`
	SummarizeTemplate string `json:"summarize_template"`
	ReplyTemplate     string `json:"reply_template"`
	RefineTemplate    string `json:"refine_template"`

	// Inline prompt overrides (optional - used when no template file is found)
	InterpretPrompt string `json:"interpret_prompt,omitempty"`
	SummarizePrompt string `json:"summarize_prompt,omitempty"`
	ReplyPrompt     string `json:"reply_prompt,omitempty"`
	RefinePrompt    string `json:"refine_prompt,omitempty"`
}

// InboxConfig controls how much of the inbox each action touches
type InboxConfig struct {
	MaxResults          int64 `json:"max_results"`
	DetailWorkers       int   `json:"detail_workers"`
	DeleteSearchLimit   int64 `json:"delete_search_limit"`
	DeleteFallbackLimit int64 `json:"delete_fallback_limit"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string `json:"addr"`
	MaxConnections int    `json:"max_connections"`
	ReadTimeout    string `json:"read_timeout"`
}

// Config holds all configuration for InboxPilot
type Config struct {
	Credentials string `json:"credentials"`
	Token       string `json:"token"`

	LLM    LLMConfig    `json:"llm"`
	Inbox  InboxConfig  `json:"inbox"`
	Server ServerConfig `json:"server"`

	// Logging
	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"`

	// Theme is a YAML theme file for the terminal chat
	Theme string `json:"theme"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM:      DefaultLLMConfig(),
		Inbox:    DefaultInboxConfig(),
		Server:   DefaultServerConfig(),
		LogLevel: "info",
	}
}

// DefaultLLMConfig returns default LLM configuration
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Enabled:           true,
		Provider:          "gemini",
		Model:             "gemini-2.5-flash",
		Timeout:           "20s",
		MaxBodyLength:     8000,
		CacheEnabled:      true,
		InterpretTemplate: "templates/ai/interpret.md",
		SummarizeTemplate: "templates/ai/summarize.md",
		ReplyTemplate:     "templates/ai/reply.md",
		RefineTemplate:    "templates/ai/refine.md",
	}
}

// DefaultInboxConfig mirrors the dashboard: five latest emails, delete search
// over ten matches with a fifteen message fallback.
func DefaultInboxConfig() InboxConfig {
	return InboxConfig{
		MaxResults:          5,
		DetailWorkers:       5,
		DeleteSearchLimit:   10,
		DeleteFallbackLimit: 15,
	}
}

// DefaultServerConfig returns default HTTP API configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "127.0.0.1:8787",
		MaxConnections: 64,
		ReadTimeout:    "30s",
	}
}

// LoadConfig loads configuration from file. A missing file yields defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// DefaultConfigDir returns ~/.config/inboxpilot
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppDir)
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// DefaultCredentialPaths returns the default paths for credentials and token
func DefaultCredentialPaths() (string, string) {
	dir := DefaultConfigDir()
	if dir == "" {
		return "", ""
	}
	return filepath.Join(dir, "credentials.json"), filepath.Join(dir, "token.json")
}

// DefaultCacheDir returns the default cache directory path
func DefaultCacheDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "cache")
}

// DefaultLogPath returns the log file used by the terminal chat
func DefaultLogPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "inboxpilot.log")
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// GetLLMTimeout returns parsed timeout for LLM
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 20*time.Second)
}

// GetReadTimeout returns the HTTP read timeout
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// LoadTemplate loads a template with proper priority: file first, then inline, then fallback
func LoadTemplate(templatePath, inlinePrompt, fallbackPrompt string) string {
	if strings.TrimSpace(templatePath) != "" {
		fullPath := templatePath
		if !filepath.IsAbs(templatePath) {
			fullPath = filepath.Join(DefaultConfigDir(), templatePath)
		}
		if content, err := os.ReadFile(fullPath); err == nil {
			if s := strings.TrimSpace(string(content)); s != "" {
				return s
			}
		}
	}

	if strings.TrimSpace(inlinePrompt) != "" {
		return inlinePrompt
	}

	return fallbackPrompt
}

const defaultSummarizePrompt = "You are an email summarization assistant. Given an email, write a concise, user-friendly summary that tells the recipient what the email is about and what (if anything) they need to do.\n\nSummary requirements:\n- 1 to 3 short sentences, max ~60 words total.\n- Start with the key purpose of the email.\n- Mention any requests, deadlines, or important decisions.\n- Do NOT include greetings or sign-offs.\n- Do NOT speak in the first person as the sender.\n- Output only the summary text, nothing else.\n\nOriginal message:\nSender: {{from}}\nSubject: {{subject}}\nEmail body: {{body}}\n\nWrite the summary now:"

const defaultReplyPrompt = "You are an AI email assistant. Draft a clear, concise, professional email reply to the message below.\n\nReply requirements:\n- Write the reply as if it will be sent directly to the sender.\n- Include a short greeting that addresses the sender appropriately.\n- Keep the body focused and actionable (2-5 short paragraphs).\n- End with a natural, courteous sign-off.\n- Do NOT explain what you are doing.\n- Do NOT include headings like \"Here is your reply\" or \"Explanation\".\n- Output only the email text, nothing else.\n- Use the full email body below as context.\n\nOriginal message:\nSender: {{from}}\nSubject: {{subject}}\nEmail body: {{body}}\n\nWrite the reply now:"

const defaultRefinePrompt = "You are an expert email copy editor. Your job is to refine the draft reply below.\n\n{{context}}{{instructions}}Draft reply to refine:\n{{reply}}\n\nReturn only the improved email text, nothing else."

// GetInterpretPrompt returns the routing prompt override. Empty means the
// built-in router prompt is used.
func (c *LLMConfig) GetInterpretPrompt() string {
	return LoadTemplate(c.InterpretTemplate, c.InterpretPrompt, "")
}

// GetSummarizePrompt returns the summarize prompt, loading from template file if needed
func (c *LLMConfig) GetSummarizePrompt() string {
	return LoadTemplate(c.SummarizeTemplate, c.SummarizePrompt, defaultSummarizePrompt)
}

// GetReplyPrompt returns the reply prompt, loading from template file if needed
func (c *LLMConfig) GetReplyPrompt() string {
	return LoadTemplate(c.ReplyTemplate, c.ReplyPrompt, defaultReplyPrompt)
}

// GetRefinePrompt returns the refine prompt, loading from template file if needed
func (c *LLMConfig) GetRefinePrompt() string {
	return LoadTemplate(c.RefineTemplate, c.RefinePrompt, defaultRefinePrompt)
}
