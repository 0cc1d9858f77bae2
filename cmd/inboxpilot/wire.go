package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ajramos/inboxpilot/internal/assistant"
	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/gmail"
	"github.com/ajramos/inboxpilot/internal/llm"
	"github.com/ajramos/inboxpilot/internal/services"
	"github.com/ajramos/inboxpilot/pkg/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// backend holds the collaborators shared by every chat session
type backend struct {
	cfg         *config.Config
	account     string
	interpreter *assistant.Interpreter
	inbox       *services.InboxServiceImpl
	databases   *services.DatabaseManager
}

// loadConfig reads the configuration through a Manager so later reloads
// can be watched.
func loadConfig() (*config.Manager, error) {
	manager := config.NewManager()
	if err := manager.LoadFromFile(getConfigPath(configPathFlag)); err != nil {
		return nil, err
	}
	return manager, nil
}

// newStderrLogger builds a production logger at the configured level
func newStderrLogger(level string) (*zap.Logger, zap.AtomicLevel, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log level: %w", err)
		}
		zcfg.Level = lvl
	}
	l, err := zcfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, zcfg.Level, nil
}

// followLogLevel applies log_level changes from the config file
func followLogLevel(manager *config.Manager, level zap.AtomicLevel) {
	manager.AddWatcher(func(c *config.Config) {
		lvl, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			logger.Warn("ignoring invalid log level", zap.String("level", c.LogLevel))
			return
		}
		if lvl != level.Level() {
			level.SetLevel(lvl)
			logger.Info("log level changed", zap.String("level", lvl.String()))
		}
	})
}

// newProvider returns the configured model, or nil when none is usable.
// Without a model every command goes through the built-in rules.
func newProvider(ctx context.Context, cfg *config.Config) llm.Provider {
	if !cfg.LLM.Enabled {
		logger.Info("LLM disabled, using keyword rules only")
		return nil
	}
	provider, err := llm.NewProviderFromConfig(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		Endpoint: cfg.LLM.Endpoint,
		Region:   cfg.LLM.Region,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  cfg.GetLLMTimeout(),
	})
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		logger.Warn("no API key for the LLM provider, using keyword rules only", zap.String("provider", cfg.LLM.Provider))
		return nil
	case err != nil:
		logger.Warn("could not initialize LLM provider", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		return nil
	}
	return provider
}

func newInterpreter(provider llm.Provider, cfg *config.Config) *assistant.Interpreter {
	interp := assistant.NewInterpreter(provider, cfg.LLM.GetInterpretPrompt())
	interp.SetLogger(logger.Named("interpreter"))
	return interp
}

// newBackend signs in to Gmail and assembles the services
func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	credPath := getCredentialsPath(credPathFlag, cfg.Credentials)
	tokenPath := getTokenPath("", cfg.Token)
	if _, err := os.Stat(credPath); err != nil {
		return nil, fmt.Errorf("credentials file not found at %s; run 'inboxpilot setup'", credPath)
	}

	oauth := auth.NewOAuth2Config(credPath, tokenPath, auth.GmailScopes...)
	oauth.Logger = logger.Named("auth")
	svc, err := oauth.GmailService(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not initialize Gmail service: %w", err)
	}
	client := gmail.NewClient(svc)

	account, err := client.ActiveAccountEmail(ctx)
	if err != nil {
		logger.Warn("could not resolve the signed-in account", zap.Error(err))
	}

	databases := services.NewDatabaseManager(cfg, logger.Named("db"))
	var cache services.CacheService
	if c, err := databases.SwitchToAccount(ctx, account); err != nil {
		logger.Warn("could not open cache store", zap.Error(err))
	} else if c != nil {
		cache = c
	}

	provider := newProvider(ctx, cfg)
	ai := services.NewAIService(provider, cache, cfg)
	ai.SetLogger(logger.Named("ai"))

	inbox := services.NewInboxService(client, ai, cfg)
	inbox.SetLogger(logger.Named("inbox"))

	return &backend{
		cfg:         cfg,
		account:     account,
		interpreter: newInterpreter(provider, cfg),
		inbox:       inbox,
		databases:   databases,
	}, nil
}

// newSession builds a controller with a fresh conversation
func (b *backend) newSession() *services.ChatController {
	dispatcher := services.NewDispatcher(b.inbox, b.cfg.Inbox.MaxResults)
	dispatcher.SetLogger(logger.Named("dispatcher"))
	ctrl := services.NewChatController(conversation.NewState(b.account), b.interpreter, dispatcher, b.inbox)
	ctrl.SetLogger(logger.Named("chat"))
	return ctrl
}

func (b *backend) Close() {
	if err := b.databases.Close(); err != nil {
		logger.Warn("failed to close cache store", zap.Error(err))
	}
}
