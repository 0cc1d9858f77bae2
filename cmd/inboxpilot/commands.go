package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ajramos/inboxpilot/internal/assistant"
	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/server"
	"github.com/ajramos/inboxpilot/internal/tui"
	"github.com/ajramos/inboxpilot/pkg/auth"
	"go.uber.org/zap"
)

// runChat starts the terminal dashboard. Logs go to a file so they do not
// draw over the screen.
func runChat(ctx context.Context) error {
	manager, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	logger, err = tui.NewFileLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}

	colors, err := config.LoadTheme(cfg.Theme)
	if err != nil {
		logger.Warn("could not load theme, using defaults", zap.String("theme", cfg.Theme), zap.Error(err))
		colors = config.DefaultColors()
	}

	b, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	logger.Info("starting chat", zap.String("account", b.account))
	app := tui.NewApp(b.newSession(), colors, logger)
	if err := app.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}

// runServe exposes the assistant over HTTP until interrupted
func runServe(ctx context.Context, addr string) error {
	manager, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	var level zap.AtomicLevel
	logger, level, err = newStderrLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	followLogLevel(manager, level)
	if err := manager.Watch(ctx); err != nil {
		logger.Warn("not watching configuration", zap.Error(err))
	}
	defer manager.StopWatching()

	b, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	serverCfg := cfg.Server
	if addr != "" {
		serverCfg.Addr = addr
	}
	srv := server.New(server.Options{
		Config:      serverCfg,
		ReadTimeout: cfg.GetReadTimeout(),
		Interpreter: b.interpreter,
		Inbox:       b.inbox,
		NewSession:  b.newSession,
		Logger:      logger.Named("http"),
	})
	logger.Info("serving assistant API", zap.String("addr", serverCfg.Addr), zap.String("account", b.account))
	return srv.ListenAndServe(ctx)
}

// interpretOutput is the interpretation plus where it came from
type interpretOutput struct {
	Action       assistant.Action           `json:"action"`
	DeleteParams *assistant.DeleteCriterion `json:"deleteParams,omitempty"`
	Source       assistant.Source           `json:"source"`
}

// runInterpret classifies one command and prints it. It needs no Gmail access.
func runInterpret(ctx context.Context, out io.Writer, command string) error {
	manager, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	level := cfg.LogLevel
	if level == "" || level == "info" {
		level = "warn"
	}
	if logger, _, err = newStderrLogger(level); err != nil {
		return err
	}

	in := newInterpreter(newProvider(ctx, cfg), cfg).Interpret(ctx, command)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(interpretOutput{
		Action:       in.Action,
		DeleteParams: in.DeleteParams,
		Source:       in.Source,
	})
}

// runSetup walks through credentials, config and the first sign-in
func runSetup(ctx context.Context, in io.Reader, out io.Writer) error {
	configPath := getConfigPath(configPathFlag)
	credPath := getCredentialsPath(credPathFlag, "")
	tokenPath := getTokenPath("", "")
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "📧 InboxPilot Setup")
	fmt.Fprintln(out, "===================")
	fmt.Fprintln(out)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "✅ Configuration file already exists: %s\n", configPath)
	} else if confirm(reader, out, fmt.Sprintf("📄 Create default configuration file at %s? [Y/n]: ", configPath)) {
		if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Fprintf(out, "✅ Created configuration file: %s\n", configPath)
	}

	if _, err := os.Stat(credPath); err != nil {
		fmt.Fprintf(out, "⚠️  Credentials file missing: %s\n\n", credPath)
		fmt.Fprintln(out, "📋 To set up Gmail API credentials:")
		fmt.Fprintln(out, "1. Go to https://console.cloud.google.com/")
		fmt.Fprintln(out, "2. Create a new project or select existing one")
		fmt.Fprintln(out, "3. Enable Gmail API")
		fmt.Fprintln(out, "4. Create OAuth 2.0 credentials (Desktop application)")
		fmt.Fprintln(out, "5. Download the JSON file and save it as:")
		fmt.Fprintf(out, "   %s\n\n", credPath)
		fmt.Fprintln(out, "Then run setup again to sign in.")
		return nil
	}
	fmt.Fprintf(out, "✅ Credentials file found: %s\n", credPath)

	if _, err := os.Stat(tokenPath); err == nil {
		fmt.Fprintf(out, "✅ Token file exists: %s\n", tokenPath)
	} else {
		fmt.Fprintln(out, "🔐 Signing in to Gmail…")
		oauth := auth.NewOAuth2Config(credPath, tokenPath, auth.GmailScopes...)
		oauth.Out = out
		if _, err := oauth.GetToken(ctx); err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}
		fmt.Fprintf(out, "✅ Saved token: %s\n", tokenPath)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "🚀 Setup complete! You can now run:")
	fmt.Fprintln(out, "   inboxpilot          # terminal chat")
	fmt.Fprintln(out, "   inboxpilot serve    # HTTP API")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "💡 Set GEMINI_API_KEY (or edit the llm section) to let the model read your commands.")
	return nil
}

// confirm asks a yes/no question; an empty answer means yes
func confirm(reader *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}
