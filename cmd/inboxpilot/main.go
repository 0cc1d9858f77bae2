package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajramos/inboxpilot/internal/config"
	"github.com/ajramos/inboxpilot/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	envConfig      = "INBOXPILOT_CONFIG"
	envCredentials = "INBOXPILOT_CREDENTIALS"
	envToken       = "INBOXPILOT_TOKEN"
)

var (
	configPathFlag string
	credPathFlag   string
	serveAddrFlag  string

	// logger is built per command: a file for the chat screen, stderr otherwise
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "inboxpilot",
	Short: "InboxPilot - a chat assistant for your Gmail inbox",
	Long: `InboxPilot reads your latest emails, drafts replies and deletes
messages from plain-language commands.

Run without arguments to start the terminal chat.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the terminal chat (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over a JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), serveAddrFlag)
	},
}

var interpretCmd = &cobra.Command{
	Use:   "interpret <command...>",
	Short: "Show how a command would be understood, as JSON",
	Long: `Interpret runs a command through the model (when one is configured)
and the built-in rules, and prints the resulting action. Gmail is not touched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInterpret(cmd.Context(), cmd.OutOrStdout(), joinArgs(args))
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Check credentials, sign in to Gmail and write a default config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "Path to JSON configuration file (default: ~/.config/inboxpilot/config.json)")
	rootCmd.PersistentFlags().StringVar(&credPathFlag, "credentials", "", "Path to OAuth client credentials JSON (default: ~/.config/inboxpilot/credentials.json)")
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "Listen address (overrides server.addr)")

	rootCmd.Version = version.GetVersionString()
	rootCmd.AddCommand(chatCmd, serveCmd, interpretCmd, setupCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable INBOXPILOT_CONFIG
// 3. Default path ~/.config/inboxpilot/config.json
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return config.ExpandPath(flagValue)
	}
	if envPath := os.Getenv(envConfig); envPath != "" {
		return config.ExpandPath(envPath)
	}
	return config.DefaultConfigPath()
}

// getCredentialsPath returns the credentials file path using the following priority:
// 1. CLI flag
// 2. Environment variable INBOXPILOT_CREDENTIALS
// 3. Config file setting
// 4. Default path ~/.config/inboxpilot/credentials.json
func getCredentialsPath(flagValue, configValue string) string {
	credPath, _ := config.DefaultCredentialPaths()
	return firstPath(credPath, flagValue, os.Getenv(envCredentials), configValue)
}

// getTokenPath is getCredentialsPath for the cached OAuth token
func getTokenPath(flagValue, configValue string) string {
	_, tokenPath := config.DefaultCredentialPaths()
	return firstPath(tokenPath, flagValue, os.Getenv(envToken), configValue)
}

func firstPath(fallback string, candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return filepath.Clean(config.ExpandPath(c))
		}
	}
	return fallback
}
