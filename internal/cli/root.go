// Package cli provides the command-line interface for girs.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/girs/internal/chat"
	"github.com/raphaelgruber/girs/internal/client"
	"github.com/raphaelgruber/girs/internal/config"
	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/metrics"
	"github.com/raphaelgruber/girs/internal/session"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	apiURL  string

	cfg        *config.Config
	logger     *slog.Logger
	logCleanup func() error
	collector  *metrics.Collector
	storage    *session.FileStorage
	apiClient  *client.Client
	sessions   *session.Store

	// tuiRunning silences terminal output from background hooks while the
	// chat UI owns the screen.
	tuiRunning atomic.Bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "girs",
	Short: "Chat with the GIRS assistant from the terminal",
	Long: `girs is a terminal client for the GIRS conversational assistant.

Sign in once with 'girs login'; the session token is kept in your user
config directory and reused by every command until you log out or the
server rejects it.

Configuration comes from GIRS_* environment variables or a .env file
(see 'girs config').`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if apiURL != "" {
			cfg.APIURL = apiURL
		}

		setupLogging(cmd)

		collector = metrics.NewCollector()
		storage = session.NewFileStorage(cfg.SessionFile)
		apiClient = client.New(cfg.APIURL,
			client.WithTimeout(cfg.RequestTimeout),
			client.WithTokenSource(storage),
			client.WithMetrics(collector),
			client.WithLogger(logger),
		)
		sessions = session.New(apiClient, storage,
			session.WithLogger(logger),
			session.WithUnauthorizedSignal(apiClient.Unauthorized()),
			session.WithRedirect(func() {
				if !tuiRunning.Load() {
					fmt.Fprintln(os.Stderr, "Your session has expired. Run 'girs login' to sign in again.")
				}
			}),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && collector != nil {
			printMetrics(collector.Snapshot())
		}
		if sessions != nil {
			sessions.Close()
		}
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// setupLogging writes JSON logs to the log file. Stderr gets warnings only,
// or everything with --verbose. The chat TUI owns the terminal, so it gets no
// stderr logging at all.
func setupLogging(cmd *cobra.Command) {
	stderrLevel := slog.LevelWarn
	fileLevel := cfg.LogLevel
	if verbose {
		stderrLevel = slog.LevelDebug
		fileLevel = slog.LevelDebug
	}

	if cmd.Name() == "chat" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			logCleanup = nil
		} else {
			logger = config.SetupLoggerWithWriters(io.Discard, file, fileLevel, stderrLevel)
			logCleanup = file.Close
		}
	} else {
		logger, logCleanup = config.SetupLogger(cfg.LogFile, fileLevel, stderrLevel)
	}
	slog.SetDefault(logger)
}

// requireSession restores the persisted session and fails when there is none.
func requireSession(ctx context.Context) error {
	sessions.Hydrate(ctx)
	if !sessions.State().Authenticated() {
		return fmt.Errorf("%w: run 'girs login' first", apperrors.ErrNotAuthenticated)
	}
	return nil
}

// newChatService wires a chat service to the API client.
func newChatService() *chat.Service {
	return chat.NewService(apiClient, chat.NewStore(), chat.WithLogger(logger))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and request timings")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides GIRS_API_URL)")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(confirmEmailCmd)
	rootCmd.AddCommand(forgotPasswordCmd)
	rootCmd.AddCommand(verifyOTPCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
}
