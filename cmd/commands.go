package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chat-shim/internal/app"
	"chat-shim/internal/auth"
	"chat-shim/internal/config"
	"chat-shim/internal/llm"
	"chat-shim/internal/logging"
	"chat-shim/internal/settings"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const shutdownTimeout = 5 * time.Second

// rootOptions are the flags shared by every subcommand. Non-empty values
// override the environment.
type rootOptions struct {
	addr         string
	settingsPath string
	logLevel     string
}

func (o *rootOptions) config() config.Config {
	cfg := config.Load()
	if o.addr != "" {
		cfg.Addr = o.addr
	}
	if o.settingsPath != "" {
		cfg.SettingsPath = o.settingsPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg
}

func newLogger(cfg config.Config, out io.Writer) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}, out)
}

func newStore(cfg config.Config, logger *slog.Logger) *settings.Store {
	return settings.NewStore(settings.StoreConfig{
		Path:             cfg.SettingsPath,
		CredentialPrefix: cfg.CredentialPrefix,
	}, logger)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	serve := newServeCmd(opts)

	root := &cobra.Command{
		Use:   "chat-shim",
		Short: "OpenAI-compatible chat completions in front of an assistant CLI",
		Long: `chat-shim accepts OpenAI chat completion requests and answers them by
running the configured assistant CLI once per request in print mode.

Without a subcommand the HTTP server is started.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.PersistentFlags().StringVar(&opts.addr, "addr", "",
		"Listen address (overrides SHIM_ADDR)")
	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", "",
		"Settings file (overrides SHIM_SETTINGS_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides SHIM_LOG_LEVEL)")

	root.AddCommand(serve)
	root.AddCommand(newTokenCmd())
	root.AddCommand(newSettingsCmd(opts))
	root.AddCommand(newTestCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts.config())
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.DisableAuth {
		logger.Warn("API authorization is disabled - all requests will be accepted")
	} else if !cfg.AuthConfigured() {
		logger.Warn("No API keys or auth secret configured; every request will be rejected")
	}

	store := newStore(cfg, logger)
	a := app.NewApp(cfg, store, nil, logger)

	current := store.Snapshot()
	if version, err := a.LLM.ProbeCLI(ctx, current.CommandPath); err != nil {
		logger.Warn("Assistant CLI not available",
			"command", current.CommandPath, "error", err)
	} else {
		logger.Info("Assistant CLI found", "command", current.CommandPath,
			"version", version)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", cfg.Addr,
			"settings_path", cfg.SettingsPath, "version", Version)
		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {

			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", "error", err)
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		name    string
		admin   bool
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a caller token signed with SHIM_AUTH_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("SHIM_AUTH_SECRET")
			token, err := auth.CreateCallerToken(subject, name, admin,
				secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Caller id (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the subject)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant administrator access")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenLifetime, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the stored settings with the credential masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.config()
			store := newStore(cfg, logging.Discard())

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(store.Snapshot().Masked())
		},
	}
}

func newTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test [message]",
		Short: "Run one message through the assistant CLI",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config()
			logger, closer, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			store := newStore(cfg, logger)
			svc := llm.NewService(llm.Config{
				CredentialEnv: cfg.CredentialEnv,
				ModelID:       cfg.ModelID,
				TestTimeout:   cfg.TestTimeout,
			}, nil, logger)

			res := svc.Test(cmd.Context(), strings.Join(args, " "),
				store.Snapshot())

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			if err := out.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New("test invocation failed")
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chat-shim %s\n", Version)
		},
	}
}
