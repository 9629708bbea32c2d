package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/internal/platform"
	"github.com/aretw0/quire/pkg/adapters/session"
)

var (
	verbose    bool
	configPath string
	endpoint   string

	config platform.Config
)

var errNotLoggedIn = errors.New("not logged in (run `quire login TOKEN`)")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quire",
	Short: "A note client that keeps your notes in sync with a remote store",
	Long: `Quire is a terminal client for a remote notes service.
It keeps a local view of your notes in sync with the server and saves
your edits in the background after a short quiet period.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := platform.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		config = cfg

		level := cfg.LogLevel()
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		if cfg.Source != "" {
			logger.Debug("config loaded", "path", cfg.Source)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: nearest .quire.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Base URL of the notes API (overrides config)")
}

func appOptions(extra ...quire.Option) []quire.Option {
	opts := config.Options()
	if endpoint != "" {
		opts = append(opts, quire.WithEndpoint(endpoint))
	}
	opts = append(opts, quire.WithLogger(slog.Default()))
	return append(opts, extra...)
}

func openCredentials() (*session.FileStore, error) {
	return quire.OpenCredentials(appOptions()...)
}

// withApp runs fn against a started application and flushes it afterwards.
// It fails early when no one is logged in.
func withApp(ctx context.Context, fn func(ctx context.Context, app *quire.App) error) error {
	app, err := quire.New(appOptions()...)
	if err != nil {
		return err
	}
	if app.Session().Credential() == "" {
		return errNotLoggedIn
	}
	if err := app.Start(ctx); err != nil {
		_ = app.Stop(context.WithoutCancel(ctx))
		return err
	}

	runErr := fn(ctx, app)
	stopErr := app.Stop(context.WithoutCancel(ctx))
	return errors.Join(runErr, stopErr)
}
