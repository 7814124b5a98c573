package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"socialconnect/internal/app"
	"socialconnect/internal/auth"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger      *zap.Logger
	application *app.App

	// newLogger is swapped out by tests.
	newLogger = buildLogger
)

func buildLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if debug {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "socialconnect",
		Short: "SocialConnect - a single-user social feed backed by a local key-value store",
		Long: `SocialConnect keeps one signed-in user and a feed of posts, comments,
likes and shares in a key-value store (SQLite by default; Postgres, Redis
or memory via configuration).

Logging in is simulated: any email is accepted and the password is ignored.
The first login on an empty store seeds a few sample posts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Debug = true
			}
			logger, err = newLogger(cfg.Debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			application, err = app.New(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return application.Ready(ctx, application.Start(ctx))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if application != nil {
				if err := application.Close(); err != nil {
					logger.Warn("close failed", zap.Error(err))
				}
				application = nil
			}
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $SOCIALCONNECT_CONFIG)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProfileCmd(),
		newFeedCmd(),
		newPostCmd(),
		newLikeCmd(),
		newCommentCmd(),
		newShareCmd(),
		newDeleteCmd(),
		newLikeCommentCmd(),
		newStorageCmd(),
		newClearCmd(),
		newMetricsCmd(),
	)
	return root
}

// opContext bounds one store operation by the configured timeout.
func opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), application.Cfg.OpTimeout)
}

func requireUser() error {
	if application.Session.State() != auth.StateAuthenticated {
		return fmt.Errorf("not logged in; run `socialconnect login <email>`")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	// PersistentPostRun is skipped when a command fails.
	if err != nil && application != nil {
		application.Close()
		_ = logger.Sync()
	}
	stop()
	app.Must(err)
}
