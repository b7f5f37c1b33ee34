package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/huntkil/lexis/internal/config"
	logpkg "github.com/huntkil/lexis/internal/logger"
	"github.com/huntkil/lexis/internal/version"
)

var envFlag string

var rootCmd = &cobra.Command{
	Use:           "lexis",
	Short:         "Full-text search over application records",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "lexis", version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "config environment (default: $ENV or local)")
	rootCmd.AddCommand(versionCmd)
}

// bootstrap loads configuration for the selected environment and builds the app.
func bootstrap(ctx context.Context) (*app, error) {
	env := envFlag
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Debug("Configuration loaded",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.Int("entity_types", len(cfg.EntityTypes)),
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}
