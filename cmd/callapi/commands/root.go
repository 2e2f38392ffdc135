// Package commands implements the callapi command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/illmade-knight/go-callapi/pkg/config"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI is the callapi command tree.
type CLI struct {
	rootCmd    *cobra.Command
	configPath string
	logLevel   string
	opener     kvstore.Opener // overrides the configured backend when set
}

// Option configures a CLI.
type Option func(*CLI)

// WithOpener makes every command use opener instead of the configured backend.
func WithOpener(opener kvstore.Opener) Option {
	return func(c *CLI) { c.opener = opener }
}

// New creates the command tree.
func New(opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "callapi",
		Short:         "Call JSON APIs through a local result cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &CLI{rootCmd: rootCmd}
	for _, opt := range opts {
		opt(c)
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(c.newFetchCmd())
	rootCmd.AddCommand(c.newCacheCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// env is what a command needs once configuration is loaded.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	opener kvstore.Opener
	close  func()
}

func (c *CLI) setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339, NoColor: os.Getenv("NO_COLOR") != ""}).
		Level(level).With().Timestamp().Str("service", "callapi").Logger()

	if c.opener != nil {
		return &env{cfg: cfg, logger: logger, opener: c.opener, close: func() {}}, nil
	}

	opener, closer, err := config.NewOpener(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache backend: %w", err)
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		opener: opener,
		close: func() {
			if err := closer.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close cache backend.")
			}
		},
	}, nil
}
