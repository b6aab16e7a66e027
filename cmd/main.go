// Command cpboard builds and serves the competitive-programming leaderboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	app "github.com/okian/cpboard/internal/app"
	"github.com/okian/cpboard/internal/config"
	"github.com/okian/cpboard/pkg/logger"
)

const version = "1.0.0"

// cli carries state shared by every subcommand once the root has bootstrapped.
type cli struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	logFile    string

	cfg *config.Config
	log logger.Logger

	svcOpts []app.Option
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. svcOpts are applied to every service
// the commands open.
func newRootCmd(svcOpts ...app.Option) *cobra.Command {
	c := &cli{svcOpts: svcOpts}
	root := &cobra.Command{
		Use:   "cpboard",
		Short: "cpboard - competitive programming leaderboard",
		Long: `cpboard merges contest results and external judge ratings into one
ranked leaderboard per cohort:
- ingests weekly and monthly Pyramid contest spreadsheets
- scrapes Codeforces, LeetCode, CodeChef, GeeksforGeeks and HackerRank ratings
- scores every student into a TotalRating and Percentile
- serves the leaderboard over HTTP and queues runs`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.bootstrap,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigFile+")")
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	flags.StringVar(&c.logLevel, "log-level", "", "override log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "override log format: text or json")
	flags.StringVar(&c.logFile, "log-file", "", "additionally write logs to this rotated file")

	root.AddCommand(
		c.runCmd(),
		c.pyramidCmd(),
		c.scrapeCmd(),
		c.exportCmd(),
		c.rosterCmd(),
		c.serveCmd(),
	)
	return root
}

// bootstrap loads .env, configuration and the logger, in that order.
func (c *cli) bootstrap(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", c.envFile, err)
	}

	path := c.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	if c.logFile != "" {
		cfg.LogFile = c.logFile
	}

	if err := logger.Init(
		logger.WithFormat(cfg.LogFormat),
		logger.WithFile(cfg.LogFile),
		logger.WithOutput(cmd.ErrOrStderr()),
	); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	c.cfg = cfg
	c.log = logger.Named("cli")
	return nil
}

// openService opens the store and pipeline for synchronous commands.
func (c *cli) openService(ctx context.Context) (*app.Service, error) {
	svc := c.newService()
	if err := svc.Open(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func (c *cli) newService() *app.Service {
	return app.New(c.cfg, append([]app.Option{app.WithLogger(c.log)}, c.svcOpts...)...)
}
