package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campusbeacon/beacon/internal/campus"
	"github.com/campusbeacon/beacon/internal/toast"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	cfg        appConfig
	logger     *zap.Logger
	store      *campus.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "beacon",
		Short:         "CampusBeacon command line client",
		Long:          "beacon manages clubs, events, notifications and listings on a CampusBeacon server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default is $HOME/.config/campusbeacon/config.yml)")
	pf.String("base-url", "", "collaborator base URL")
	pf.Duration("timeout", 0, "per-request timeout")
	pf.String("email", "", "account email")
	pf.String("password", "", "account password")
	pf.StringP("output", "o", "", "output format: yaml or json")
	pf.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(c),
		newResourceCmd(c, clubsResource()),
		newResourceCmd(c, coordinatorsResource()),
		newResourceCmd(c, eventsResource()),
		newResourceCmd(c, contactsResource()),
		newResourceCmd(c, usersResource()),
		newResourceCmd(c, marketplaceResource()),
		newNotificationsCmd(c),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CampusBeacon CLI\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", goVersion)
		},
	}
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(c.configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.cfg = cfg

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	c.logger = logger

	store, err := campus.New(campus.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Notifier:   toast.NewTerminal(cmd.ErrOrStderr()),
		Logger:     logger,
		LookupSize: cfg.LookupSize,
		LookupTTL:  cfg.LookupTTL,
		OnSessionExpired: func() {
			fmt.Fprintln(cmd.ErrOrStderr(), "session expired: run with --email and --password to sign in again")
		},
	})
	if err != nil {
		return err
	}
	c.store = store
	return nil
}

// signIn logs in when credentials are configured. Commands call it before
// touching protected endpoints.
func (c *cli) signIn(ctx context.Context) error {
	if c.cfg.Email == "" {
		return nil
	}
	if _, err := c.store.Login(ctx, c.cfg.Email, c.cfg.Password); err != nil {
		return fmt.Errorf("sign in as %s: %w", c.cfg.Email, err)
	}
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log-level %q: %w", level, err)
	}
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.DisableStacktrace = true
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
