package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campusbeacon/beacon/internal/mockapi"
)

var version = "dev"

const (
	defaultAddr       = "127.0.0.1:8080"
	defaultAdminEmail = "admin@campus.test"
	defaultAdminPass  = "admin"
	defaultSessionTTL = 24 * time.Hour
)

type mockConfig struct {
	Addr          string        `mapstructure:"addr"`
	Seed          bool          `mapstructure:"seed"`
	AdminEmail    string        `mapstructure:"admin-email"`
	AdminPassword string        `mapstructure:"admin-password"`
	SessionTTL    time.Duration `mapstructure:"session-ttl"`
	Verbose       bool          `mapstructure:"verbose"`
	ConfigPath    string        `mapstructure:"-"`
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/campusbeacon/mock.yml)")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (mockConfig, error) {
	var cfg mockConfig

	v := viper.New()
	v.SetEnvPrefix("BEACON_MOCK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("addr", defaultAddr)
	v.SetDefault("seed", true)
	v.SetDefault("admin-email", defaultAdminEmail)
	v.SetDefault("admin-password", defaultAdminPass)
	v.SetDefault("session-ttl", defaultSessionTTL)
	v.SetDefault("verbose", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".config", "campusbeacon", "mock.yml"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if cfg.SessionTTL <= 0 {
		return cfg, fmt.Errorf("invalid session-ttl: %s", cfg.SessionTTL)
	}
	return cfg, nil
}

func run(cfg mockConfig) error {
	zcfg := zap.NewProductionConfig()
	if cfg.Verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	data := mockapi.NewData()
	if cfg.Seed {
		if err := mockapi.Seed(data, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seeding data: %w", err)
		}
	}

	srv := mockapi.NewServer(cfg.Addr, data, mockapi.Options{
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start mock api: %w", err)
	}

	printStartupBanner(cfg, srv.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")
		return srv.Stop()
	})
	return g.Wait()
}

func printStartupBanner(cfg mockConfig, addr string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	lines := []string{
		"",
		cyan.Bold(true).Render("    CampusBeacon mock api"),
		"    " + dim.Render("v"+version),
		"",
		bold.Render("    Endpoints"),
		"",
		fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr)),
		fmt.Sprintf("    %s  Health         %s", check, dim.Render("/api/health")),
		"",
		bold.Render("    Data"),
		"",
	}
	if cfg.Seed {
		lines = append(lines, fmt.Sprintf("    %s  Sample data    %s", check, dim.Render("admin "+cfg.AdminEmail)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Sample data    %s", dot, dim.Render("disabled")))
	}
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(cfg.ConfigPath)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}
	lines = append(lines, "", "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}
