package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weftworks/weft/pkg/a2a/server"
	"github.com/weftworks/weft/pkg/auth"
	"github.com/weftworks/weft/pkg/config"
	"github.com/weftworks/weft/pkg/observability"
	"github.com/weftworks/weft/pkg/workflow"
)

// ServeCmd starts the agent server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, loader, err := c.loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	if c.Watch && loader != nil {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	metrics, err := observability.InitMetrics(ctx, cfg.Metrics.Enabled)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	observability.SetGlobalMetrics(metrics)

	reg := workflow.NewRegistry()
	if err := registerBuiltinSkills(reg); err != nil {
		return fmt.Errorf("failed to register skills: %w", err)
	}

	opts := []server.Option{server.WithVersion(cfg.Agent.Version)}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(cfg.Metrics.Path))
	}
	if cfg.Server.Auth.Enabled {
		validator, err := auth.NewJWTValidator(cfg.Server.Auth.JWKSURL, cfg.Server.Auth.Issuer, cfg.Server.Auth.Audience)
		if err != nil {
			return fmt.Errorf("failed to initialize auth: %w", err)
		}
		opts = append(opts, server.WithAuthValidator(validator))
	}

	srv, err := server.New(cfg.Server, cfg.Agent, reg, opts...)
	if err != nil {
		return err
	}

	go srv.MonitorHealth(ctx, 30*time.Second)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
	}()

	fmt.Printf("\nweft agent ready\n")
	fmt.Printf("   Agent Card:  %s/.well-known/agent.json\n", cfg.Server.BaseURL)
	fmt.Printf("   Invoke:      %s/invoke\n", cfg.Server.BaseURL)
	fmt.Printf("   Health:      %s/health\n", cfg.Server.BaseURL)
	if cfg.Metrics.Enabled {
		fmt.Printf("   Metrics:     %s%s\n", cfg.Server.BaseURL, cfg.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start()
}

// loadConfig loads configuration from file, or falls back to defaults
// when no config file is given.
func (c *ServeCmd) loadConfig(ctx context.Context, configPath string) (*config.Config, *config.Loader, error) {
	if configPath != "" {
		cfg, loader, err := config.LoadConfigFile(ctx, configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		slog.Info("Loaded configuration", "path", configPath)
		return cfg, loader, nil
	}

	cfg := &config.Config{}
	cfg.SetDefaults()
	slog.Info("No config file given, using defaults")
	return cfg, nil, nil
}
