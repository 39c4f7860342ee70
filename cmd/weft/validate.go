package main

import (
	"context"
	"fmt"

	"github.com/weftworks/weft/pkg/config"
)

// ValidateCmd validates a configuration file without starting anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}

	cfg, loader, err := config.LoadConfigFile(context.Background(), cli.Config)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	defer loader.Close()

	fmt.Printf("Configuration valid: %s\n", cli.Config)
	fmt.Printf("  agent:  %s (version %s)\n", cfg.Agent.Name, cfg.Agent.Version)
	fmt.Printf("  server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	return nil
}
