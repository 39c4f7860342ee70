package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/weftworks/weft/pkg/a2a"
	"github.com/weftworks/weft/pkg/a2a/client"
	"github.com/weftworks/weft/pkg/config"
)

// newClient builds a client from the config file plus CLI flags.
func newClient(ctx context.Context, cli *CLI) (*client.Client, error) {
	cfg := &config.Config{}
	if cli.Config != "" {
		loaded, loader, err := config.LoadConfigFile(ctx, cli.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		loader.Close()
		cfg = loaded
	} else {
		cfg.SetDefaults()
	}

	return client.New(
		client.WithTimeout(cfg.Client.Timeout),
		client.WithMaxRetries(cfg.Client.MaxRetries),
		client.WithCardTTL(cfg.Client.CardTTL),
		client.WithPoolSize(cfg.Client.PoolSize),
		client.WithCredentials(client.Credentials{
			Scheme:   cfg.Client.Auth.Scheme,
			Token:    cfg.Client.Auth.Token,
			Header:   cfg.Client.Auth.Header,
			Username: cfg.Client.Auth.Username,
			Password: cfg.Client.Auth.Password,
		}),
	), nil
}

// CardCmd fetches and prints a remote agent's card.
type CardCmd struct {
	URL string `arg:"" help:"Agent base URL."`
}

func (c *CardCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cl, err := newClient(ctx, cli)
	if err != nil {
		return err
	}

	card, err := cl.FetchAgentCard(ctx, c.URL, true)
	if err != nil {
		return err
	}
	return printJSON(card)
}

// InvokeCmd invokes a skill on a remote agent.
type InvokeCmd struct {
	URL    string `arg:"" help:"Agent base URL."`
	Skill  string `arg:"" help:"Skill name to invoke."`
	Params string `short:"p" help:"Skill parameters as a JSON object." default:"{}"`
	Stream bool   `help:"Stream progress events instead of blocking."`
}

func (c *InvokeCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cl, err := newClient(ctx, cli)
	if err != nil {
		return err
	}

	var params map[string]interface{}
	if err := json.Unmarshal([]byte(c.Params), &params); err != nil {
		return fmt.Errorf("invalid --params: %w", err)
	}

	if c.Stream {
		events, err := cl.InvokeSkillStreaming(ctx, c.URL, c.Skill, params)
		if err != nil {
			return err
		}
		for event := range events {
			line, _ := json.Marshal(map[string]interface{}{
				"event": event.Type,
				"data":  event.Data,
			})
			fmt.Println(string(line))
			if event.Type == a2a.StreamEventError {
				os.Exit(1)
			}
		}
		return nil
	}

	result, err := cl.InvokeSkill(ctx, c.URL, c.Skill, params)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// HealthCmd checks a remote agent's health.
type HealthCmd struct {
	URL string `arg:"" help:"Agent base URL."`
}

func (c *HealthCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cl, err := newClient(ctx, cli)
	if err != nil {
		return err
	}

	report := cl.HealthCheck(ctx, c.URL)
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.Healthy() {
		os.Exit(1)
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
