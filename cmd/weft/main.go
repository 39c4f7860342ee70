// Command weft runs an agent server and provides client commands for
// talking to remote agents.
//
// Usage:
//
//	weft serve --config weft.yaml
//	weft card http://localhost:8080
//	weft invoke http://localhost:8080 echo --params '{"message":"hi"}'
//	weft health http://localhost:8080
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/weftworks/weft/pkg/config"
	"github.com/weftworks/weft/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the agent server."`
	Card     CardCmd     `cmd:"" help:"Fetch and print a remote agent's card."`
	Invoke   InvokeCmd   `cmd:"" help:"Invoke a skill on a remote agent."`
	Health   HealthCmd   `cmd:"" help:"Check a remote agent's health."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("weft version %s\n", version)
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("weft"),
		kong.Description("weft - agent-to-agent protocol server and client"),
		kong.UsageOnError(),
	)

	_, cleanup, err := logger.Init(logger.Config{
		Level:  cli.LogLevel,
		Format: cli.LogFormat,
		File:   cli.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
