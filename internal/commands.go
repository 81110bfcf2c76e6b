// Copyright 2025 MakeMCP Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/T4cceptor/mps-mcp/pkg/config"
	"github.com/T4cceptor/mps-mcp/pkg/core"
	"github.com/T4cceptor/mps-mcp/pkg/tools"
)

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML configuration file. Flags override values from the file.",
			Sources: cli.EnvVars("MPS_MCP_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "transport",
			Aliases: []string{"t"},
			Value:   string(core.TransportTypeStdio),
			Usage:   "Used transport protocol for this MCP server - can be either stdio or http.",
			Sources: cli.EnvVars("MPS_MCP_TRANSPORT"),
		},
		&cli.IntFlag{
			Name:  "port",
			Value: config.DefaultPort,
			Usage: "Defines the port on which the HTTP server is started, ignored if transport is set to stdio.",
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL of the MPS platform API.",
			Sources: cli.EnvVars("MPS_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    "auth-url",
			Usage:   "Login endpoint of the MPS platform, defaults to <base-url>/auth/.",
			Sources: cli.EnvVars("MPS_AUTH_URL"),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for every request to the MPS platform.",
		},
		&cli.IntFlag{
			Name:  "export-workers",
			Value: config.DefaultExportWorkers,
			Usage: "Number of archive entries written concurrently during an export.",
		},
		&cli.BoolFlag{
			Name:  "dev-mode",
			Usage: "Enable development mode - suppresses security warnings for local/private URLs. Use only for local development.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   config.DefaultLogLevel,
			Usage:   "Log level: debug, info, warn or error. Logs go to stderr.",
			Sources: cli.EnvVars("MPS_MCP_LOG_LEVEL"),
		},
	}
}

// NewRootCommand returns the CLI. Running it without a subcommand serves MCP.
func NewRootCommand(version string, factory ServerFactory) *cli.Command {
	return &cli.Command{
		Name:    "mpsmcp",
		Usage:   "Expose the MPS low-code platform to AI agents as an MCP server.",
		Version: version,
		Flags:   serveFlags(),
		Action:  serveAction(version, factory),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Log in with the credentials from the environment and serve MCP",
				Flags:  serveFlags(),
				Action: serveAction(version, factory),
			},
			{
				Name:  "tools",
				Usage: "Print the tool and prompt definitions as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the manifest to this file instead of stdout.",
					},
				},
				Action: toolsAction(version),
			},
		},
	}
}

func serveAction(version string, factory ServerFactory) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := LoadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := NewLogger(os.Stderr, cfg.LogLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return NewApp(cfg, version, logger).Run(ctx, factory)
	}
}

func toolsAction(version string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		set := tools.NewSet(nil, nil, nil)
		manifest := NewManifest(version, set.Tools(), set.Prompts())
		if path := cmd.String("output"); path != "" {
			return SaveManifest(path, manifest, slog.Default())
		}
		return WriteManifest(cmd.Root().Writer, manifest)
	}
}

// LoadConfig reads the config file named by --config and applies every flag
// that was set explicitly, then validates the result.
func LoadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if cmd.IsSet("transport") {
		transport, err := core.ParseTransportType(cmd.String("transport"))
		if err != nil {
			return config.Config{}, err
		}
		cfg.Server.Transport = transport
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("base-url") {
		cfg.Platform.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("auth-url") {
		cfg.Platform.AuthURL = cmd.String("auth-url")
	}
	if cmd.IsSet("timeout") {
		cfg.Platform.TimeoutSeconds = int(math.Ceil(cmd.Duration("timeout").Seconds()))
	}
	if cmd.IsSet("export-workers") {
		cfg.Export.Workers = int(cmd.Int("export-workers"))
	}
	if cmd.IsSet("dev-mode") {
		cfg.DevMode = cmd.Bool("dev-mode")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger returns a text logger writing to w at the named level. stdout is
// reserved for the stdio transport, so callers pass stderr.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
