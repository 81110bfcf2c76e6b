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
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/T4cceptor/mps-mcp/pkg/auth"
	"github.com/T4cceptor/mps-mcp/pkg/config"
	"github.com/T4cceptor/mps-mcp/pkg/core"
	"github.com/T4cceptor/mps-mcp/pkg/export"
	"github.com/T4cceptor/mps-mcp/pkg/platform"
	"github.com/T4cceptor/mps-mcp/pkg/session"
	"github.com/T4cceptor/mps-mcp/pkg/tools"
)

// ServerName is announced to MCP clients.
const ServerName = "MPS Platform MCP Server"

const shutdownTimeout = 5 * time.Second

// App wires the configured components into an MCP server.
type App struct {
	cfg      config.Config
	version  string
	logger   *slog.Logger
	sessions *session.Manager
	tools    *tools.Set
}

// NewApp builds every component from cfg. No network calls are made until Run.
// sessionOpts are appended to the options derived from cfg.
func NewApp(cfg config.Config, version string, logger *slog.Logger, sessionOpts ...session.Option) *App {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []session.Option{
		session.WithLogger(logger.With(slog.String("component", "session"))),
		session.WithCredentialEnv(cfg.Credentials.UsernameEnv, cfg.Credentials.PasswordEnv),
		session.WithRequestTimeout(cfg.Platform.Timeout()),
	}
	sessions := session.NewManager(cfg.ResolvedAuthURL(), append(opts, sessionOpts...)...)

	client := platform.NewClient(cfg.Platform.BaseURL, sessions, logger.With(slog.String("component", "platform")))
	exporter := export.NewExporter(client, cfg.Export.Workers, logger.With(slog.String("component", "export")))

	return &App{
		cfg:      cfg,
		version:  version,
		logger:   logger,
		sessions: sessions,
		tools:    tools.NewSet(client, exporter, logger.With(slog.String("component", "tools"))),
	}
}

// Tools returns the tool set served by the app.
func (a *App) Tools() *tools.Set {
	return a.tools
}

// Run logs in with the environment credentials and serves MCP on the
// configured transport until ctx is done or the transport stops. A failed
// login is returned before any transport starts.
func (a *App) Run(ctx context.Context, factory ServerFactory) error {
	a.logger.Debug("starting with configuration", slog.String("config", a.cfg.ToJSON()))
	a.cfg.WarnInsecureURLs(a.logger)

	if _, err := a.sessions.AuthenticateFromEnvironment(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	mcpServer := NewMCPServer(ServerName, a.version, a.tools.Tools(), a.tools.Prompts(), a.logger)

	switch a.cfg.Server.Transport {
	case core.TransportTypeHTTP:
		return a.serveHTTP(ctx, factory, mcpServer)
	case core.TransportTypeStdio:
		a.logger.Info("starting as stdio MCP server")
		return factory.CreateStdioServer(mcpServer, a.logger).Serve(ctx)
	default:
		return fmt.Errorf("unsupported transport type: %s", a.cfg.Server.Transport)
	}
}

func (a *App) serveHTTP(ctx context.Context, factory ServerFactory, mcpServer *server.MCPServer) error {
	var middleware func(http.Handler) http.Handler
	if a.cfg.Auth.Enabled {
		mw, err := auth.NewMiddleware(a.cfg.Auth, a.logger.With(slog.String("component", "auth")))
		if err != nil {
			return fmt.Errorf("failed to set up bearer auth: %w", err)
		}
		defer mw.Close()
		middleware = mw.Wrap
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The HTTP transport outlives any single token, so sessions are renewed on a schedule.
	go session.NewRefresher(a.sessions, session.DefaultRefreshInterval).Run(ctx)

	addr := ":" + strconv.Itoa(a.cfg.Server.Port)
	httpServer := factory.CreateHTTPServer(mcpServer, addr, middleware)
	a.logger.Info("starting as http MCP server",
		slog.String("addr", addr),
		slog.String("endpoint", MCPEndpoint),
		slog.Bool("bearer_auth", middleware != nil),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return <-errCh
	}
}
