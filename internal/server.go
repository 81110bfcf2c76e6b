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
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/T4cceptor/mps-mcp/pkg/core"
)

// ServerFactory abstracts server creation and lifecycle for dependency injection.
type ServerFactory interface {
	CreateHTTPServer(mcpServer *server.MCPServer, addr string, middleware func(http.Handler) http.Handler) HTTPServer
	CreateStdioServer(mcpServer *server.MCPServer, logger *slog.Logger) StdioServer
}

// HTTPServer abstracts HTTP server operations.
type HTTPServer interface {
	// Start blocks until the server stops. A graceful shutdown is not an error.
	Start() error
	Shutdown(ctx context.Context) error
}

// StdioServer abstracts stdio server operations.
type StdioServer interface {
	// Serve blocks until stdin closes or ctx is done.
	Serve(ctx context.Context) error
}

// MCPEndpoint is the path the streamable HTTP transport is mounted on.
const MCPEndpoint = "/mcp"

// ProductionServerFactory implements ServerFactory for real server operations.
type ProductionServerFactory struct{}

// CreateHTTPServer mounts the streamable HTTP transport on MCPEndpoint,
// wrapped by middleware when one is given.
func (f *ProductionServerFactory) CreateHTTPServer(mcpServer *server.MCPServer, addr string, middleware func(http.Handler) http.Handler) HTTPServer {
	var handler http.Handler = server.NewStreamableHTTPServer(mcpServer)
	if middleware != nil {
		handler = middleware(handler)
	}
	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, handler)
	return &productionHTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// CreateStdioServer creates a production stdio server wrapper.
func (f *ProductionServerFactory) CreateStdioServer(mcpServer *server.MCPServer, logger *slog.Logger) StdioServer {
	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	return &productionStdioServer{server: stdio}
}

type productionHTTPServer struct {
	server *http.Server
}

func (s *productionHTTPServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *productionHTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type productionStdioServer struct {
	server *server.StdioServer
}

func (s *productionStdioServer) Serve(ctx context.Context) error {
	err := s.server.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// NewMCPServer creates an MCP server exposing tools and prompts.
func NewMCPServer(name, version string, tools []core.Tool, prompts []core.Prompt, logger *slog.Logger) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)
	for _, tool := range tools {
		mcpServer.AddTool(toMcpGoTool(&tool.McpTool), server.ToolHandlerFunc(tool.Handler))
		logger.Debug("registered tool", slog.String("name", tool.Name))
	}
	for _, prompt := range prompts {
		mcpServer.AddPrompt(toMcpGoPrompt(&prompt.McpPrompt), server.PromptHandlerFunc(prompt.Handler))
		logger.Debug("registered prompt", slog.String("name", prompt.Name))
	}
	return mcpServer
}

func toMcpGoTool(tool *core.McpTool) mcp.Tool {
	return mcp.Tool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: mcp.ToolInputSchema{
			Type:       tool.InputSchema.Type,
			Properties: tool.InputSchema.Properties,
			Required:   tool.InputSchema.Required,
		},
		Annotations: mcp.ToolAnnotation{
			Title:           tool.Annotations.Title,
			ReadOnlyHint:    tool.Annotations.ReadOnlyHint,
			DestructiveHint: tool.Annotations.DestructiveHint,
			IdempotentHint:  tool.Annotations.IdempotentHint,
			OpenWorldHint:   tool.Annotations.OpenWorldHint,
		},
	}
}

func toMcpGoPrompt(prompt *core.McpPrompt) mcp.Prompt {
	opts := []mcp.PromptOption{mcp.WithPromptDescription(prompt.Description)}
	for _, arg := range prompt.Arguments {
		argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
		if arg.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
	}
	return mcp.NewPrompt(prompt.Name, opts...)
}
