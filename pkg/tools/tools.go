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

// Package tools defines the MCP tools and prompts of the server and adapts
// their calls onto the platform client and the export pipeline. This is the
// only layer that turns errors into text for the agent.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/T4cceptor/mps-mcp/pkg/auth"
	"github.com/T4cceptor/mps-mcp/pkg/core"
	"github.com/T4cceptor/mps-mcp/pkg/export"
	"github.com/T4cceptor/mps-mcp/pkg/platform"
)

// Backend is the subset of the platform client the tools call.
type Backend interface {
	ListSystems(ctx context.Context) ([]platform.System, error)
	ListFormTemplates(ctx context.Context, sysID int) ([]platform.FormTemplate, error)
	GetFormTemplate(ctx context.Context, templateID string) (*platform.FormTemplate, error)
	PermissionTree(ctx context.Context, sysID int) (json.RawMessage, error)
	RouterTree(ctx context.Context, projectID string) (json.RawMessage, error)
	CreateRouter(ctx context.Context, req platform.RouterCreateRequest) (json.RawMessage, error)
	DeleteRouter(ctx context.Context, routerID string) error
	MenuTree(ctx context.Context, projectID string) (json.RawMessage, error)
	CreateMenu(ctx context.Context, req platform.MenuCreateRequest) (json.RawMessage, error)
	DeleteMenu(ctx context.Context, menuID string) error
	CodeTemplates(ctx context.Context, tmplType string) (json.RawMessage, error)
}

// Exporter runs code template exports.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

// Set builds the tools and prompts served over MCP.
type Set struct {
	backend  Backend
	exporter Exporter
	logger   *slog.Logger
}

// NewSet creates a Set. A nil logger falls back to slog.Default().
func NewSet(backend Backend, exporter Exporter, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{backend: backend, exporter: exporter, logger: logger}
}

// callFunc produces a tool's successful output or an error.
type callFunc func(ctx context.Context, request mcp.CallToolRequest) (any, error)

// handler adapts a callFunc into a ToolHandler. Successful output is rendered
// as JSON text (strings are passed through as-is); errors become error results
// reading "<tool> failed: <cause>".
func (s *Set) handler(name string, call callFunc) core.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := s.logger.With(
			slog.String("tool", name),
			slog.String("call_id", uuid.NewString()),
		)
		if caller := auth.CallerFromContext(ctx); caller != nil {
			logger = logger.With(slog.String("caller", caller.DisplayName()))
		}
		started := time.Now()

		out, err := call(ctx, request)
		if err != nil {
			logger.Warn("tool call failed",
				slog.String("error", err.Error()),
				slog.Duration("elapsed", time.Since(started)),
			)
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
		}

		text, err := render(out)
		if err != nil {
			logger.Error("failed to encode tool result", slog.String("error", err.Error()))
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
		}
		logger.Debug("tool call complete", slog.Duration("elapsed", time.Since(started)))
		return mcp.NewToolResultText(text), nil
	}
}

func render(out any) (string, error) {
	switch v := out.(type) {
	case string:
		return v, nil
	case json.RawMessage:
		if len(v) == 0 {
			return "null", nil
		}
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encoding result: %w", err)
		}
		return string(data), nil
	}
}

// stringArg reads a string argument. Numbers are accepted and formatted, since
// agents routinely send numeric ids unquoted.
func stringArg(request mcp.CallToolRequest, key string) (string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("required argument %q not found", key)
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("argument %q must not be empty", key)
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("argument %q must be a string, got %T", key, raw)
	}
}

// optionalStringArg reads a string argument that may be absent, null or
// empty, all of which yield nil. Present values of the wrong type are errors.
func optionalStringArg(request mcp.CallToolRequest, key string) (*string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil || raw == "" {
		return nil, nil
	}
	v, err := stringArg(request, key)
	if err != nil {
		return nil, err
	}
	return platform.Optional(v), nil
}

// requiredStringPtr reads a required string argument for a nullable payload field.
func requiredStringPtr(request mcp.CallToolRequest, key string) (*string, error) {
	v, err := stringArg(request, key)
	if err != nil {
		return nil, err
	}
	return platform.Optional(v), nil
}

func intArg(request mcp.CallToolRequest, key string) (int, error) {
	v, err := request.RequireInt(key)
	if err != nil {
		return 0, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}

// Tools returns every tool of the server, in a stable order.
func (s *Set) Tools() []core.Tool {
	tools := []core.Tool{s.moduleGuideTool()}
	tools = append(tools, s.systemTools()...)
	tools = append(tools, s.templateTools()...)
	return tools
}

// Prompts returns every prompt of the server.
func (s *Set) Prompts() []core.Prompt {
	return []core.Prompt{s.moduleDevelopmentPrompt()}
}
