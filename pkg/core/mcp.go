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

// Package core holds the transport-agnostic description of the tools this
// server exposes. The MCP wiring in internal converts these into mcp-go types.
package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// TransportType defines the transport mechanism for the MCP server
type TransportType string

const (
	TransportTypeHTTP  TransportType = "http"
	TransportTypeStdio TransportType = "stdio"
)

// IsValid returns true if the transport type is valid
func (t TransportType) IsValid() bool {
	switch t {
	case TransportTypeHTTP, TransportTypeStdio:
		return true
	default:
		return false
	}
}

// ParseTransportType converts a raw flag or config value into a TransportType.
func ParseTransportType(raw string) (TransportType, error) {
	t := TransportType(raw)
	if !t.IsValid() {
		return "", fmt.Errorf("unsupported transport type %q: must be %q or %q", raw, TransportTypeStdio, TransportTypeHTTP)
	}
	return t, nil
}

// MCP protocol types

// McpToolInputSchema defines the JSON Schema for tool input parameters
type McpToolInputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// McpToolAnnotation provides metadata about tool behavior and characteristics
type McpToolAnnotation struct {
	// Human-readable title for the tool
	Title string `json:"title,omitempty"`
	// If true, the tool does not modify its environment
	ReadOnlyHint *bool `json:"readOnlyHint,omitempty"`
	// If true, the tool may perform destructive updates
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	// If true, repeated calls with same args have no additional effect
	IdempotentHint *bool `json:"idempotentHint,omitempty"`
	// If true, tool interacts with external entities
	OpenWorldHint *bool `json:"openWorldHint,omitempty"`
}

// McpTool represents an MCP tool definition
type McpTool struct {
	// The name of the tool.
	Name string `json:"name"`
	// A human-readable description of the tool.
	Description string `json:"description,omitempty"`
	// A JSON Schema object defining the expected parameters for the tool.
	InputSchema McpToolInputSchema `json:"inputSchema"`
	// Optional properties describing tool behavior
	Annotations McpToolAnnotation `json:"annotations"`
}

// ToolHandler executes one tool call. Failures that the agent should see are
// returned as error results; a non-nil error aborts the call at the protocol level.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Tool pairs a tool definition with the handler serving it.
type Tool struct {
	McpTool
	Handler ToolHandler `json:"-"`
}

// ToJSON returns a JSON representation of the tool definition for logging and manifests.
func (t Tool) ToJSON() string {
	jsonBytes, err := json.Marshal(t.McpTool)
	if err != nil {
		return `{"error": "failed to marshal McpTool to JSON"}`
	}
	return string(jsonBytes)
}

// Hint returns a pointer to b, for use in McpToolAnnotation.
func Hint(b bool) *bool {
	return &b
}

// McpPromptArgument describes one argument a prompt template accepts.
type McpPromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// McpPrompt represents an MCP prompt definition.
type McpPrompt struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Arguments   []McpPromptArgument `json:"arguments,omitempty"`
}

// PromptHandler renders a prompt for the given arguments.
type PromptHandler func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error)

// Prompt pairs a prompt definition with the handler rendering it.
type Prompt struct {
	McpPrompt
	Handler PromptHandler `json:"-"`
}
