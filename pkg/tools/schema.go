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

package tools

import "github.com/T4cceptor/mps-mcp/pkg/core"

// JSON Schema property builders for tool input schemas.

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func boolProp(description string, def bool) map[string]any {
	return map[string]any{"type": "boolean", "description": description, "default": def}
}

// nullableStringProp describes an optional string that may also be sent as null.
func nullableStringProp(description string) map[string]any {
	return map[string]any{
		"type":        []string{"string", "null"},
		"description": description,
		"default":     nil,
	}
}

func enumProp(description string, values []string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func objectSchema(properties map[string]any, required ...string) core.McpToolInputSchema {
	if properties == nil {
		properties = map[string]any{}
	}
	return core.McpToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func readOnly(title string) core.McpToolAnnotation {
	return core.McpToolAnnotation{
		Title:          title,
		ReadOnlyHint:   core.Hint(true),
		IdempotentHint: core.Hint(true),
		OpenWorldHint:  core.Hint(true),
	}
}

func mutating(title string) core.McpToolAnnotation {
	return core.McpToolAnnotation{
		Title:           title,
		ReadOnlyHint:    core.Hint(false),
		DestructiveHint: core.Hint(false),
		OpenWorldHint:   core.Hint(true),
	}
}

func destructive(title string) core.McpToolAnnotation {
	return core.McpToolAnnotation{
		Title:           title,
		ReadOnlyHint:    core.Hint(false),
		DestructiveHint: core.Hint(true),
		IdempotentHint:  core.Hint(true),
		OpenWorldHint:   core.Hint(true),
	}
}
