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

import (
	"context"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/T4cceptor/mps-mcp/pkg/core"
	"github.com/T4cceptor/mps-mcp/pkg/export"
)

func (s *Set) templateTools() []core.Tool {
	return []core.Tool{
		{
			McpTool: core.McpTool{
				Name:        "getFrontendCodeTemplateList",
				Description: "List the front-end code template definitions (deprecated).",
				InputSchema: objectSchema(map[string]any{
					"tmpl_type": enumProp("Template type (tmpl_type)", export.TemplateTypes),
				}, "tmpl_type"),
				Annotations: readOnly("List code templates"),
			},
			Handler: s.handler("getFrontendCodeTemplateList", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				tmplType, err := templateTypeArg(request)
				if err != nil {
					return nil, err
				}
				return s.backend.CodeTemplates(ctx, tmplType)
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "exportFrontendCodeTemplate",
				Description: "Export the rendered front-end code template into a directory and list the written files.",
				InputSchema: objectSchema(map[string]any{
					"tmpl_type":   enumProp("Template type (tmpl_type)", export.TemplateTypes),
					"template_id": stringProp("Template ID (template_id)"),
					"module_name": stringProp("Module name (module_name)"),
					"sort_alias":  stringProp("Sort alias (sort_alias)"),
					"output_dir":  stringProp("Output directory, preferably absolute (output_dir)"),
				}, "tmpl_type", "template_id", "module_name", "sort_alias", "output_dir"),
				Annotations: core.McpToolAnnotation{
					Title:           "Export code template",
					ReadOnlyHint:    core.Hint(false),
					DestructiveHint: core.Hint(true),
					IdempotentHint:  core.Hint(true),
					OpenWorldHint:   core.Hint(true),
				},
			},
			Handler: s.handler("exportFrontendCodeTemplate", s.exportTemplate),
		},
	}
}

func (s *Set) exportTemplate(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	tmplType, err := templateTypeArg(request)
	if err != nil {
		return nil, err
	}
	req := export.Request{TemplateType: tmplType}
	if req.TemplateID, err = stringArg(request, "template_id"); err != nil {
		return nil, err
	}
	if req.ModuleName, err = stringArg(request, "module_name"); err != nil {
		return nil, err
	}
	// sort_alias may legitimately be empty.
	req.SortAlias = request.GetString("sort_alias", "")
	if req.OutputDir, err = stringArg(request, "output_dir"); err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, req)
}

func templateTypeArg(request mcp.CallToolRequest) (string, error) {
	tmplType, err := request.RequireString("tmpl_type")
	if err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if !slices.Contains(export.TemplateTypes, tmplType) {
		return "", fmt.Errorf("tmpl_type must be one of %v, got %q", export.TemplateTypes, tmplType)
	}
	return tmplType, nil
}
