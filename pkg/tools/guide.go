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
	"strconv"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/T4cceptor/mps-mcp/pkg/core"
)

// GuideParams fills the module development guide.
type GuideParams struct {
	SysID      string
	ProjectID  string
	ModuleName string
}

var guideTemplate = template.Must(template.New("guide").Parse(`Develop the {{.ModuleName}} module with the following steps:
1. Get the list of systems of the MPS platform.
2. Get the functional permission tree of the system with sys_id = {{.SysID}}.
3. List the form template definitions of that system, find the one for the {{.ModuleName}} module and note its pk for code generation.
4. Use the camel-cased pinyin of the module name ({{.ModuleName}}) as the module directory name and create src/pages/<pinyin name>.
5. Export the front-end code for the pk from step 3 into that directory with exportFrontendCodeTemplate, using an absolute output_dir.
6. Register the exported Index.vue in src/pageReg.js.
7. Get the router tree of the project with project_id = {{.ProjectID}}.
8. Pick a suitable router node as parent (for example the pk of the router whose path is "/") and create the router of the {{.ModuleName}} module.
9. Get the menu tree of the project with project_id = {{.ProjectID}}.
10. Pick a suitable menu node as parent (may be empty) and create the menu of the {{.ModuleName}} module.
11. Tune the column widths in Table.vue based on what each header means.
12. Improve the Form.vue layout, grouping fields by relevance and importance.
13. Done.

Tools to use:
- getSystemList
- getSystemPermissionTree
- listSystemFormTemplate
- exportFrontendCodeTemplate
- getSystemProjectRouterTree
- createSystemProjectRouter
- getSystemProjectMenuTree
- createSystemProjectMenu
`))

// RenderGuide renders the step-by-step module development guide.
func RenderGuide(p GuideParams) (string, error) {
	var b strings.Builder
	if err := guideTemplate.Execute(&b, p); err != nil {
		return "", fmt.Errorf("rendering guide: %w", err)
	}
	return b.String(), nil
}

func (s *Set) moduleGuideTool() core.Tool {
	return core.Tool{
		McpTool: core.McpTool{
			Name:        "module-development-description",
			Description: "Describe the steps for developing a front-end module on the MPS platform.",
			InputSchema: objectSchema(map[string]any{
				"sys_id":      integerProp("System ID (sys_id)"),
				"project_id":  stringProp("Project ID (project_id)"),
				"module_name": stringProp("Module name (module_name)"),
			}, "sys_id", "project_id", "module_name"),
			Annotations: core.McpToolAnnotation{
				Title:          "Module development guide",
				ReadOnlyHint:   core.Hint(true),
				IdempotentHint: core.Hint(true),
				OpenWorldHint:  core.Hint(false),
			},
		},
		Handler: s.handler("module-development-description", func(_ context.Context, request mcp.CallToolRequest) (any, error) {
			sysID, err := intArg(request, "sys_id")
			if err != nil {
				return nil, err
			}
			p := GuideParams{SysID: strconv.Itoa(sysID)}
			if p.ProjectID, err = stringArg(request, "project_id"); err != nil {
				return nil, err
			}
			if p.ModuleName, err = stringArg(request, "module_name"); err != nil {
				return nil, err
			}
			return RenderGuide(p)
		}),
	}
}

func (s *Set) moduleDevelopmentPrompt() core.Prompt {
	return core.Prompt{
		McpPrompt: core.McpPrompt{
			Name:        "module-development",
			Description: "Front-end module development process on the MPS platform",
			Arguments: []core.McpPromptArgument{
				{Name: "sys_id", Description: "System ID", Required: true},
				{Name: "project_id", Description: "Project ID", Required: true},
				{Name: "module_name", Description: "Module name", Required: true},
			},
		},
		Handler: func(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			args := request.Params.Arguments
			p := GuideParams{
				SysID:      args["sys_id"],
				ProjectID:  args["project_id"],
				ModuleName: args["module_name"],
			}
			for name, v := range map[string]string{"sys_id": p.SysID, "project_id": p.ProjectID, "module_name": p.ModuleName} {
				if v == "" {
					return nil, fmt.Errorf("missing required argument %q", name)
				}
			}
			text, err := RenderGuide(p)
			if err != nil {
				return nil, err
			}
			return mcp.NewGetPromptResult(
				"Develop the "+p.ModuleName+" module",
				[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
			), nil
		},
	}
}
