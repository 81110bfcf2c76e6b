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

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/T4cceptor/mps-mcp/pkg/core"
	"github.com/T4cceptor/mps-mcp/pkg/platform"
)

const treeNote = " The hierarchy is given by parent, which holds the pk of the parent node; a node without parent is a root."

// deleted is the success output of the delete tools.
type deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (s *Set) systemTools() []core.Tool {
	return []core.Tool{
		{
			McpTool: core.McpTool{
				Name:        "getSystemList",
				Description: "List the systems of the MPS platform.",
				InputSchema: objectSchema(nil),
				Annotations: readOnly("List systems"),
			},
			Handler: s.handler("getSystemList", func(ctx context.Context, _ mcp.CallToolRequest) (any, error) {
				return s.backend.ListSystems(ctx)
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "listSystemFormTemplate",
				Description: "List the form template definitions of a system.",
				InputSchema: objectSchema(map[string]any{
					"sys_id": integerProp("System ID (sys_id)"),
				}, "sys_id"),
				Annotations: readOnly("List form templates"),
			},
			Handler: s.handler("listSystemFormTemplate", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				sysID, err := intArg(request, "sys_id")
				if err != nil {
					return nil, err
				}
				return s.backend.ListFormTemplates(ctx, sysID)
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "getSystemFormTemplate",
				Description: "Get the form definition with the given template_id.",
				InputSchema: objectSchema(map[string]any{
					"template_id": stringProp("Form template ID (template_id)"),
				}, "template_id"),
				Annotations: readOnly("Get form template"),
			},
			Handler: s.handler("getSystemFormTemplate", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				id, err := stringArg(request, "template_id")
				if err != nil {
					return nil, err
				}
				return s.backend.GetFormTemplate(ctx, id)
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "getSystemPermissionTree",
				Description: "Get the functional permission tree of a system.",
				InputSchema: objectSchema(map[string]any{
					"sys_id": integerProp("System ID (sys_id)"),
				}, "sys_id"),
				Annotations: readOnly("Get permission tree"),
			},
			Handler: s.handler("getSystemPermissionTree", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				sysID, err := intArg(request, "sys_id")
				if err != nil {
					return nil, err
				}
				return s.backend.PermissionTree(ctx, sysID)
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "getSystemProjectRouterTree",
				Description: "Get the router tree of a project." + treeNote,
				InputSchema: objectSchema(map[string]any{
					"project_id": stringProp("Project ID (project_id)"),
				}, "project_id"),
				Annotations: readOnly("Get router tree"),
			},
			Handler: s.handler("getSystemProjectRouterTree", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				projectID, err := stringArg(request, "project_id")
				if err != nil {
					return nil, err
				}
				return s.backend.RouterTree(ctx, projectID)
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "createSystemProjectRouter",
				Description: "Create a router in a project." + treeNote,
				InputSchema: objectSchema(map[string]any{
					"sys_id":        integerProp("System ID (sys_id)"),
					"project_id":    stringProp("Project ID (project_id)"),
					"parent":        nullableStringProp("Parent router ID (parent)"),
					"path":          stringProp("Router path (path)"),
					"title":         stringProp("Page title (title)"),
					"name":          stringProp("Router name (name)"),
					"component":     stringProp("Router component (component)"),
					"redirect":      nullableStringProp("Router redirect (redirect)"),
					"props":         boolProp("Pass route params as props (props)", false),
					"meta":          nullableStringProp("vue-router meta information as a JSON string (meta)"),
					"permission_id": nullableStringProp("Permission ID (permission_id)"),
				}, "sys_id", "project_id", "path", "title", "name", "component"),
				Annotations: mutating("Create router"),
			},
			Handler: s.handler("createSystemProjectRouter", s.createRouter),
		},
		{
			McpTool: core.McpTool{
				Name:        "deleteSystemProjectRouter",
				Description: "Delete a router of a project.",
				InputSchema: objectSchema(map[string]any{
					"router_id": stringProp("Router ID (router_id)"),
				}, "router_id"),
				Annotations: destructive("Delete router"),
			},
			Handler: s.handler("deleteSystemProjectRouter", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				id, err := stringArg(request, "router_id")
				if err != nil {
					return nil, err
				}
				if err := s.backend.DeleteRouter(ctx, id); err != nil {
					return nil, err
				}
				return deleted{ID: id, Deleted: true}, nil
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "getSystemProjectMenuTree",
				Description: "Get the menu tree of a project." + treeNote,
				InputSchema: objectSchema(map[string]any{
					"project_id": stringProp("Project ID (project_id)"),
				}, "project_id"),
				Annotations: readOnly("Get menu tree"),
			},
			Handler: s.handler("getSystemProjectMenuTree", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				projectID, err := stringArg(request, "project_id")
				if err != nil {
					return nil, err
				}
				return s.backend.MenuTree(ctx, projectID)
			}),
		},
		{
			McpTool: core.McpTool{
				Name:        "createSystemProjectMenu",
				Description: "Create a menu in a project." + treeNote,
				InputSchema: objectSchema(map[string]any{
					"sys_id":        integerProp("System ID (sys_id)"),
					"project_id":    stringProp("Project ID (project_id)"),
					"parent":        nullableStringProp("Parent menu ID (parent)"),
					"name":          stringProp("Menu name (name)"),
					"icon":          nullableStringProp("Icon (icon)"),
					"router_name":   stringProp("Router name (router_name)"),
					"permission_id": nullableStringProp("Permission ID (permission_id)"),
				}, "sys_id", "project_id", "name", "router_name"),
				Annotations: mutating("Create menu"),
			},
			Handler: s.handler("createSystemProjectMenu", s.createMenu),
		},
		{
			McpTool: core.McpTool{
				Name:        "deleteSystemProjectMenu",
				Description: "Delete a menu of a project.",
				InputSchema: objectSchema(map[string]any{
					"menu_id": stringProp("Menu ID (menu_id)"),
				}, "menu_id"),
				Annotations: destructive("Delete menu"),
			},
			Handler: s.handler("deleteSystemProjectMenu", func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
				id, err := stringArg(request, "menu_id")
				if err != nil {
					return nil, err
				}
				if err := s.backend.DeleteMenu(ctx, id); err != nil {
					return nil, err
				}
				return deleted{ID: id, Deleted: true}, nil
			}),
		},
	}
}

func (s *Set) createRouter(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	sysID, err := intArg(request, "sys_id")
	if err != nil {
		return nil, err
	}
	req := platform.RouterCreateRequest{
		SysID: sysID,
		Props: request.GetBool("props", false),
	}
	if req.ProjectID, err = stringArg(request, "project_id"); err != nil {
		return nil, err
	}
	if req.Path, err = stringArg(request, "path"); err != nil {
		return nil, err
	}
	if req.Name, err = stringArg(request, "name"); err != nil {
		return nil, err
	}
	if req.Title, err = requiredStringPtr(request, "title"); err != nil {
		return nil, err
	}
	if req.Component, err = requiredStringPtr(request, "component"); err != nil {
		return nil, err
	}
	if req.ParentID, err = optionalStringArg(request, "parent"); err != nil {
		return nil, err
	}
	if req.Redirect, err = optionalStringArg(request, "redirect"); err != nil {
		return nil, err
	}
	if req.Meta, err = optionalStringArg(request, "meta"); err != nil {
		return nil, err
	}
	if req.PermissionID, err = optionalStringArg(request, "permission_id"); err != nil {
		return nil, err
	}
	return s.backend.CreateRouter(ctx, req)
}

func (s *Set) createMenu(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	sysID, err := intArg(request, "sys_id")
	if err != nil {
		return nil, err
	}
	req := platform.MenuCreateRequest{SysID: sysID}
	if req.ProjectID, err = stringArg(request, "project_id"); err != nil {
		return nil, err
	}
	if req.Name, err = stringArg(request, "name"); err != nil {
		return nil, err
	}
	if req.RouterName, err = requiredStringPtr(request, "router_name"); err != nil {
		return nil, err
	}
	if req.ParentID, err = optionalStringArg(request, "parent"); err != nil {
		return nil, err
	}
	if req.Icon, err = optionalStringArg(request, "icon"); err != nil {
		return nil, err
	}
	if req.PermissionID, err = optionalStringArg(request, "permission_id"); err != nil {
		return nil, err
	}
	return s.backend.CreateMenu(ctx, req)
}
