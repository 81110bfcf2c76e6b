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

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ListSystems returns every system visible to the session.
func (c *Client) ListSystems(ctx context.Context) ([]System, error) {
	var raw []rawSystem
	if err := c.getJSON(ctx, "/system/", nil, &raw); err != nil {
		return nil, err
	}
	systems := make([]System, 0, len(raw))
	for _, s := range raw {
		systems = append(systems, System{ID: s.PK, Name: s.Name, Description: s.Description})
	}
	return systems, nil
}

// ListFormTemplates returns the form templates of a system with their fields.
func (c *Client) ListFormTemplates(ctx context.Context, sysID int) ([]FormTemplate, error) {
	query := url.Values{"sys_id": {strconv.Itoa(sysID)}}
	var raw []rawFormTemplate
	if err := c.getJSON(ctx, "/formtemplate/", query, &raw); err != nil {
		return nil, err
	}
	templates := make([]FormTemplate, 0, len(raw))
	for _, r := range raw {
		t, err := r.normalize()
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// GetFormTemplate returns a single form template.
func (c *Client) GetFormTemplate(ctx context.Context, templateID string) (*FormTemplate, error) {
	var raw rawFormTemplate
	if err := c.getJSON(ctx, "/formtemplate/"+url.PathEscape(templateID)+"/", nil, &raw); err != nil {
		return nil, err
	}
	t, err := raw.normalize()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// PermissionTree returns the permission tree of a system.
func (c *Client) PermissionTree(ctx context.Context, sysID int) (json.RawMessage, error) {
	query := url.Values{
		"sys_id": {strconv.Itoa(sysID)},
		"biz_id": {"1"},
		"level":  {"0"},
	}
	return c.passThrough(ctx, http.MethodGet, "/permissionstree/", query, nil)
}

// RouterTree returns the root route nodes of a project with their children.
func (c *Client) RouterTree(ctx context.Context, projectID string) (json.RawMessage, error) {
	query := url.Values{"is_root": {"True"}, "project": {projectID}}
	return c.passThrough(ctx, http.MethodGet, "/systempr/", query, nil)
}

// CreateRouter creates a route node and returns the created record.
func (c *Client) CreateRouter(ctx context.Context, req RouterCreateRequest) (json.RawMessage, error) {
	return c.passThrough(ctx, http.MethodPost, "/systempr/", nil, req)
}

// DeleteRouter deletes a route node.
func (c *Client) DeleteRouter(ctx context.Context, routerID string) error {
	if routerID == "" {
		return fmt.Errorf("router id is required")
	}
	_, err := c.do(ctx, http.MethodDelete, "/systempr/"+url.PathEscape(routerID)+"/", nil, nil)
	return err
}

// MenuTree returns the root menu nodes of a project with their children.
func (c *Client) MenuTree(ctx context.Context, projectID string) (json.RawMessage, error) {
	query := url.Values{"project": {projectID}, "is_root": {"True"}}
	return c.passThrough(ctx, http.MethodGet, "/systempm/", query, nil)
}

// CreateMenu creates a menu node and returns the created record.
func (c *Client) CreateMenu(ctx context.Context, req MenuCreateRequest) (json.RawMessage, error) {
	return c.passThrough(ctx, http.MethodPost, "/systempm/", nil, req)
}

// DeleteMenu deletes a menu node.
func (c *Client) DeleteMenu(ctx context.Context, menuID string) error {
	if menuID == "" {
		return fmt.Errorf("menu id is required")
	}
	_, err := c.do(ctx, http.MethodDelete, "/systempm/"+url.PathEscape(menuID)+"/", nil, nil)
	return err
}

// CodeTemplates lists the code templates of one type. The platform marks this
// listing as deprecated in favour of exporting by form template id.
func (c *Client) CodeTemplates(ctx context.Context, tmplType string) (json.RawMessage, error) {
	query := url.Values{"tmpl_type": {tmplType}}
	return c.passThrough(ctx, http.MethodGet, "/codetemplate/", query, nil)
}

// ExportCodeTemplate renders a code template on the server and returns the
// zip archive as a byte stream. The caller closes it.
func (c *Client) ExportCodeTemplate(ctx context.Context, payload ExportPayload) (io.ReadCloser, error) {
	resp, err := c.send(ctx, http.MethodPost, "/codetemplateexport/", nil, payload)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
