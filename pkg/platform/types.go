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
	"encoding/json"
	"fmt"
)

// System is one entry of the platform's system list.
type System struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type rawSystem struct {
	PK          int    `json:"pk"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FormField describes one field of a form template. LocalDataSource and
// WidgetAttr arrive as JSON-encoded strings and are decoded once more.
type FormField struct {
	Alias           string          `json:"alias"`
	ColTitle        string          `json:"col_title"`
	InFilter        json.RawMessage `json:"in_filter"`
	LocalDataSource json.RawMessage `json:"local_data_source"`
	Widget          string          `json:"widget"`
	WidgetAttr      json.RawMessage `json:"widget_attr"`
}

type rawFormField struct {
	Alias           string          `json:"alias"`
	ColTitle        string          `json:"col_title"`
	InFilter        json.RawMessage `json:"in_filter"`
	LocalDataSource *string         `json:"local_data_source"`
	Widget          string          `json:"widget"`
	WidgetAttr      *string         `json:"widget_attr"`
}

// FormTemplate is a form definition with its fields.
type FormTemplate struct {
	ID         json.RawMessage `json:"id"`
	Title      string          `json:"title"`
	APIName    string          `json:"api_name"`
	Keyword    string          `json:"keyword"`
	Remark     string          `json:"remark"`
	HeaderConf json.RawMessage `json:"header_conf"`
	Fields     []FormField     `json:"fields"`
}

type rawFormTemplate struct {
	PK         json.RawMessage `json:"pk"`
	Title      string          `json:"title"`
	APIName    string          `json:"api_name"`
	Keyword    string          `json:"keyword"`
	Remark     string          `json:"remark"`
	HeaderConf json.RawMessage `json:"header_conf"`
	Field      []rawFormField  `json:"field"`
}

var jsonNull = json.RawMessage("null")

// nullIfEmpty keeps absent values serialized as null rather than dropped.
func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return jsonNull
	}
	return raw
}

// decodeEmbedded parses a JSON document stored inside a string field.
// Absent or empty strings become null.
func decodeEmbedded(field string, s *string) (json.RawMessage, error) {
	if s == nil || *s == "" {
		return jsonNull, nil
	}
	if !json.Valid([]byte(*s)) {
		return nil, fmt.Errorf("field %s is not valid JSON: %q", field, *s)
	}
	return json.RawMessage(*s), nil
}

func (r rawFormTemplate) normalize() (FormTemplate, error) {
	fields := make([]FormField, 0, len(r.Field))
	for _, f := range r.Field {
		source, err := decodeEmbedded("local_data_source", f.LocalDataSource)
		if err != nil {
			return FormTemplate{}, fmt.Errorf("form template %s, field %s: %w", r.PK, f.Alias, err)
		}
		attr, err := decodeEmbedded("widget_attr", f.WidgetAttr)
		if err != nil {
			return FormTemplate{}, fmt.Errorf("form template %s, field %s: %w", r.PK, f.Alias, err)
		}
		fields = append(fields, FormField{
			Alias:           f.Alias,
			ColTitle:        f.ColTitle,
			InFilter:        nullIfEmpty(f.InFilter),
			LocalDataSource: source,
			Widget:          f.Widget,
			WidgetAttr:      attr,
		})
	}
	return FormTemplate{
		ID:         nullIfEmpty(r.PK),
		Title:      r.Title,
		APIName:    r.APIName,
		Keyword:    r.Keyword,
		Remark:     r.Remark,
		HeaderConf: nullIfEmpty(r.HeaderConf),
		Fields:     fields,
	}, nil
}

// RouterCreateRequest is the body of POST /systempr/.
//
// ParentID, Title, Component and PermissionID are always sent, as null when
// unset. Redirect and Meta are left out entirely when unset.
type RouterCreateRequest struct {
	SysID        int     `json:"sys_id"`
	ProjectID    string  `json:"project"`
	ParentID     *string `json:"parent_id"`
	Path         string  `json:"path"`
	Title        *string `json:"title"`
	Name         string  `json:"name"`
	Component    *string `json:"component"`
	Redirect     *string `json:"redirect,omitempty"`
	Props        bool    `json:"props"`
	Meta         *string `json:"meta,omitempty"`
	PermissionID *string `json:"permission"`
}

// MenuCreateRequest is the body of POST /systempm/.
//
// Icon and RouterName are always sent, as null when unset. ParentID and
// PermissionID are left out entirely when unset.
type MenuCreateRequest struct {
	SysID        int     `json:"sys_id"`
	ProjectID    string  `json:"project"`
	ParentID     *string `json:"parent_id,omitempty"`
	Name         string  `json:"name"`
	Icon         *string `json:"icon"`
	RouterName   *string `json:"router_name"`
	PermissionID *string `json:"permission,omitempty"`
}

// ExportPayload is the body of POST /codetemplateexport/.
type ExportPayload struct {
	TemplateType string `json:"tmpl_type"`
	TemplateID   string `json:"template_id"`
	ModuleName   string `json:"module_name"`
	SortAlias    string `json:"sort_alias"`
}

// Optional returns nil for the empty string, otherwise a pointer to s.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
