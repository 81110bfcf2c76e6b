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

package auth

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

// Scopes decodes the scope claim, which issuers send either as a
// space-delimited string or as an array.
type Scopes []string

func (s *Scopes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*s = strings.Fields(joined)
	return nil
}

// Claims are the JWT claims read from inbound tokens.
type Claims struct {
	jwt.RegisteredClaims
	Scope    Scopes `json:"scope,omitempty"`
	Username string `json:"preferred_username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Caller is the authenticated principal of an HTTP request.
type Caller struct {
	Subject  string   `json:"subject"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`

	Token  string  `json:"-"`
	Claims *Claims `json:"-"`
}

func (c *Caller) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// HasAllScopes reports whether every scope in scopes was granted.
func (c *Caller) HasAllScopes(scopes []string) bool {
	for _, scope := range scopes {
		if !c.HasScope(scope) {
			return false
		}
	}
	return true
}

// DisplayName returns the most readable identifier available.
func (c *Caller) DisplayName() string {
	switch {
	case c.Username != "":
		return c.Username
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// CallerFromContext returns the caller stored in ctx, or nil for anonymous
// requests and the stdio transport.
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(contextKey{}).(*Caller)
	return caller
}
