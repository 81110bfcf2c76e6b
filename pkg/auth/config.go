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

// Package auth protects the streamable HTTP transport with JWT bearer tokens
// and carries the validated caller through the request context.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultAlgorithm = "RS256"
	// DefaultCacheTTL is the JWKS refresh interval in seconds.
	DefaultCacheTTL = 300
	maxCacheTTL     = 3600
)

// SupportedAlgorithms lists the asymmetric signing algorithms accepted for inbound tokens.
var SupportedAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"ES256", "ES384", "ES512",
	"PS256", "PS384", "PS512",
}

// Config holds bearer token settings for the HTTP transport.
type Config struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Required rejects requests without an Authorization header. When false,
	// anonymous requests pass but presented tokens are still validated.
	Required bool `toml:"required" json:"required"`

	// Exactly one key source must be set.
	JWKSURI   string `toml:"jwks_uri" json:"jwksUri,omitempty"`
	PublicKey string `toml:"public_key" json:"-"`

	Algorithm      string   `toml:"algorithm" json:"algorithm,omitempty"`
	Issuer         string   `toml:"issuer" json:"issuer,omitempty"`
	Audience       string   `toml:"audience" json:"audience,omitempty"`
	RequiredScopes []string `toml:"required_scopes" json:"requiredScopes,omitempty"`
	CacheTTL       int      `toml:"cache_ttl" json:"cacheTtl,omitempty"`
}

// WithDefaults returns a copy of c with unset algorithm and cache TTL filled in.
func (c Config) WithDefaults() Config {
	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}

// Validate checks the configuration for consistency. Disabled configs are always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	c = c.WithDefaults()

	switch {
	case c.JWKSURI == "" && c.PublicKey == "":
		return errors.New("either jwks_uri or public_key must be set when bearer auth is enabled")
	case c.JWKSURI != "" && c.PublicKey != "":
		return errors.New("jwks_uri and public_key are mutually exclusive")
	case c.JWKSURI != "" && !strings.HasPrefix(c.JWKSURI, "https://"):
		return fmt.Errorf("jwks_uri must use https: %s", c.JWKSURI)
	}
	if !slices.Contains(SupportedAlgorithms, c.Algorithm) {
		return fmt.Errorf("unsupported JWT algorithm: %s", c.Algorithm)
	}
	if c.CacheTTL > maxCacheTTL {
		return fmt.Errorf("cache_ttl cannot exceed %d seconds", maxCacheTTL)
	}
	if c.Issuer != "" && !strings.HasPrefix(c.Issuer, "https://") && !strings.HasPrefix(c.Issuer, "http://") {
		return fmt.Errorf("issuer must be a URL: %s", c.Issuer)
	}
	return nil
}

// KeySource describes where verification keys come from, for logging.
func (c Config) KeySource() string {
	switch {
	case c.JWKSURI != "":
		return "jwks " + c.JWKSURI
	case c.PublicKey != "":
		return "static public key"
	default:
		return "none"
	}
}
