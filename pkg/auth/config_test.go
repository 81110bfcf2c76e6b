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
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "disabled is always valid", cfg: Config{}},
		{name: "jwks", cfg: Config{Enabled: true, JWKSURI: "https://idp.example.com/jwks"}},
		{name: "static key", cfg: Config{Enabled: true, PublicKey: "pem"}},
		{name: "no key source", cfg: Config{Enabled: true}, wantErr: "must be set"},
		{name: "both key sources", cfg: Config{Enabled: true, JWKSURI: "https://idp.example.com/jwks", PublicKey: "pem"}, wantErr: "mutually exclusive"},
		{name: "plain http jwks", cfg: Config{Enabled: true, JWKSURI: "http://idp.example.com/jwks"}, wantErr: "https"},
		{name: "hmac algorithm", cfg: Config{Enabled: true, PublicKey: "pem", Algorithm: "HS256"}, wantErr: "unsupported"},
		{name: "cache ttl too long", cfg: Config{Enabled: true, PublicKey: "pem", CacheTTL: 7200}, wantErr: "cache_ttl"},
		{name: "issuer not a url", cfg: Config{Enabled: true, PublicKey: "pem", Issuer: "acme"}, wantErr: "issuer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	if cfg.Algorithm != DefaultAlgorithm || cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	cfg = Config{Algorithm: "ES256", CacheTTL: 60}.WithDefaults()
	if cfg.Algorithm != "ES256" || cfg.CacheTTL != 60 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
}

func TestConfig_KeySource(t *testing.T) {
	if got := (Config{JWKSURI: "https://idp/jwks"}).KeySource(); got != "jwks https://idp/jwks" {
		t.Errorf("got %q", got)
	}
	if got := (Config{PublicKey: "pem"}).KeySource(); got != "static public key" {
		t.Errorf("got %q", got)
	}
	if got := (Config{}).KeySource(); got != "none" {
		t.Errorf("got %q", got)
	}
}
