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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInsufficientScope is returned when a valid token lacks a required scope.
var ErrInsufficientScope = errors.New("insufficient scope")

// Validator verifies bearer tokens against a static key or a JWKS endpoint.
type Validator struct {
	cfg     Config
	keyFunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
	parser  *jwt.Parser
}

// NewValidator creates a Validator. For a JWKS source the key set is fetched
// once up front and refreshed in the background until Close.
func NewValidator(cfg Config) (*Validator, error) {
	cfg = cfg.WithDefaults()
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bearer auth configuration: %w", err)
	}

	v := &Validator{cfg: cfg}
	if cfg.JWKSURI != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURI, keyfunc.Options{
			RefreshInterval: time.Duration(cfg.CacheTTL) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching JWKS from %s: %w", cfg.JWKSURI, err)
		}
		v.jwks = jwks
		v.keyFunc = jwks.Keyfunc
	} else {
		key, err := parsePublicKey(cfg.Algorithm, []byte(cfg.PublicKey))
		if err != nil {
			return nil, err
		}
		v.keyFunc = func(*jwt.Token) (any, error) { return key, nil }
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{cfg.Algorithm})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

func parsePublicKey(alg string, pemData []byte) (any, error) {
	if strings.HasPrefix(alg, "ES") {
		key, err := jwt.ParseECPublicKeyFromPEM(pemData)
		if err != nil {
			return nil, fmt.Errorf("parsing EC public key: %w", err)
		}
		return key, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("parsing RSA public key: %w", err)
	}
	return key, nil
}

// Validate checks signature, standard claims and required scopes of token.
func (v *Validator) Validate(token string) (*Caller, error) {
	parsed, err := v.parser.ParseWithClaims(token, &Claims{}, v.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	caller := &Caller{
		Subject:  claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Scopes:   claims.Scope,
		Token:    token,
		Claims:   claims,
	}
	if !caller.HasAllScopes(v.cfg.RequiredScopes) {
		return nil, fmt.Errorf("%w: requires %s", ErrInsufficientScope, strings.Join(v.cfg.RequiredScopes, " "))
	}
	return caller, nil
}

// Close stops the background JWKS refresh, if any.
func (v *Validator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
