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
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken  = errors.New("authorization header required")
	errInvalidFormat = errors.New("authorization header must use the Bearer scheme")
)

// Middleware rejects HTTP requests that do not carry an acceptable bearer token.
type Middleware struct {
	validator *Validator
	required  bool
	logger    *slog.Logger
}

// NewMiddleware builds the validator for cfg and wraps it as HTTP middleware.
func NewMiddleware(cfg Config, logger *slog.Logger) (*Middleware, error) {
	if logger == nil {
		logger = slog.Default()
	}
	validator, err := NewValidator(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("bearer auth enabled",
		slog.String("key_source", cfg.KeySource()),
		slog.Bool("required", cfg.Required),
	)
	return &Middleware{validator: validator, required: cfg.Required, logger: logger}, nil
}

// Authenticate extracts and validates the bearer token of r. It returns a nil
// caller and nil error for anonymous requests when auth is optional.
func (m *Middleware) Authenticate(r *http.Request) (*Caller, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if m.required {
			return nil, errMissingToken
		}
		return nil, nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, errInvalidFormat
	}
	return m.validator.Validate(strings.TrimSpace(token))
}

// Wrap returns next guarded by bearer authentication.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := m.Authenticate(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}
		if caller != nil {
			r = r.WithContext(WithCaller(r.Context(), caller))
			m.logger.Debug("authenticated request", slog.String("caller", caller.DisplayName()))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := rejection(err)
	m.logger.Warn("rejected request",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="mps-mcp"`)
	}
	http.Error(w, msg, status)
}

// rejection maps an authentication error onto an HTTP status and a message
// safe to return to the client.
func rejection(err error) (int, string) {
	switch {
	case errors.Is(err, errMissingToken):
		return http.StatusUnauthorized, "Authorization required"
	case errors.Is(err, errInvalidFormat):
		return http.StatusBadRequest, "Invalid authorization format"
	case errors.Is(err, ErrInsufficientScope):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return http.StatusUnauthorized, "Invalid token signature"
	default:
		return http.StatusUnauthorized, "Authentication failed"
	}
}

// Close releases the validator's background resources.
func (m *Middleware) Close() {
	m.validator.Close()
}
