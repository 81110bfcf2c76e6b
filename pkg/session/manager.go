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

// Package session owns the credential session used to call the MPS platform.
//
// A Manager holds at most one Session. Authenticate replaces it, Token expires
// it lazily, and nothing renews it in the background unless a Refresher is
// started explicitly.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	// RequestTimeout bounds every request made with session credentials
	// unless WithRequestTimeout overrides it.
	RequestTimeout = 10 * time.Second
	// DefaultLifetime is assumed when the identity response omits expires_in.
	DefaultLifetime = 24 * time.Hour
	// RefreshThreshold is how long before expiry ShouldRefresh starts reporting true.
	RefreshThreshold = 5 * time.Minute
	// TenantID is the fixed tenant discriminator sent on login.
	TenantID = 0

	DefaultUsernameEnv = "MPS_USERNAME"
	DefaultPasswordEnv = "MPS_PASSWORD"
)

// Session is the current authenticated identity.
type Session struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// expired reports whether the session is unusable at now.
func (s *Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	SysID    int    `json:"sys_id"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresIn *float64 `json:"expires_in,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Manager owns one credential session. It is safe for concurrent use.
type Manager struct {
	authURL     string
	httpClient  *http.Client
	now         func() time.Time
	lookupEnv   func(string) (string, bool)
	usernameEnv string
	passwordEnv string
	logger      *slog.Logger
	timeout     time.Duration

	mu      sync.Mutex
	session *Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for login requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithEnvLookup overrides how credential variables are read.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(m *Manager) { m.lookupEnv = lookup }
}

// WithCredentialEnv changes the names of the username and password variables.
func WithCredentialEnv(usernameEnv, passwordEnv string) Option {
	return func(m *Manager) {
		if usernameEnv != "" {
			m.usernameEnv = usernameEnv
		}
		if passwordEnv != "" {
			m.passwordEnv = passwordEnv
		}
	}
}

// WithRequestTimeout changes the per-request timeout. Non-positive values are ignored.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager that logs in against authURL.
func NewManager(authURL string, opts ...Option) *Manager {
	m := &Manager{
		authURL:     authURL,
		httpClient:  http.DefaultClient,
		now:         time.Now,
		lookupEnv:   os.LookupEnv,
		usernameEnv: DefaultUsernameEnv,
		passwordEnv: DefaultPasswordEnv,
		timeout:     RequestTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Authenticate exchanges credentials for a token and stores the new session.
// On failure any previous session is discarded.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (string, error) {
	s, err := m.login(ctx, username, password)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.session = nil
		return "", err
	}
	m.session = s
	m.logger.Info("authenticated",
		slog.String("username", username),
		slog.Time("expires_at", s.ExpiresAt),
	)
	return s.Token, nil
}

func (m *Manager) login(ctx context.Context, username, password string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	payload, err := json.Marshal(loginRequest{Username: username, Password: password, SysID: TenantID})
	if err != nil {
		return nil, &AuthError{Message: "encoding login request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &AuthError{Message: "creating login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Message: "identity request failed", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			m.logger.Warn("failed to close login response body", slog.String("error", err.Error()))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{Message: "reading identity response", StatusCode: resp.StatusCode, Err: err}
	}

	var decoded loginResponse
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := decoded.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &AuthError{Message: msg, StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		return nil, &AuthError{Message: "decoding identity response", StatusCode: resp.StatusCode, Err: decodeErr}
	}
	if decoded.Token == "" {
		return nil, &AuthError{Message: "token missing from identity response", StatusCode: resp.StatusCode}
	}

	issued := m.now()
	lifetime := DefaultLifetime
	if decoded.ExpiresIn != nil && *decoded.ExpiresIn > 0 {
		lifetime = time.Duration(*decoded.ExpiresIn * float64(time.Second))
	}
	return &Session{
		Token:     decoded.Token,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(lifetime),
	}, nil
}

// Token returns the stored token. An expired session is cleared and reported absent.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", false
	}
	if m.session.expired(m.now()) {
		m.logger.Debug("session expired", slog.Time("expires_at", m.session.ExpiresAt))
		m.session = nil
		return "", false
	}
	return m.session.Token, true
}

// Current returns a copy of the live session, if any, without expiring it.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// ShouldRefresh reports whether the session is unknown or within RefreshThreshold of expiry.
func (m *Manager) ShouldRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.ExpiresAt.IsZero() {
		return true
	}
	return !m.now().Before(m.session.ExpiresAt.Add(-RefreshThreshold))
}

// Clear discards the session.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

// AuthHeaders returns the headers every authenticated request carries.
func (m *Manager) AuthHeaders() (http.Header, error) {
	token, ok := m.Token()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("Content-Type", "application/json")
	return h, nil
}

// NewAuthenticatedClient returns an HTTP client that sends the current token
// on every request. The token is captured at creation time.
func (m *Manager) NewAuthenticatedClient() (*http.Client, error) {
	headers, err := m.AuthHeaders()
	if err != nil {
		return nil, err
	}
	base := m.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   m.timeout,
		Transport: &headerTransport{headers: headers, base: base},
	}, nil
}

// AuthenticateFromEnvironment logs in with the credentials found in the
// configured environment variables.
func (m *Manager) AuthenticateFromEnvironment(ctx context.Context) (string, error) {
	username, uok := m.lookupEnv(m.usernameEnv)
	password, pok := m.lookupEnv(m.passwordEnv)
	if !uok || !pok || username == "" || password == "" {
		m.Clear()
		return "", &AuthError{
			Message:            fmt.Sprintf("missing required environment variables: %s and %s must be set", m.usernameEnv, m.passwordEnv),
			MissingCredentials: true,
		}
	}
	return m.Authenticate(ctx, username, password)
}

// refresh logs in again with the environment credentials. Unlike
// Authenticate, a failure leaves the current session in place so a token that
// is still valid keeps serving requests until it expires.
func (m *Manager) refresh(ctx context.Context) error {
	username, uok := m.lookupEnv(m.usernameEnv)
	password, pok := m.lookupEnv(m.passwordEnv)
	if !uok || !pok || username == "" || password == "" {
		return &AuthError{
			Message:            fmt.Sprintf("missing required environment variables: %s and %s must be set", m.usernameEnv, m.passwordEnv),
			MissingCredentials: true,
		}
	}
	s, err := m.login(ctx, username, password)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	m.logger.Info("session refreshed",
		slog.String("username", username),
		slog.Time("expires_at", s.ExpiresAt),
	)
	return nil
}

// IsAuthError reports whether err is, or wraps, an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
