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

// Package config assembles the server configuration from defaults, an
// optional TOML file and command line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/T4cceptor/mps-mcp/pkg/auth"
	"github.com/T4cceptor/mps-mcp/pkg/core"
	"github.com/T4cceptor/mps-mcp/pkg/platform"
	"github.com/T4cceptor/mps-mcp/pkg/session"
)

const (
	DefaultPort           = 8080
	DefaultTimeoutSeconds = 10
	DefaultExportWorkers  = 1
	DefaultLogLevel       = "info"
	maxExportWorkers      = 64
)

// PlatformConfig locates the MPS platform API.
type PlatformConfig struct {
	BaseURL string `toml:"base_url" json:"baseUrl"`
	// AuthURL defaults to <BaseURL>/auth/.
	AuthURL        string `toml:"auth_url" json:"authUrl"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeoutSeconds"`
}

// Timeout returns the request timeout as a duration.
func (p PlatformConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CredentialsConfig names the environment variables holding the platform login.
type CredentialsConfig struct {
	UsernameEnv string `toml:"username_env" json:"usernameEnv"`
	PasswordEnv string `toml:"password_env" json:"passwordEnv"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	Transport core.TransportType `toml:"transport" json:"transport"`
	// Port is only used by the http transport.
	Port int `toml:"port" json:"port"`
}

// ExportConfig tunes archive extraction.
type ExportConfig struct {
	Workers int `toml:"workers" json:"workers"`
}

// Config is the complete server configuration.
type Config struct {
	Platform    PlatformConfig    `toml:"platform" json:"platform"`
	Credentials CredentialsConfig `toml:"credentials" json:"credentials"`
	Server      ServerConfig      `toml:"server" json:"server"`
	Export      ExportConfig      `toml:"export" json:"export"`
	Auth        auth.Config       `toml:"auth" json:"auth"`

	LogLevel string `toml:"log_level" json:"logLevel"`
	// DevMode silences URL security warnings.
	DevMode bool `toml:"dev_mode" json:"devMode"`
}

// Default returns the configuration used when neither a file nor flags say otherwise.
func Default() Config {
	return Config{
		Platform: PlatformConfig{
			BaseURL:        platform.DefaultBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Credentials: CredentialsConfig{
			UsernameEnv: session.DefaultUsernameEnv,
			PasswordEnv: session.DefaultPasswordEnv,
		},
		Server: ServerConfig{
			Transport: core.TransportTypeStdio,
			Port:      DefaultPort,
		},
		Export:   ExportConfig{Workers: DefaultExportWorkers},
		LogLevel: DefaultLogLevel,
	}
}

// ResolvedAuthURL returns the login endpoint, deriving it from the base URL when unset.
func (c Config) ResolvedAuthURL() string {
	if c.Platform.AuthURL != "" {
		return c.Platform.AuthURL
	}
	return strings.TrimRight(c.Platform.BaseURL, "/") + "/auth/"
}

// Validate reports every problem found in c.
func (c Config) Validate() error {
	var errs []error
	if err := validateURL("platform.base_url", c.Platform.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Platform.AuthURL != "" {
		if err := validateURL("platform.auth_url", c.Platform.AuthURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Platform.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("platform.timeout_seconds must be positive, got %d", c.Platform.TimeoutSeconds))
	}
	if c.Credentials.UsernameEnv == "" || c.Credentials.PasswordEnv == "" {
		errs = append(errs, errors.New("credentials.username_env and credentials.password_env must be set"))
	}
	if !c.Server.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("server.transport must be %q or %q, got %q",
			core.TransportTypeStdio, core.TransportTypeHTTP, c.Server.Transport))
	}
	if c.Server.Transport == core.TransportTypeHTTP && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Export.Workers < 1 || c.Export.Workers > maxExportWorkers {
		errs = append(errs, fmt.Errorf("export.workers must be between 1 and %d, got %d", maxExportWorkers, c.Export.Workers))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}
	return errors.Join(errs...)
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

// ParseLogLevel converts a level name into a slog.Level.
func ParseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: use debug, info, warn or error", raw)
	}
	return level, nil
}

// ToJSON returns c as indented JSON for startup logging. Secrets are not serialized.
func (c Config) ToJSON() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return `{"error": "failed to marshal config to JSON"}`
	}
	return string(data)
}
