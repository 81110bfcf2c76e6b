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

package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
)

// URLSecurityIssue represents a potential security concern with a URL
type URLSecurityIssue struct {
	Type        string
	Description string
	URL         string
}

var cloudMetadataHosts = []string{
	"169.254.169.254",          // AWS/Azure
	"metadata.google.internal", // GCP
	"100.100.100.200",          // Alibaba Cloud
}

var privateRanges = mustParseCIDRs("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7")

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, len(cidrs))
	for i, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets[i] = n
	}
	return nets
}

// CheckURLSecurity analyzes a URL for potential security issues. Credentials
// and bearer tokens are sent to these URLs, so plain http is flagged too.
func CheckURLSecurity(rawURL string) []URLSecurityIssue {
	var issues []URLSecurityIssue
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return issues
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return issues
	}
	add := func(kind, desc string) {
		issues = append(issues, URLSecurityIssue{Type: kind, Description: desc, URL: rawURL})
	}

	if parsed.Scheme == "http" {
		add("plaintext", "URL uses http; credentials and tokens travel unencrypted")
	}

	hostname := parsed.Hostname()
	if hostname == "localhost" {
		add("localhost", "URL points to localhost/loopback address")
	}
	for _, host := range cloudMetadataHosts {
		if hostname == host {
			add("cloud_metadata", "URL points to cloud metadata endpoint")
			break
		}
	}

	ip := net.ParseIP(hostname)
	if ip == nil {
		return issues
	}
	if ip.IsLoopback() {
		add("localhost", "URL points to localhost/loopback address")
	}
	for _, n := range privateRanges {
		if n.Contains(ip) {
			add("private_ip", "URL points to private IP address")
			break
		}
	}
	if ip.IsLinkLocalUnicast() {
		add("link_local", "URL points to link-local address")
	}
	return issues
}

// WarnURLSecurity logs security warnings for suspicious URLs
func WarnURLSecurity(logger *slog.Logger, rawURL, urlType string, devMode bool) {
	if devMode {
		return
	}
	for _, issue := range CheckURLSecurity(rawURL) {
		logger.Warn("security warning: "+urlType+" URL has potential security concerns",
			slog.String("url", rawURL),
			slog.String("issue", issue.Type),
			slog.String("detail", issue.Description),
			slog.String("hint", "use --dev-mode to suppress these warnings for local development"),
		)
	}
}

// WarnInsecureURLs checks every outbound URL of c.
func (c Config) WarnInsecureURLs(logger *slog.Logger) {
	WarnURLSecurity(logger, c.Platform.BaseURL, "platform base", c.DevMode)
	WarnURLSecurity(logger, c.ResolvedAuthURL(), "platform auth", c.DevMode)
	if c.Auth.Enabled && c.Auth.JWKSURI != "" {
		WarnURLSecurity(logger, c.Auth.JWKSURI, "JWKS", c.DevMode)
	}
}
