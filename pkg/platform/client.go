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

// Package platform is a typed client for the MPS low-code platform REST API.
// Every method maps to exactly one HTTP call made with session credentials.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the platform API root used when none is configured.
const DefaultBaseURL = "https://main.test.nmhuixin.com/api/v1"

// ClientSource hands out HTTP clients carrying the current credentials.
// *session.Manager implements it.
type ClientSource interface {
	NewAuthenticatedClient() (*http.Client, error)
}

// Client calls the platform API.
type Client struct {
	baseURL  string
	sessions ClientSource
	logger   *slog.Logger
}

// NewClient creates a platform client rooted at baseURL.
func NewClient(baseURL string, sessions ClientSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: sessions,
		logger:   logger,
	}
}

// send performs one request and returns the response on 2xx. Any other status
// is turned into a *RemoteError. The caller closes the body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	httpClient, err := c.sessions.NewAuthenticatedClient()
	if err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s request: %w", method, path, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("platform request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	c.closeBody(resp)
	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	c.logger.Warn("platform request failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)
	return nil, &RemoteError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(errBody)),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// do performs a request and returns the full response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	defer c.closeBody(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	return data, nil
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding GET %s response: %w", path, err)
	}
	return nil
}

// passThrough performs a request and returns the body as raw JSON.
func (c *Client) passThrough(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	data, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return jsonNull, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s %s returned a non-JSON body", method, path)
	}
	return json.RawMessage(data), nil
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Warn("failed to close response body", slog.String("error", err.Error()))
	}
}
