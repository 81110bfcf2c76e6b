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
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, platform.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("platform: bad request")
	ErrUnauthorized = errors.New("platform: unauthorized")
	ErrForbidden    = errors.New("platform: forbidden")
	ErrNotFound     = errors.New("platform: not found")
	ErrConflict     = errors.New("platform: conflict")
	ErrServerError  = errors.New("platform: server error")
)

// RemoteError is returned for any non-2xx response from the platform.
type RemoteError struct {
	Method     string
	Path       string
	StatusCode int
	// Body is the raw response body, usually the platform's JSON error payload.
	Body string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("platform: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}
		return nil
	}
}
