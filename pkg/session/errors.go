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

package session

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when an authenticated call is attempted
// without a live session.
var ErrNotAuthenticated = errors.New("session: no valid token found, authenticate first")

// AuthError describes a failed login attempt.
type AuthError struct {
	Message string
	// StatusCode is the HTTP status of the identity response, 0 if none was received.
	StatusCode int
	// MissingCredentials is set when the credential variables are not present in the environment.
	MissingCredentials bool
	Err                error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	msg := "authentication failed: " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
