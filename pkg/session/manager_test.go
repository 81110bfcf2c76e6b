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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// identityServer answers every login with status and body, counting calls.
func identityServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticate_SendsCredentialsAndTenant(t *testing.T) {
	var got map[string]any
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	m := NewManager(srv.URL)
	token, err := m.Authenticate(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, "abc", token)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, "s3cret", got["password"])
	assert.Equal(t, float64(0), got["sys_id"])
}

func TestAuthenticate_ExpiryFromDeclaredLifetime(t *testing.T) {
	clock := newFakeClock()
	srv := identityServer(t, http.StatusOK, `{"token":"abc","expires_in":3600}`, nil)
	m := NewManager(srv.URL, WithClock(clock.Now))

	_, err := m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, clock.now.Add(time.Hour), current.ExpiresAt)

	clock.Advance(3599 * time.Second)
	token, ok := m.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	clock.Advance(time.Second)
	_, ok = m.Token()
	assert.False(t, ok, "token must be absent exactly at expiry")

	clock.Advance(time.Second)
	_, ok = m.Token()
	assert.False(t, ok)

	_, ok = m.Current()
	assert.False(t, ok, "lazy expiry clears the session")
}

func TestAuthenticate_DefaultLifetime(t *testing.T) {
	for _, body := range []string{`{"token":"abc"}`, `{"token":"abc","expires_in":0}`} {
		t.Run(body, func(t *testing.T) {
			clock := newFakeClock()
			srv := identityServer(t, http.StatusOK, body, nil)
			m := NewManager(srv.URL, WithClock(clock.Now))

			_, err := m.Authenticate(context.Background(), "u", "p")
			require.NoError(t, err)

			current, ok := m.Current()
			require.True(t, ok)
			assert.Equal(t, clock.now.Add(24*time.Hour), current.ExpiresAt)
		})
	}
}

func TestAuthenticate_MissingTokenFails(t *testing.T) {
	srv := identityServer(t, http.StatusOK, `{}`, nil)
	m := NewManager(srv.URL)

	_, err := m.Authenticate(context.Background(), "u", "p")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusOK, authErr.StatusCode)
	assert.False(t, authErr.MissingCredentials)

	_, ok := m.Token()
	assert.False(t, ok)
}

func TestAuthenticate_RejectedCredentials(t *testing.T) {
	srv := identityServer(t, http.StatusUnauthorized, `{"message":"invalid username or password"}`, nil)
	m := NewManager(srv.URL)

	_, err := m.Authenticate(context.Background(), "u", "wrong")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, err.Error(), "invalid username or password")
}

func TestAuthenticate_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewManager(url)
	_, err := m.Authenticate(context.Background(), "u", "p")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.StatusCode)
	assert.NotNil(t, authErr.Unwrap())
	assert.True(t, IsAuthError(err))
}

func TestAuthenticate_FailureClearsPreviousSession(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"token":"first"}`))
	}))
	defer srv.Close()

	m := NewManager(srv.URL)
	_, err := m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)

	fail.Store(true)
	_, err = m.Authenticate(context.Background(), "u", "p")
	require.Error(t, err)

	_, ok := m.Token()
	assert.False(t, ok)
}

func TestShouldRefresh(t *testing.T) {
	clock := newFakeClock()
	srv := identityServer(t, http.StatusOK, `{"token":"abc","expires_in":3600}`, nil)
	m := NewManager(srv.URL, WithClock(clock.Now))

	assert.True(t, m.ShouldRefresh(), "no session means refresh")

	_, err := m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)
	assert.False(t, m.ShouldRefresh())

	// 55 minutes in is exactly the threshold.
	clock.Advance(55*time.Minute - time.Nanosecond)
	assert.False(t, m.ShouldRefresh(), "just before the threshold")

	clock.Advance(time.Nanosecond)
	assert.True(t, m.ShouldRefresh(), "exactly at the threshold")
}

func TestClear(t *testing.T) {
	srv := identityServer(t, http.StatusOK, `{"token":"abc"}`, nil)
	m := NewManager(srv.URL)
	_, err := m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)

	m.Clear()

	_, ok := m.Token()
	assert.False(t, ok)
}

func TestAuthHeaders(t *testing.T) {
	clock := newFakeClock()
	srv := identityServer(t, http.StatusOK, `{"token":"abc","expires_in":60}`, nil)
	m := NewManager(srv.URL, WithClock(clock.Now))

	_, err := m.AuthHeaders()
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)

	headers, err := m.AuthHeaders()
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	clock.Advance(time.Minute)
	_, err = m.AuthHeaders()
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestNewAuthenticatedClient(t *testing.T) {
	identity := identityServer(t, http.StatusOK, `{"token":"abc"}`, nil)
	m := NewManager(identity.URL)

	_, err := m.NewAuthenticatedClient()
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)

	var gotAuth, gotType string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
	}))
	defer api.Close()

	client, err := m.NewAuthenticatedClient()
	require.NoError(t, err)
	assert.Equal(t, RequestTimeout, client.Timeout)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "application/json", gotType)
}

func TestWithRequestTimeout(t *testing.T) {
	identity := identityServer(t, http.StatusOK, `{"token":"abc"}`, nil)
	m := NewManager(identity.URL, WithRequestTimeout(3*time.Second))
	_, err := m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)

	client, err := m.NewAuthenticatedClient()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, client.Timeout)

	m = NewManager(identity.URL, WithRequestTimeout(0))
	_, err = m.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)
	client, err = m.NewAuthenticatedClient()
	require.NoError(t, err)
	assert.Equal(t, RequestTimeout, client.Timeout)
}

func TestAuthenticateFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "both unset", env: map[string]string{}, wantErr: true},
		{name: "password unset", env: map[string]string{"MPS_USERNAME": "alice"}, wantErr: true},
		{name: "username empty", env: map[string]string{"MPS_USERNAME": "", "MPS_PASSWORD": "x"}, wantErr: true},
		{name: "both set", env: map[string]string{"MPS_USERNAME": "alice", "MPS_PASSWORD": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := identityServer(t, http.StatusOK, `{"token":"abc"}`, &calls)
			lookup := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}
			m := NewManager(srv.URL, WithEnvLookup(lookup))

			token, err := m.AuthenticateFromEnvironment(context.Background())
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "abc", token)
				assert.Equal(t, int32(1), calls.Load())
				return
			}

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.True(t, authErr.MissingCredentials)
			assert.Contains(t, err.Error(), "MPS_USERNAME")
			assert.Contains(t, err.Error(), "MPS_PASSWORD")
			assert.Zero(t, calls.Load(), "no login attempt without credentials")
		})
	}
}

func TestAuthenticateFromEnvironment_CustomNames(t *testing.T) {
	srv := identityServer(t, http.StatusOK, `{"token":"abc"}`, nil)
	m := NewManager(srv.URL,
		WithCredentialEnv("PLATFORM_USER", "PLATFORM_PASS"),
		WithEnvLookup(func(string) (string, bool) { return "", false }),
	)

	_, err := m.AuthenticateFromEnvironment(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLATFORM_USER")
	assert.Contains(t, err.Error(), "PLATFORM_PASS")
	assert.False(t, errors.Is(err, ErrNotAuthenticated))
}
