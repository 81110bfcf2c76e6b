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

package internal

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T4cceptor/mps-mcp/pkg/config"
	"github.com/T4cceptor/mps-mcp/pkg/core"
	"github.com/T4cceptor/mps-mcp/pkg/session"
)

type MockServerFactory struct {
	mu          sync.Mutex
	httpServer  *mockHTTPServer
	stdioServer *mockStdioServer
	addr        string
	middleware  func(http.Handler) http.Handler
}

func (f *MockServerFactory) CreateHTTPServer(mcpServer *server.MCPServer, addr string, middleware func(http.Handler) http.Handler) HTTPServer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addr = addr
	f.middleware = middleware
	if f.httpServer == nil {
		f.httpServer = &mockHTTPServer{}
	}
	f.httpServer.mcpServer = mcpServer
	return f.httpServer
}

func (f *MockServerFactory) CreateStdioServer(mcpServer *server.MCPServer, _ *slog.Logger) StdioServer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stdioServer == nil {
		f.stdioServer = &mockStdioServer{}
	}
	f.stdioServer.mcpServer = mcpServer
	return f.stdioServer
}

// mockHTTPServer returns from Start immediately unless block is set, in
// which case it waits for Shutdown.
type mockHTTPServer struct {
	mcpServer *server.MCPServer
	block     bool
	started   chan struct{}
	stopped   chan struct{}
	shutdown  bool
}

func (s *mockHTTPServer) Start() error {
	if s.started != nil {
		close(s.started)
	}
	if s.block {
		<-s.stopped
	}
	return nil
}

func (s *mockHTTPServer) Shutdown(context.Context) error {
	s.shutdown = true
	if s.block {
		close(s.stopped)
	}
	return nil
}

type mockStdioServer struct {
	mcpServer *server.MCPServer
	served    bool
	onServe   func(ctx context.Context, s *server.MCPServer)
}

func (s *mockStdioServer) Serve(ctx context.Context) error {
	s.served = true
	if s.onServe != nil {
		s.onServe(ctx, s.mcpServer)
	}
	return nil
}

// fakePlatform serves the login endpoint and the system list.
func fakePlatform(t *testing.T, loginStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(loginStatus)
		if loginStatus == http.StatusOK {
			_, _ = w.Write([]byte(`{"token":"tok-1","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	})
	mux.HandleFunc("/system/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"pk":1,"name":"ERP","description":"core"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.Platform.BaseURL = baseURL
	cfg.DevMode = true
	return cfg
}

func credentials(vars map[string]string) session.Option {
	return session.WithEnvLookup(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

var validCredentials = map[string]string{"MPS_USERNAME": "alice", "MPS_PASSWORD": "s3cret"}

func TestApp_Run_Stdio(t *testing.T) {
	platformSrv := fakePlatform(t, http.StatusOK)
	factory := &MockServerFactory{stdioServer: &mockStdioServer{}}

	var toolOutput string
	factory.stdioServer.onServe = func(ctx context.Context, s *server.MCPServer) {
		toolOutput = handle(t, ctx, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"getSystemList","arguments":{}}}`)
	}

	app := NewApp(testConfig(platformSrv.URL), "test", nil, credentials(validCredentials))
	require.NoError(t, app.Run(context.Background(), factory))

	assert.True(t, factory.stdioServer.served)
	assert.Nil(t, factory.httpServer)
	assert.Contains(t, toolOutput, `\"name\":\"ERP\"`)
	assert.NotContains(t, toolOutput, `"isError":true`)
}

func TestApp_Run_HTTP(t *testing.T) {
	platformSrv := fakePlatform(t, http.StatusOK)
	factory := &MockServerFactory{}

	cfg := testConfig(platformSrv.URL)
	cfg.Server.Transport = core.TransportTypeHTTP
	cfg.Server.Port = 9123

	app := NewApp(cfg, "test", nil, credentials(validCredentials))
	require.NoError(t, app.Run(context.Background(), factory))

	assert.Equal(t, ":9123", factory.addr)
	assert.Nil(t, factory.middleware, "no middleware without bearer auth")
	assert.Nil(t, factory.stdioServer)
}

func TestApp_Run_HTTPWithBearerAuth(t *testing.T) {
	platformSrv := fakePlatform(t, http.StatusOK)
	factory := &MockServerFactory{}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	cfg := testConfig(platformSrv.URL)
	cfg.Server.Transport = core.TransportTypeHTTP
	cfg.Auth.Enabled = true
	cfg.Auth.Required = true
	cfg.Auth.PublicKey = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	app := NewApp(cfg, "test", nil, credentials(validCredentials))
	require.NoError(t, app.Run(context.Background(), factory))
	require.NotNil(t, factory.middleware)

	rec := httptest.NewRecorder()
	factory.middleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, MCPEndpoint, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApp_Run_HTTPShutdownOnCancel(t *testing.T) {
	platformSrv := fakePlatform(t, http.StatusOK)
	httpServer := &mockHTTPServer{block: true, started: make(chan struct{}), stopped: make(chan struct{})}
	factory := &MockServerFactory{httpServer: httpServer}

	cfg := testConfig(platformSrv.URL)
	cfg.Server.Transport = core.TransportTypeHTTP

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewApp(cfg, "test", nil, credentials(validCredentials)).Run(ctx, factory)
	}()

	select {
	case <-httpServer.started:
	case <-time.After(5 * time.Second):
		t.Fatal("server never started")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, httpServer.shutdown)
}

func TestApp_Run_LoginRejected(t *testing.T) {
	platformSrv := fakePlatform(t, http.StatusUnauthorized)
	factory := &MockServerFactory{}

	err := NewApp(testConfig(platformSrv.URL), "test", nil, credentials(validCredentials)).Run(context.Background(), factory)

	var authErr *session.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Nil(t, factory.stdioServer, "no transport starts after a failed login")
	assert.Nil(t, factory.httpServer)
}

func TestApp_Run_MissingCredentials(t *testing.T) {
	platformSrv := fakePlatform(t, http.StatusOK)
	factory := &MockServerFactory{}

	err := NewApp(testConfig(platformSrv.URL), "test", nil, credentials(map[string]string{"MPS_USERNAME": "alice"})).
		Run(context.Background(), factory)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MPS_USERNAME")
	assert.Contains(t, err.Error(), "MPS_PASSWORD")
	assert.True(t, session.IsAuthError(err))
	assert.Nil(t, factory.stdioServer)
}

func TestApp_Run_UnsupportedTransport(t *testing.T) {
	platformSrv := fakePlatform(t, http.StatusOK)
	cfg := testConfig(platformSrv.URL)
	cfg.Server.Transport = "sse"

	err := NewApp(cfg, "test", nil, credentials(validCredentials)).Run(context.Background(), &MockServerFactory{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type")
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestManifest(t *testing.T) {
	app := NewApp(config.Default(), "1.2.3", nil)
	m := NewManifest("1.2.3", app.Tools().Tools(), app.Tools().Prompts())

	assert.Equal(t, ServerName, m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Len(t, m.Tools, len(app.Tools().Tools()))
	require.Len(t, m.Prompts, 1)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Handler")
}
