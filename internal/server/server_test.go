package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	srv, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotContains(t, w.Body.String(), `"source"`)

	w = do(srv, http.MethodGet, "/fs/list?path="+paths.Home, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Desktop"`)

	w = do(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deskfs_http_requests_total")
}

func TestServerHostDirLower(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "System"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "System", "boot.ini"), []byte("[boot]"), 0o644))

	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Storage.Lower = config.LowerDir
		cfg.Storage.LowerSource = dir
	})

	w := do(srv, http.MethodGet, "/fs/read?path=/System/boot.ini", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[boot]", w.Body.String())

	w = do(srv, http.MethodPost, "/fs/create", map[string]any{
		"name":      "boot.ini",
		"directory": "/System",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "boot (1).ini")
}

func TestServerHTTPLowerReportsSource(t *testing.T) {
	web := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.index/fs.json":
			_, _ = w.Write([]byte(`{"System": {"boot.ini": null}}`))
		case "/System/boot.ini":
			_, _ = w.Write([]byte("[boot]"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(web.Close)

	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Storage.Lower = config.LowerHTTP
		cfg.Storage.LowerSource = web.URL
	})

	w := do(srv, http.MethodGet, "/fs/read?path=/System/boot.ini", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[boot]", w.Body.String())

	w = do(srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health struct {
		Source struct {
			Source string `json:"source"`
			State  string `json:"state"`
		} `json:"source"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, web.URL, health.Source.Source)
	assert.Equal(t, "closed", health.Source.State)
}

func TestServerPersistsToDataDir(t *testing.T) {
	dataDir := t.TempDir()
	mutate := func(cfg *config.Config) { cfg.Storage.DataDir = dataDir }

	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	mutate(cfg)

	srv, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	w := do(srv, http.MethodPost, "/fs/create", map[string]any{
		"name":      "notes.txt",
		"directory": paths.Documents,
		"data":      []byte("hello"),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, srv.Shutdown(context.Background()))

	reopened := newTestServer(t, mutate)
	w = do(reopened, http.MethodGet, "/fs/read?path="+paths.Join(paths.Documents, "notes.txt"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestServerBadLowerSource(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Lower = config.LowerDir
	cfg.Storage.LowerSource = filepath.Join(t.TempDir(), "missing")

	_, err := New(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing"))
}

func TestNewServerRejectsBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "loud"

	_, err := NewServer(context.Background(), cfg)
	assert.Error(t, err)
}
