package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage/archive/archivetest"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/allocate"
)

func setupRouter(t *testing.T) (*gin.Engine, *vfs.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics()
	manager, err := vfs.New(context.Background(), storage.NewMemory(), vfs.Options{
		SeedDirectories: paths.StandardDirectories(),
		Metrics:         metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	router := gin.New()
	NewHandlers(manager, metrics, nil).Register(router)
	return router, manager
}

func do(t *testing.T, router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestCreateAndRead(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodPost, "/fs/create", gin.H{
		"name":      "hello.txt",
		"directory": paths.Desktop,
		"data":      []byte("hello world"),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "hello.txt", decode(t, w)["name"])

	w = do(t, router, http.MethodPost, "/fs/create", gin.H{
		"name":      "hello.txt",
		"directory": paths.Desktop,
		"data":      []byte("again"),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "hello (1).txt", decode(t, w)["name"])

	w = do(t, router, http.MethodGet, "/fs/read?path=/Users/Public/Desktop/hello.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = do(t, router, http.MethodGet, "/fs/stat?path=/Users/Public/Desktop/hello.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stat := decode(t, w)
	assert.Equal(t, "hello.txt", stat["name"])
	assert.Equal(t, false, stat["is_dir"])
	assert.EqualValues(t, len("hello world"), stat["size"])
}

// countingStore records file reads so tests can check which routes touch
// file contents
type countingStore struct {
	*storage.Memory
	reads atomic.Int32
}

func (s *countingStore) ReadFile(ctx context.Context, path string) ([]byte, error) {
	s.reads.Add(1)
	return s.Memory.ReadFile(ctx, path)
}

func TestStatDoesNotReadContents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	base := &countingStore{Memory: storage.NewMemory()}
	manager, err := vfs.New(ctx, base, vfs.Options{SeedDirectories: []string{paths.Desktop}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	_, err = manager.CreateFile(ctx, "big.bin", paths.Desktop, bytes.Repeat([]byte{0xAB}, 1<<20))
	require.NoError(t, err)

	router := gin.New()
	NewHandlers(manager, nil, nil).Register(router)

	w := do(t, router, http.MethodGet, "/fs/stat?path=/Users/Public/Desktop/big.bin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1<<20, decode(t, w)["size"])
	assert.Zero(t, base.reads.Load())

	w = do(t, router, http.MethodGet, "/fs/read?path=/Users/Public/Desktop/big.bin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), base.reads.Load())
}

func TestCreateFolderAndList(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodPost, "/fs/create", gin.H{
		"name":      "Projects",
		"directory": paths.Documents,
		"folder":    true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, http.MethodGet, "/fs/list?path=/Users/Public/Documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode(t, w)["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "Projects", entries[0].(map[string]any)["name"])
	assert.Equal(t, true, entries[0].(map[string]any)["is_dir"])
}

func TestBadRequests(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"list without path", http.MethodGet, "/fs/list", nil, http.StatusBadRequest},
		{"create without name", http.MethodPost, "/fs/create", gin.H{"directory": "/"}, http.StatusBadRequest},
		{"create with slash", http.MethodPost, "/fs/create", gin.H{"name": "a/b", "directory": "/"}, http.StatusBadRequest},
		{"read missing", http.MethodGet, "/fs/read?path=/nope", nil, http.StatusNotFound},
		{"read directory", http.MethodGet, "/fs/read?path=/System", nil, http.StatusUnprocessableEntity},
		{"mount root", http.MethodPost, "/fs/mount", gin.H{"path": "/"}, http.StatusBadRequest},
		{"mount missing image", http.MethodPost, "/fs/mount", gin.H{"path": "/x.zip"}, http.StatusNotFound},
		{"unknown paste kind", http.MethodPost, "/fs/paste", gin.H{"paths": []string{"/a"}, "kind": "cut"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestMoveEndpoint(t *testing.T) {
	router, manager := setupRouter(t)
	ctx := context.Background()
	_, err := manager.CreateFile(ctx, "a.txt", paths.Desktop, []byte("a"))
	require.NoError(t, err)

	w := do(t, router, http.MethodPost, "/fs/move", gin.H{
		"source":    "/Users/Public/Desktop/a.txt",
		"directory": paths.Documents,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/Users/Public/Documents/a.txt", decode(t, w)["path"])

	w = do(t, router, http.MethodPost, "/fs/move", gin.H{
		"source":    paths.Documents,
		"directory": paths.Documents,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMountEndpoints(t *testing.T) {
	router, manager := setupRouter(t)
	ctx := context.Background()
	image := archivetest.ZIP(t, map[string]string{"readme.txt": "inside"})
	_, err := manager.CreateFile(ctx, "pack.zip", paths.Desktop, image)
	require.NoError(t, err)

	w := do(t, router, http.MethodPost, "/fs/mount", gin.H{"path": "/Users/Public/Desktop/pack.zip"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/fs/mount", gin.H{"path": "/Users/Public/Desktop/pack.zip"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodGet, "/fs/mounts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["mounts"], 1)

	w = do(t, router, http.MethodGet, "/fs/read?path=/Users/Public/Desktop/pack.zip/readme.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inside", w.Body.String())

	w = do(t, router, http.MethodPost, "/fs/create", gin.H{
		"name":      "x.txt",
		"directory": "/Users/Public/Desktop/pack.zip",
		"data":      []byte("x"),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodDelete, "/fs/mount?path=/Users/Public/Desktop/pack.zip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["unmounted"])

	w = do(t, router, http.MethodDelete, "/fs/mount?path=/Users/Public/Desktop/pack.zip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["unmounted"])
}

func TestMkdirEndpoint(t *testing.T) {
	router, manager := setupRouter(t)

	w := do(t, router, http.MethodPost, "/fs/mkdir", gin.H{"path": "/docs/2024/reports"})
	require.Equal(t, http.StatusCreated, w.Code)

	ok, err := manager.Store().Exists(context.Background(), "/docs/2024/reports")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasteEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodPost, "/fs/paste", gin.H{"paths": []string{"/a", "/b"}, "kind": "move"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/fs/paste", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"/a": "move", "/b": "move"}, decode(t, w)["intent"])
}

func TestDropEndpoint(t *testing.T) {
	router, manager := setupRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/fs/drop", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, paths.Temp+"/photo.png", out["path"])
	assert.Equal(t, "image/png", out["mime_type"])

	ok, err := manager.Store().Exists(context.Background(), paths.Temp+"/photo.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetEndpoint(t *testing.T) {
	router, manager := setupRouter(t)
	ctx := context.Background()
	_, err := manager.CreateFile(ctx, "a.txt", paths.Desktop, []byte("a"))
	require.NoError(t, err)

	w := do(t, router, http.MethodPost, "/fs/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	ok, err := manager.Store().Exists(ctx, paths.Desktop+"/a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", storage.Failure("create", "/a", storage.ErrInvalid), http.StatusBadRequest},
		{"read only", storage.Failure("write", "/a.zip/x", storage.ErrReadOnly), http.StatusForbidden},
		{"missing", storage.Failure("stat", "/nope", storage.ErrNotExist), http.StatusNotFound},
		{"collisions", allocate.ErrTooManyCollisions, http.StatusConflict},
		{"cross device", storage.ErrCrossDevice, http.StatusUnprocessableEntity},
		{"source down", storage.Failure("read", "/System/boot.ini", resilience.ErrCircuitOpen), http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
