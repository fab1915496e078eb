package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/id"
)

func setupTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func get(router *gin.Engine, remote string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{"simple GET request with origin", http.MethodGet, "http://localhost:3000", http.StatusOK, true},
		{"preflight OPTIONS request", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, true},
		{"no origin header", http.MethodGet, "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSConfigFor(t *testing.T) {
	cfg := CORSConfigFor([]string{"https://desk.example.com"})
	assert.Equal(t, []string{"https://desk.example.com"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)

	cfg = CORSConfigFor([]string{"*"})
	assert.False(t, cfg.AllowCredentials)

	cfg = CORSConfigFor(nil)
	assert.Equal(t, DefaultCORSConfig().AllowOrigins, cfg.AllowOrigins)

	router := setupTestRouter(CORS(CORSConfigFor([]string{"https://desk.example.com"})))
	w := get(router, "", map[string]string{"Origin": "https://desk.example.com"})
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(router, "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	for i := 0; i < 2; i++ {
		w := get(router, "192.168.1.1:1234", nil)
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := get(router, "192.168.1.1:1234", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.1:1234", nil).Code)
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		IdleTTL:           10 * time.Millisecond,
	}))

	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", nil).Code)
	time.Sleep(30 * time.Millisecond)
	// A fresh limiter starts with a full burst
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", nil).Code)
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.3:1234", nil).Code)
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter(RequestID())

	w := get(router, "", nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.True(t, strings.HasPrefix(generated, id.RequestPrefix+"_"), generated)
	assert.Len(t, generated, len(id.RequestPrefix)+1+26)

	w = get(router, "", map[string]string{RequestIDHeader: "abc"})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := setupTestRouter(RequestID(), Logger(zap.New(core)))

	get(router, "", map[string]string{RequestIDHeader: "req-1"})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/test", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.Equal(t, 100, cfg.RequestsPerSecond)
	assert.Equal(t, 200, cfg.Burst)
	assert.Equal(t, 10*time.Minute, cfg.IdleTTL)
}
