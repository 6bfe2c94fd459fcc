package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmux/agentmux-core/internal/common/logger"
)

func newTestGinRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRequestLoggerSkipsWebsocketRoute(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "requests.log")
	log, err := logger.New(logger.Config{Level: "info", Format: "json", OutputPath: logPath})
	require.NoError(t, err)

	router := newTestGinRouter()
	router.Use(RequestLogger(log))
	router.GET("/api/v1/ws", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	_ = log.Sync()
	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(logged), `"path":"/api/v1/ws"`)
	assert.Contains(t, string(logged), `"path":"/api/v1/health"`)
}

func TestCORSHandlesPreflight(t *testing.T) {
	router := newTestGinRouter()
	router.Use(CORS())
	router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryConvertsPanicToInternalError(t *testing.T) {
	router := newTestGinRouter()
	router.Use(Recovery(logger.Default()))
	router.GET("/boom", func(c *gin.Context) { panic("exploded") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimitBlocksOnceBucketIsEmpty(t *testing.T) {
	router := newTestGinRouter()
	router.Use(RateLimit(1))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
