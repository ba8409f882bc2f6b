package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/club-backend/pkg/response"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestLogger 测试日志中间件
func TestLogger(t *testing.T) {
	router := gin.New()
	router.Use(Logger())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// 发送请求
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 验证响应
	if w.Code != http.StatusOK {
		t.Errorf("期望状态码 200, 实际 %d", w.Code)
	}

	// 验证 X-Request-ID 头
	requestID := w.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Error("期望 X-Request-ID 头存在")
	}
}

// TestLoggerWithRequestID 测试日志中间件使用已有的请求 ID
func TestLoggerWithRequestID(t *testing.T) {
	router := gin.New()
	router.Use(Logger())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// 发送带有 X-Request-ID 的请求
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "custom-request-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 验证响应中的 X-Request-ID 与请求中的一致
	requestID := w.Header().Get("X-Request-ID")
	if requestID != "custom-request-id" {
		t.Errorf("期望 X-Request-ID 为 custom-request-id, 实际 %s", requestID)
	}
}

// TestRecovery 测试恢复中间件
func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Logger()) // Recovery 依赖 Logger 设置的 request_id
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("测试 panic")
	})

	// 发送请求
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 验证返回 500 状态码
	if w.Code != http.StatusInternalServerError {
		t.Errorf("期望状态码 500, 实际 %d", w.Code)
	}

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 500, body.Code)
	assert.NotEmpty(t, body.Message)
	assert.NotZero(t, body.Timestamp)
}

// TestCORS 测试 CORS 中间件
func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// 发送带 Origin 的请求
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 验证 CORS 头
	if w.Header().Get("Access-Control-Allow-Origin") != "http://example.com" {
		t.Error("期望 Access-Control-Allow-Origin 头存在")
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("期望 Access-Control-Allow-Credentials 为 true")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("期望暴露 Content-Disposition 头")
	}
}

// TestCORSAllowedOrigins 测试来源白名单
func TestCORSAllowedOrigins(t *testing.T) {
	router := gin.New()
	router.Use(CORS("http://admin.example.com"))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://admin.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// 不在白名单内的来源被拒绝
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// TestCORSPreflight 测试 CORS 预检请求
func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// 发送 OPTIONS 预检请求
	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 验证返回 204 状态码
	if w.Code != http.StatusNoContent {
		t.Errorf("期望状态码 204, 实际 %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("期望 Access-Control-Allow-Methods 头存在")
	}
	if w.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Error("期望 Access-Control-Allow-Headers 头存在")
	}
}

// TestSecurityHeaders 测试安全响应头
func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 验证安全头
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("期望 X-Content-Type-Options 为 nosniff")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("期望 X-Frame-Options 为 DENY")
	}
	if w.Header().Get("X-XSS-Protection") == "" {
		t.Error("期望 X-XSS-Protection 头存在")
	}
}

// TestGetLogger 测试获取日志实例
func TestGetLogger(t *testing.T) {
	l := GetLogger()
	if l == nil {
		t.Error("GetLogger() 返回 nil")
	}
}

// TestInitLogger 测试按级别重建日志实例
func TestInitLogger(t *testing.T) {
	before := GetLogger()
	t.Cleanup(func() { logger = before })

	require.NoError(t, InitLogger("debug"))
	assert.True(t, GetLogger().Core().Enabled(-1))

	// 无法解析的级别回退到 info
	require.NoError(t, InitLogger("verbose"))
	assert.False(t, GetLogger().Core().Enabled(-1))
	assert.True(t, GetLogger().Core().Enabled(0))
}

// newRateLimitedRouter 创建带限流的测试路由
func newRateLimitedRouter(t *testing.T, limit int, window time.Duration) (*gin.Engine, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	router := gin.New()
	router.Use(RateLimiter(client, limit, window))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router, mr
}

// TestRateLimiter 测试超过限额返回 429
func TestRateLimiter(t *testing.T) {
	router, mr := newRateLimitedRouter(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 429, body.Code)

	// 窗口过期后重新计数
	mr.FastForward(time.Minute + time.Second)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

// TestRateLimiterPerClient 测试按客户端 IP 分别计数
func TestRateLimiterPerClient(t *testing.T) {
	router, _ := newRateLimitedRouter(t, 1, time.Minute)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
}

// TestRateLimiterRedisDown 测试 Redis 不可用时放行
func TestRateLimiterRedisDown(t *testing.T) {
	router, mr := newRateLimitedRouter(t, 1, time.Minute)
	mr.Close()

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
