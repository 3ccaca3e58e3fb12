package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/koopa0/openmusic/internal"
)

// DefaultTestConfig 返回測試用的預設配置
func DefaultTestConfig() *internal.Config {
	cfg := &internal.Config{}

	// Server 配置
	cfg.Server.Port = 5000
	cfg.Server.ReadTimeout = 5 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second

	// Redis 配置
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.PoolSize = 10
	cfg.Redis.MinIdleConns = 5
	cfg.Redis.MaxRetries = 3

	// PostgreSQL 配置
	cfg.Postgres.Host = "localhost"
	cfg.Postgres.Port = 5432
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 2

	// NATS 配置
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.ExportSubject = "export.playlist"

	// Cache 配置
	cfg.Cache.LikesTTL = internal.DefaultLikesTTL

	// Log 配置
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"

	return cfg
}

// MakeHTTPRequest 執行 HTTP 請求的輔助函數
func MakeHTTPRequest(t testing.TB, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return MakeHTTPRequestAs(t, handler, method, path, body, "")
}

// MakeHTTPRequestAs 以指定使用者身份執行 HTTP 請求
//
// userID 非空時設定 X-User-Id 標頭。
func MakeHTTPRequestAs(t testing.TB, handler http.Handler, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		if str, ok := body.(string); ok {
			bodyReader = strings.NewReader(str)
		} else {
			jsonBytes, err := json.Marshal(body)
			require.NoError(t, err)
			bodyReader = strings.NewReader(string(jsonBytes))
		}
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	return recorder
}

// ParseJSONResponse 解析 JSON 響應
func ParseJSONResponse(t testing.TB, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()

	err := json.NewDecoder(recorder.Body).Decode(target)
	require.NoError(t, err, "failed to parse JSON response")
}

// RunConcurrently 並發執行測試函數
func RunConcurrently(t testing.TB, concurrency int, iterations int, fn func(workerID, iteration int)) {
	t.Helper()

	done := make(chan struct{})
	for i := 0; i < concurrency; i++ {
		workerID := i
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < iterations; j++ {
				fn(workerID, j)
			}
		}()
	}

	for i := 0; i < concurrency; i++ {
		<-done
	}
}
