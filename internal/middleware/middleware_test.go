package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paiban/planning/pkg/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(logger.RequestIDFromContext(r.Context())))
})

func TestRequestID(t *testing.T) {
	h := RequestID(okHandler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "req-1" || rec.Body.String() != "req-1" {
		t.Errorf("应透传请求ID, header=%q body=%q", rec.Header().Get(RequestIDHeader), rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if id := rec.Header().Get(RequestIDHeader); id == "" || id != rec.Body.String() {
		t.Errorf("应生成请求ID并写入上下文, header=%q body=%q", id, rec.Body.String())
	}
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		header string
		value  string
		want   int
	}{
		{"未配置密钥放行", nil, "", "", http.StatusOK},
		{"缺少密钥", []string{"k1"}, "", "", http.StatusUnauthorized},
		{"Bearer 密钥", []string{"k1", "k2"}, "Authorization", "Bearer k2", http.StatusOK},
		{"X-API-Key 密钥", []string{"k1"}, "X-API-Key", "k1", http.StatusOK},
		{"错误密钥", []string{"k1"}, "X-API-Key", "bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.keys)(okHandler).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	if NewRateLimiter(0, time.Minute) != nil {
		t.Error("limit <= 0 应返回 nil")
	}

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("窗口内前两次请求应允许")
	}
	if rl.Allow("a") {
		t.Error("第三次请求应被拒绝")
	}
	if !rl.Allow("b") {
		t.Error("不同调用方互不影响")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("窗口过后应恢复")
	}

	now = now.Add(2 * time.Minute)
	rl.Cleanup()
	if rl.Len() != 0 {
		t.Errorf("清理后应无记录, got %d", rl.Len())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewRateLimiter(1, time.Minute))(okHandler)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("第 %d 次请求 status = %d, want %d", i+1, rec.Code, want)
		}
	}
}
