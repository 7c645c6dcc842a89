package middleware

import (
	"sync"
	"time"
)

// RateLimiter 滑动窗口请求频率限制器
type RateLimiter struct {
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewRateLimiter 创建频率限制器；limit <= 0 时返回 nil 表示不限制
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		return nil
	}
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow 检查是否允许请求，并顺带清理该调用方的过期记录
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := prune(rl.requests[key], now.Add(-rl.window))
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Cleanup 删除所有过期记录，由调用方定期执行
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.now().Add(-rl.window)
	for key, reqs := range rl.requests {
		if valid := prune(reqs, windowStart); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

// Len 当前跟踪的调用方数量
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

func prune(reqs []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(reqs) && !reqs[i].After(windowStart) {
		i++
	}
	return reqs[i:]
}
