/*
 * @module service/security/ratelimiter
 * @description 进程内滑动窗口限流 + 最小间隔防抖，per-key 双端队列，per-key 锁
 * @architecture 核心领域层 - 安全校验
 * @documentReference SPEC_FULL.md #4.5
 * @refs original_source/security/RateLimiter.java
 */

package security

import (
	"fmt"
	"sync"
	"time"

	"orm-engine/service/ormerr"
)

// Limiter 是限流器的统一契约，InMemoryLimiter 与 RedisRateLimiter 都实现它。
type Limiter interface {
	Check(scope, client string, max, windowSeconds, intervalMinMs int) error
}

type record struct {
	mu         sync.Mutex
	timestamps []int64
}

// InMemoryLimiter 按 (scope, client) 维护一个 epoch-ms 时间戳双端队列。
type InMemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewInMemoryLimiter 创建一个进程内限流器。
func NewInMemoryLimiter() *InMemoryLimiter {
	return &InMemoryLimiter{records: map[string]*record{}}
}

// Check 实现 SPEC_FULL.md #4.5 的五步算法。
func (l *InMemoryLimiter) Check(scope, client string, max, windowSeconds, intervalMinMs int) error {
	key := scope + "\x00" + client

	l.mu.Lock()
	rec, ok := l.records[key]
	if !ok {
		rec = &record{}
		l.records[key] = rec
	}
	l.mu.Unlock()

	rec.mu.Lock()
	defer rec.mu.Unlock()

	now := time.Now().UnixMilli()
	windowMs := int64(windowSeconds) * 1000
	cutoff := now - windowMs

	kept := rec.timestamps[:0]
	for _, t := range rec.timestamps {
		if t >= cutoff {
			kept = append(kept, t)
		}
	}
	rec.timestamps = kept

	if max > 0 && len(rec.timestamps) >= max {
		return ormerr.New(ormerr.KindRateLimit, fmt.Sprintf("rate limit exceeded for %s/%s", scope, client))
	}

	if intervalMinMs > 0 && len(rec.timestamps) > 0 {
		last := rec.timestamps[len(rec.timestamps)-1]
		if now-last < int64(intervalMinMs) {
			return ormerr.New(ormerr.KindRateLimit, "request interval too small")
		}
	}

	rec.timestamps = append(rec.timestamps, now)
	return nil
}
