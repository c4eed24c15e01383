package ratelimiter

import (
	"AskBot/backend/go/internal/config"
	"AskBot/backend/go/pkg/util"
	"fmt"
	"time"
)

// RateLimiter is the interface for rate limiting.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Factory 为每个键创建一个新的限流器。
type Factory func() RateLimiter

// FromConfig 根据中间件配置返回限流器工厂。
func FromConfig(cfg config.RateLimiterConfig) (Factory, error) {
	switch cfg.Algorithm {
	case "", "tokenBucket":
		if cfg.Rate <= 0 || cfg.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket 需要正的 rate 和 capacity")
		}
		return func() RateLimiter { return NewTokenBucket(cfg.Rate, cfg.Capacity) }, nil
	case "fixedWindow":
		window, err := time.ParseDuration(cfg.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		if cfg.Limit <= 0 {
			return nil, fmt.Errorf("fixedWindow 需要正的 limit")
		}
		return func() RateLimiter { return NewFixedWindowCounter(cfg.Limit, window) }, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}

// Keyed 按键（客户端 IP、发送者 ID）维护独立的限流器。
// 键的数量由 LRU 限制，长时间不活跃的键会被淘汰并在下次出现时重新满额。
type Keyed struct {
	limiters *util.LRUCache[string, RateLimiter]
	factory  Factory
}

// NewKeyed 创建一个最多跟踪 maxKeys 个键的 Keyed 限流器。
func NewKeyed(factory Factory, maxKeys int) (*Keyed, error) {
	cache, err := util.NewLRU[string, RateLimiter](util.CacheConfig{Capacity: maxKeys})
	if err != nil {
		return nil, err
	}
	return &Keyed{limiters: cache, factory: factory}, nil
}

// Allow 判断 key 对应的请求是否放行。
func (k *Keyed) Allow(key string) bool {
	return k.limiters.GetOrCreate(key, k.factory).Allow()
}
