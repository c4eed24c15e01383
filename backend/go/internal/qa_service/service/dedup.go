package service

import (
	"AskBot/backend/go/pkg/util"
	"context"
	"time"
)

// MemoryDeduper 在进程内记住最近的消息 ID。未配置 Redis 时使用，多实例部署下各实例独立去重。
type MemoryDeduper struct {
	seen *util.LRUCache[string, struct{}]
}

// NewMemoryDeduper 创建一个最多记住 capacity 个消息 ID、每个保留 ttl 的去重器。
func NewMemoryDeduper(capacity int, ttl time.Duration) (*MemoryDeduper, error) {
	cache, err := util.NewLRU[string, struct{}](util.CacheConfig{Capacity: capacity, TTL: ttl})
	if err != nil {
		return nil, err
	}
	return &MemoryDeduper{seen: cache}, nil
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, messageID string) (bool, error) {
	return d.seen.PutIfAbsent(messageID, struct{}{}), nil
}

var _ Deduper = (*MemoryDeduper)(nil)
