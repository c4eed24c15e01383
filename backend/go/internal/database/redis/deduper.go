package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const dedupKeyPrefix = "askbot:mid:"

// MessageDeduper 用 SETNX 记录已处理的 Messenger 消息 ID，多个实例共享同一个去重窗口。
type MessageDeduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewMessageDeduper 创建去重器，每个消息 ID 保留 ttl。
func NewMessageDeduper(client redis.Cmdable, ttl time.Duration) *MessageDeduper {
	return &MessageDeduper{client: client, ttl: ttl}
}

// FirstSeen 在消息 ID 第一次出现时返回 true。
func (d *MessageDeduper) FirstSeen(ctx context.Context, messageID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKey(messageID), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX 失败: %w", err)
	}
	return ok, nil
}

func dedupKey(messageID string) string {
	return dedupKeyPrefix + messageID
}

// Ping 确认 Redis 仍然可达，供健康检查使用。
func (d *MessageDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
