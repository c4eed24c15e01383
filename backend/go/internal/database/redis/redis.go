package redis

import (
	"AskBot/backend/go/internal/config"
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 3 * time.Second

// Connect 创建 Redis 客户端并确认服务可达。调用方负责关闭返回的客户端。
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: pingTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到 Redis %s: %w", cfg.Address, err)
	}

	logrus.WithFields(logrus.Fields{"address": cfg.Address, "db": cfg.DB}).Info("Redis 已就绪")
	return rdb, nil
}
