package mongo

import (
	"AskBot/backend/go/internal/config"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Conn 持有 MongoDB 客户端以及问答库所在的数据库。
type Conn struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect 连接 MongoDB 并确认主节点可达。
// 配置了 Username 时使用显式凭据，否则沿用 URI 中的凭据。
func Connect(ctx context.Context, cfg *config.MongoConfig) (*Conn, error) {
	opts := options.Client().ApplyURI(cfg.Address).SetAppName("askbot")
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("无法连接到 MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("无法 Ping MongoDB: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"database":          cfg.Database,
		"fact_collection":   cfg.FactCollection,
		"config_collection": cfg.ConfigCollection,
	}).Info("MongoDB 已就绪")
	return &Conn{client: client, db: client.Database(cfg.Database)}, nil
}

// Database 返回问答库所在的数据库。
func (c *Conn) Database() *mongo.Database {
	return c.db
}

// Ping 确认主节点仍然可达，供健康检查使用。
func (c *Conn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close 断开连接。
func (c *Conn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
