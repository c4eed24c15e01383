package minio

import (
	"AskBot/backend/go/internal/config"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// Connect 创建 MinIO 客户端，确保归档桶存在，并返回可用的 ImportArchiver。
func Connect(ctx context.Context, cfg *config.MinIOConfig) (*ImportArchiver, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	a := NewImportArchiver(c, cfg.Bucket)
	if err := a.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"endpoint": cfg.Endpoint, "bucket": cfg.Bucket}).Info("MinIO 导入归档已就绪")
	return a, nil
}

func newClient(cfg *config.MinIOConfig) (*minio.Client, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("无法创建 MinIO 客户端: %w", err)
	}
	return c, nil
}
