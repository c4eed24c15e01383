package minio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// ImportArchiver 把上传的导入文件原样保存到存储桶，便于事后追查导入了什么。
type ImportArchiver struct {
	client *minio.Client
	bucket string
}

// NewImportArchiver 创建归档器。
func NewImportArchiver(client *minio.Client, bucket string) *ImportArchiver {
	return &ImportArchiver{client: client, bucket: bucket}
}

// EnsureBucket 在存储桶不存在时创建它。
func (a *ImportArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 失败: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", a.bucket, err)
	}
	return nil
}

// Archive 上传一个对象。
func (a *ImportArchiver) Archive(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("上传 %s 失败: %w", objectName, err)
	}
	return nil
}

// Ping 确认归档桶仍然可访问，供健康检查使用。
func (a *ImportArchiver) Ping(ctx context.Context) error {
	if _, err := a.client.BucketExists(ctx, a.bucket); err != nil {
		return fmt.Errorf("MinIO 不可用: %w", err)
	}
	return nil
}
