package kafka

import (
	"AskBot/backend/go/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageWriter 是 MissPublisher 使用的 kafka.Writer 子集。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MissPublisher 把知识库未命中事件写入 Kafka，按规范化问题分区，同一问题的事件保持有序。
type MissPublisher struct {
	writer MessageWriter
}

// NewMissPublisher 为未命中主题创建一个异步 writer。异步写入不会阻塞回答流程，发送错误只记录日志。
func NewMissPublisher(client *KafkaClient) *MissPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(client.Config.Brokers...),
		Topic:        client.Config.MissTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithError(err).WithField("count", len(messages)).Warn("未命中事件写入 Kafka 失败")
			}
		},
	}
	return &MissPublisher{writer: writer}
}

// NewMissPublisherWithWriter 使用给定的 writer，便于测试。
func NewMissPublisherWithWriter(w MessageWriter) *MissPublisher {
	return &MissPublisher{writer: w}
}

// PublishMiss 将事件序列化为 JSON 并发送到 Kafka。
func (p *MissPublisher) PublishMiss(ctx context.Context, event models.MissEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal miss event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Normalized),
		Value: data,
		Time:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 刷新缓冲并关闭底层的 writer。
func (p *MissPublisher) Close() error {
	return p.writer.Close()
}
