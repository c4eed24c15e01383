package kafka

import (
	"AskBot/backend/go/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MissReader 消费未命中主题，供命令行查看最近没有答案的问题。
type MissReader struct {
	reader *kafka.Reader
}

// NewMissReader 创建一个消费者。groupID 为空时从最早的偏移量开始读取且不提交偏移量。
func NewMissReader(client *KafkaClient, groupID string) *MissReader {
	cfg := kafka.ReaderConfig{
		Brokers:  client.Config.Brokers,
		Topic:    client.Config.MissTopic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	}
	if groupID == "" {
		cfg.StartOffset = kafka.FirstOffset
	}
	return &MissReader{reader: kafka.NewReader(cfg)}
}

// Each 逐条读取事件并交给 fn，直到 ctx 结束或 fn 返回错误。无法解析的消息会被跳过。
func (r *MissReader) Each(ctx context.Context, fn func(models.MissEvent) error) error {
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("读取未命中事件失败: %w", err)
		}
		event, err := decodeMiss(msg.Value)
		if err != nil {
			logrus.WithError(err).WithField("offset", msg.Offset).Warn("跳过无法解析的未命中事件")
			continue
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// Close 关闭消费者。
func (r *MissReader) Close() error {
	return r.reader.Close()
}

func decodeMiss(data []byte) (models.MissEvent, error) {
	var event models.MissEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return models.MissEvent{}, err
	}
	if event.Normalized == "" {
		return models.MissEvent{}, errors.New("missing normalized question")
	}
	return event, nil
}
