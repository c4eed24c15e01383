package kafka

import (
	"AskBot/backend/go/internal/config"
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaClient 持有管理连接和配置，供发布者和消费者创建各自的 writer/reader。
type KafkaClient struct {
	Conn   *kafka.Conn // 用于管理的连接
	Config *config.KafkaConfig
}

// Connect 连接第一个 broker，并在未命中主题不存在时自动创建。调用方负责 Close。
func Connect(cfg *config.KafkaConfig) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	if err := ensureTopic(conn, cfg.MissTopic); err != nil {
		conn.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"brokers": cfg.Brokers, "topic": cfg.MissTopic}).Info("Kafka 未命中事件主题已就绪")
	return &KafkaClient{Conn: conn, Config: cfg}, nil
}

func ensureTopic(conn *kafka.Conn, topic string) error {
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	for _, p := range partitions {
		if p.Topic == topic {
			return nil
		}
	}

	logrus.WithField("topic", topic).Info("主题不存在，准备创建")
	// CreateTopics 需要发往 controller。
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("无法获取 Kafka controller: %w", err)
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("连接 Kafka controller 失败: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	return nil
}

// Close 安全地关闭管理连接。
func (c *KafkaClient) Close() error {
	if c == nil || c.Conn == nil {
		return nil
	}
	if err := c.Conn.Close(); err != nil {
		return fmt.Errorf("关闭 Kafka 管理连接失败: %w", err)
	}
	return nil
}

// Ping 通过查询 controller 确认集群仍然可达，供健康检查使用。
func (c *KafkaClient) Ping(_ context.Context) error {
	if c == nil || c.Conn == nil {
		return fmt.Errorf("kafka 客户端未初始化")
	}
	if _, err := c.Conn.Controller(); err != nil {
		return fmt.Errorf("kafka 不可用: %w", err)
	}
	return nil
}
