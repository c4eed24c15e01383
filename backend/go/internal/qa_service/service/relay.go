package service

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/messenger"
	"AskBot/backend/go/internal/qa_service/store"
	"AskBot/backend/go/pkg/logger"
	"AskBot/backend/go/pkg/ratelimiter"
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"
)

// Answerer 为一条聊天消息生成回复，不返回错误。*Resolver 实现了它。
type Answerer interface {
	Answer(ctx context.Context, question string) string
}

// Deduper 识别平台重复投递的消息。
type Deduper interface {
	// FirstSeen 在 messageID 第一次出现时返回 true。
	FirstSeen(ctx context.Context, messageID string) (bool, error)
}

// BatchResult 统计一批 webhook 事件的处理情况。
type BatchResult struct {
	Delivered int // 成功发出回复
	Failed    int // 发送失败，已记录日志
	Skipped   int // 缺少发送者或文本，或是主页自己发出的回显
	Duplicate int // 重复投递
	Limited   int // 被发送者限流丢弃
}

// Relay 把 Messenger webhook 事件转给 Answerer，再通过 Send API 回复给发送者。
type Relay struct {
	configs     store.ConfigStore
	answerer    Answerer
	sender      messenger.Sender
	sendTimeout time.Duration
	dedup       Deduper
	limiter     *ratelimiter.Keyed
	log         *logger.Logger
}

// RelayOption 配置 Relay 的可选能力。
type RelayOption func(*Relay)

// WithDeduper 启用消息 ID 去重。
func WithDeduper(d Deduper) RelayOption {
	return func(r *Relay) { r.dedup = d }
}

// WithSenderLimiter 启用按发送者限流。
func WithSenderLimiter(l *ratelimiter.Keyed) RelayOption {
	return func(r *Relay) { r.limiter = l }
}

// NewRelay 创建 Relay。sendTimeout 是单次 Send API 调用的时限。
func NewRelay(configs store.ConfigStore, answerer Answerer, sender messenger.Sender, sendTimeout time.Duration, opts ...RelayOption) *Relay {
	r := &Relay{
		configs:     configs,
		answerer:    answerer,
		sender:      sender,
		sendTimeout: sendTimeout,
		log:         logger.New("qa_service", "", ""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// VerifyHandshake 处理平台的订阅校验，成功时返回需要原样回显的 challenge。
func (r *Relay) VerifyHandshake(ctx context.Context, mode, token, challenge string) (string, error) {
	cfg, err := r.configs.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("读取配置失败: %w", err)
	}
	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.VerifyToken)) != 1 {
		return "", ErrHandshakeRejected
	}
	return challenge, nil
}

// HandleEvent 按到达顺序逐条处理一批事件。单条消息的失败只记录日志，不影响同批其他消息。
func (r *Relay) HandleEvent(ctx context.Context, event models.WebhookEvent) BatchResult {
	var res BatchResult
	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			if ctx.Err() != nil {
				return res
			}
			r.handleMessage(ctx, m, &res)
		}
	}
	return res
}

func (r *Relay) handleMessage(ctx context.Context, m models.MessagingEvent, res *BatchResult) {
	if m.Sender.ID == "" || m.Message == nil || strings.TrimSpace(m.Message.Text) == "" || m.Message.IsEcho {
		res.Skipped++
		return
	}
	log := r.log.WithUser(m.Sender.ID)

	if r.dedup != nil && m.Message.MID != "" {
		first, err := r.dedup.FirstSeen(ctx, m.Message.MID)
		if err != nil {
			// 去重不可用时宁可重复回复，也不丢消息。
			log.WithErr(err).Warn("消息去重失败")
		} else if !first {
			res.Duplicate++
			return
		}
	}
	if r.limiter != nil && !r.limiter.Allow(m.Sender.ID) {
		log.Warn("发送者消息过于频繁，已丢弃")
		res.Limited++
		return
	}

	answer := r.answerer.Answer(ctx, m.Message.Text)
	if err := r.deliver(ctx, m.Sender.ID, answer); err != nil {
		log.WithErr(err).WithPayload(map[string]interface{}{"mid": m.Message.MID}).Error("发送回复失败")
		res.Failed++
		return
	}
	res.Delivered++
}

// deliver 在发送前读取最新的访问令牌。
func (r *Relay) deliver(ctx context.Context, recipientID, text string) error {
	cfg, err := r.configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.sender.Send(sendCtx, cfg.PageAccessToken, models.OutboundMessage{RecipientID: recipientID, Text: text})
}
