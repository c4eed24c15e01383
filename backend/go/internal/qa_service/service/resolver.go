// Package service 实现问答服务的核心流程：知识库优先的回答、Messenger 消息转发以及批量导入。
package service

import (
	"AskBot/backend/go/internal/llm"
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/normalize"
	"AskBot/backend/go/internal/qa_service/store"
	"AskBot/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// NotConfiguredAnswer 是知识库未命中且未配置生成服务时返回给聊天用户的固定回复。
	NotConfiguredAnswer = "Xin lỗi, tôi không tìm thấy câu trả lời."
	// FallbackAnswer 是生成失败或超时时返回给聊天用户的回复。
	FallbackAnswer = "Xin lỗi, hệ thống đang bận. Vui lòng thử lại sau."
)

// 未命中事件的来源
const (
	SourceAsk       = "ask"
	SourceMessenger = "messenger"
)

// MissPublisher 接收知识库未命中的问题，供运营人员补充问答。
type MissPublisher interface {
	PublishMiss(ctx context.Context, event models.MissEvent) error
}

// Resolver 先查知识库，未命中时用当前配置的 API Key 调用生成服务。
type Resolver struct {
	facts   store.FactStore
	configs store.ConfigStore
	factory llm.Factory
	timeout time.Duration
	misses  MissPublisher
	log     *logger.Logger
}

// ResolverOption 配置 Resolver 的可选能力。
type ResolverOption func(*Resolver)

// WithMissPublisher 启用未命中事件发布。
func WithMissPublisher(p MissPublisher) ResolverOption {
	return func(r *Resolver) { r.misses = p }
}

// NewResolver 创建 Resolver。timeout 是单次生成（包括整个流）的时限。
func NewResolver(facts store.FactStore, configs store.ConfigStore, factory llm.Factory, timeout time.Duration, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		facts:   facts,
		configs: configs,
		factory: factory,
		timeout: timeout,
		log:     logger.New("qa_service", "", ""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve 返回问题的答案。
// 可能的错误：store.ErrInvalidInput、ErrGenerationUnavailable、ErrTimeout、*GenerationError，
// 以及存储层错误和调用方取消。
func (r *Resolver) Resolve(ctx context.Context, question string) (string, error) {
	return r.resolve(ctx, question, SourceAsk)
}

// Answer 是面向聊天用户的版本，总是返回一段可以直接发送的文本。
func (r *Resolver) Answer(ctx context.Context, question string) string {
	answer, err := r.resolve(ctx, question, SourceMessenger)
	switch {
	case err == nil:
		return answer
	case errors.Is(err, ErrGenerationUnavailable):
		return NotConfiguredAnswer
	default:
		r.log.WithErr(err).Warn("生成回答失败，返回兜底回复")
		return FallbackAnswer
	}
}

func (r *Resolver) resolve(ctx context.Context, question, source string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", store.ErrInvalidInput
	}
	key := normalize.Question(question)

	fact, err := r.facts.Lookup(ctx, key)
	if err != nil {
		return "", fmt.Errorf("查询知识库失败: %w", err)
	}
	if fact != nil {
		return fact.Answer, nil
	}
	r.publishMiss(ctx, question, key, source)

	// 每次生成前重新读取配置，保证使用最新的 API Key。
	cfg, err := r.configs.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("读取配置失败: %w", err)
	}
	if !cfg.GenerationEnabled() {
		return "", ErrGenerationUnavailable
	}
	return r.generate(ctx, cfg.GenAIAPIKey, question)
}

// generate 用原始问题文本调用生成服务，流式分片按顺序拼接。失败时不返回部分文本。
func (r *Resolver) generate(ctx context.Context, apiKey, question string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	client, err := r.factory(genCtx, apiKey)
	if err != nil {
		return "", r.classify(ctx, genCtx, err)
	}
	defer client.Close()

	stream, err := client.GenerateContentStream(genCtx, models.NewTextRequest(question))
	if err != nil {
		return "", r.classify(ctx, genCtx, err)
	}
	text, err := llm.Collect(genCtx, stream)
	if err != nil {
		return "", r.classify(ctx, genCtx, err)
	}
	return text, nil
}

// classify 区分调用方取消、生成超时和其他生成失败。
func (r *Resolver) classify(parent, genCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &GenerationError{Err: err}
}

func (r *Resolver) publishMiss(ctx context.Context, question, key, source string) {
	if r.misses == nil {
		return
	}
	event := models.MissEvent{
		Question:   question,
		Normalized: key,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	}
	if err := r.misses.PublishMiss(ctx, event); err != nil {
		r.log.WithErr(err).WithPayload(map[string]interface{}{"normalized_question": key}).Warn("发布未命中事件失败")
	}
}
