package llm

import (
	"AskBot/backend/go/internal/config"
	"AskBot/backend/go/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
)

// LLM 是生成式回答的提供商客户端。回答总是以流的方式读取。
type LLM interface {
	// GenerateContentStream 返回的通道在流结束时关闭；若流异常结束，最后一个分片的 Err 非空。
	GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error)
	Close() error
}

// Options 是与提供商无关的生成参数。
type Options struct {
	Model           string
	SystemPrompt    string
	MaxOutputTokens int
	BaseURL         string // 仅用于 OpenAI 兼容接口
}

// Factory 用调用时刻的 API Key 创建客户端。凭证可以在运行时修改，所以客户端不做缓存，
// 每次生成都重新创建，用完即关闭。
type Factory func(ctx context.Context, apiKey string) (LLM, error)

// NewFactory 根据提供商配置返回对应的客户端工厂。
func NewFactory(cfg config.GenerationConfig) (Factory, error) {
	opts := Options{
		Model:           cfg.Model,
		SystemPrompt:    cfg.SystemPrompt,
		MaxOutputTokens: cfg.MaxOutputTokens,
		BaseURL:         cfg.BaseURL,
	}
	switch cfg.Provider {
	case "gemini":
		return func(ctx context.Context, apiKey string) (LLM, error) {
			return NewGemini(ctx, apiKey, opts)
		}, nil
	case "openai":
		return func(_ context.Context, apiKey string) (LLM, error) {
			return NewOpenAI(apiKey, opts), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// ErrEmptyCompletion 表示流正常结束但没有产生任何文本。
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// Collect 按到达顺序拼接流式分片。流异常结束或 ctx 结束时返回错误，并丢弃已收到的部分文本。
func Collect(ctx context.Context, stream <-chan *models.GenerateContentResponse) (string, error) {
	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				if b.Len() == 0 {
					return "", ErrEmptyCompletion
				}
				return b.String(), nil
			}
			if chunk == nil {
				continue
			}
			if chunk.Err != nil {
				return "", chunk.Err
			}
			b.WriteString(chunk.Text())
		}
	}
}

// send 把分片写入通道，消费者放弃时不会阻塞生产者。
func send(ctx context.Context, ch chan<- *models.GenerateContentResponse, resp *models.GenerateContentResponse) bool {
	select {
	case ch <- resp:
		return true
	case <-ctx.Done():
		return false
	}
}
