package llm

import (
	"AskBot/backend/go/internal/models"
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 访问 OpenAI 或任意兼容 Chat Completions 的服务。
type OpenAI struct {
	client *openai.Client
	opts   Options
}

// NewOpenAI 创建客户端。opts.BaseURL 为空时使用官方地址。
func NewOpenAI(apiKey string, opts Options) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), opts: opts}
}

// GenerateContentStream 以 SSE 流的方式读取回答。
func (o *OpenAI) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	messages := promptMessages(req.Content)
	if len(messages) == 0 {
		return nil, errors.New("openai: empty prompt")
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, o.chatRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	ch := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				send(ctx, ch, &models.GenerateContentResponse{Err: err})
				return
			}
			chunk := &models.GenerateContentResponse{ResponseID: resp.ID, ModelVersion: resp.Model}
			if len(resp.Choices) > 0 {
				chunk.Content = []models.Content{{
					Parts: []*models.Part{{Text: resp.Choices[0].Delta.Content}},
					Role:  models.SpeakerModel,
				}}
			}
			if !send(ctx, ch, chunk) {
				return
			}
		}
	}()
	return ch, nil
}

// Close 没有需要释放的资源，HTTP 连接由标准库连接池管理。
func (o *OpenAI) Close() error { return nil }

// chatRequest 组装 Chat Completions 请求，系统提示词放在最前。
func (o *OpenAI) chatRequest(prompt []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if o.opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.opts.SystemPrompt})
	}
	return openai.ChatCompletionRequest{
		Model:     o.opts.Model,
		Messages:  append(messages, prompt...),
		MaxTokens: o.opts.MaxOutputTokens,
		Stream:    true,
	}
}

// promptMessages 把内部消息转换为 Chat Completions 消息，跳过空文本。
func promptMessages(content []models.Content) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	for _, c := range content {
		role := openai.ChatMessageRoleUser
		if c.Role == models.SpeakerModel {
			role = openai.ChatMessageRoleAssistant
		}
		for _, p := range c.Parts {
			if p == nil || p.Text == "" {
				continue
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: p.Text})
		}
	}
	return messages
}

var _ LLM = (*OpenAI)(nil)
