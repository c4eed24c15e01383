package llm

import (
	"AskBot/backend/go/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini 通过 generative-ai-go 访问 Gemini。
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini 用给定的 API Key 创建客户端。客户端持有连接，用完必须 Close。
func NewGemini(ctx context.Context, apiKey string, opts Options) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	return &Gemini{client: client, model: configureModel(client.GenerativeModel(opts.Model), opts)}, nil
}

func configureModel(m *genai.GenerativeModel, opts Options) *genai.GenerativeModel {
	if opts.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(opts.SystemPrompt)}}
	}
	if opts.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxOutputTokens))
	}
	// 只有一个候选时才能保证分片按顺序拼成完整回答。
	m.SetCandidateCount(1)
	return m
}

// GenerateContentStream 逐个转发迭代器返回的分片。迭代器中途出错时以带 Err 的分片结束。
func (g *Gemini) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	parts := toGenaiParts(req.Content)
	if len(parts) == 0 {
		return nil, errors.New("gemini: empty prompt")
	}
	iter := g.model.GenerateContentStream(ctx, parts...)

	ch := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				send(ctx, ch, &models.GenerateContentResponse{Err: err})
				return
			}
			if !send(ctx, ch, fromGenaiResponse(resp)) {
				return
			}
		}
	}()
	return ch, nil
}

// Close 释放底层连接。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// toGenaiParts 只保留非空文本。
func toGenaiParts(content []models.Content) []genai.Part {
	var parts []genai.Part
	for _, c := range content {
		for _, p := range c.Parts {
			if p != nil && p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
	}
	return parts
}

// fromGenaiResponse 取第一个候选的文本片段，其余类型的片段忽略。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	out := &models.GenerateContentResponse{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return out
	}
	var parts []*models.Part
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, &models.Part{Text: string(t)})
		}
	}
	out.Content = []models.Content{{Parts: parts, Role: models.SpeakerModel}}
	return out
}

var _ LLM = (*Gemini)(nil)
