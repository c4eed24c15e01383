package service

import (
	"AskBot/backend/go/internal/llm"
	"AskBot/backend/go/internal/models"
	"context"
	"errors"
	"sync"
)

// fakeLLM 按脚本输出流式分片。
type fakeLLM struct {
	chunks    []string
	streamErr error
	openErr   error
	block     bool

	gotReq *models.GenerateContentRequest
	closed bool
}

func (f *fakeLLM) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	f.gotReq = req
	if f.openErr != nil {
		return nil, f.openErr
	}
	ch := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(ch)
		if f.block {
			<-ctx.Done()
			return
		}
		for _, c := range f.chunks {
			chunk := &models.GenerateContentResponse{Content: []models.Content{{Role: models.SpeakerModel, Parts: []*models.Part{{Text: c}}}}}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if f.streamErr != nil {
			select {
			case ch <- &models.GenerateContentResponse{Err: f.streamErr}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

func (f *fakeLLM) Close() error {
	f.closed = true
	return nil
}

// fakeFactory 记录每次创建客户端时使用的 API Key。
type fakeFactory struct {
	mu   sync.Mutex
	keys []string
	llm  *fakeLLM
	err  error
}

func (f *fakeFactory) New(_ context.Context, apiKey string) (llm.LLM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, apiKey)
	if f.err != nil {
		return nil, f.err
	}
	return f.llm, nil
}

func (f *fakeFactory) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.MissEvent
	err    error
}

func (p *recordingPublisher) PublishMiss(_ context.Context, e models.MissEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type sentMessage struct {
	Token string
	Msg   models.OutboundMessage
}

// fakeSender 记录发出的消息，failFor 中的接收者会发送失败。
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
	block   bool
}

func (s *fakeSender) Send(ctx context.Context, token string, msg models.OutboundMessage) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.failFor[msg.RecipientID] {
		return errors.New("send api unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{Token: token, Msg: msg})
	return nil
}

func (s *fakeSender) Sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

// echoAnswerer 原样回复问题。
type echoAnswerer struct{}

func (echoAnswerer) Answer(_ context.Context, q string) string { return "re: " + q }

func strPtr(s string) *string { return &s }
