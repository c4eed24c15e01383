package messenger

import (
	"AskBot/backend/go/internal/models"
	pkghttp "AskBot/backend/go/pkg/http"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"
)

// ErrNoAccessToken 表示配置记录中还没有主页访问令牌，消息无法发出。
var ErrNoAccessToken = errors.New("page access token is not configured")

// SendError 表示 Send API 返回了非 2xx 响应。
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send api returned status %d: %s", e.StatusCode, e.Body)
}

// Sender 把一条文本回复发给 Messenger 用户。
// accessToken 由调用方在每次发送前从配置记录读取，实现不得缓存。
type Sender interface {
	Send(ctx context.Context, accessToken string, msg models.OutboundMessage) error
}

// Doer 是 Client 依赖的 HTTP 能力，由 pkg/http.Client 实现。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 调用 Graph Send API。
type Client struct {
	endpoint string
	doer     Doer
	maxChars int
}

// NewClient 创建 Send API 客户端。maxChars 为单条消息允许的最大字符数，超出部分被截断。
func NewClient(endpoint string, doer Doer, maxChars int) *Client {
	return &Client{endpoint: endpoint, doer: doer, maxChars: maxChars}
}

type sendRequest struct {
	Recipient     recipient   `json:"recipient"`
	MessagingType string      `json:"messaging_type"`
	Message       messageBody `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type messageBody struct {
	Text string `json:"text"`
}

// Send 发出一次请求，不重试。
func (c *Client) Send(ctx context.Context, accessToken string, msg models.OutboundMessage) error {
	if accessToken == "" {
		return ErrNoAccessToken
	}
	payload, err := json.Marshal(sendRequest{
		Recipient:     recipient{ID: msg.RecipientID},
		MessagingType: "RESPONSE",
		Message:       messageBody{Text: Truncate(msg.Text, c.maxChars)},
	})
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("无效的 Send API 地址: %w", err)
	}
	q := endpoint.Query()
	q.Set("access_token", accessToken)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("调用 Send API 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SendError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Truncate 按字符（而非字节）截断文本，不会切开多字节字符。max <= 0 表示不截断。
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

var (
	_ Sender = (*Client)(nil)
	_ Doer   = (*pkghttp.Client)(nil)
)
