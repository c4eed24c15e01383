package models

import "strings"

// SpeakerRole 定义了消息的发送者角色。
type SpeakerRole string

const (
	SpeakerUser  SpeakerRole = "user"
	SpeakerModel SpeakerRole = "model"
)

// Part 是消息的一个片段。这里只处理文本。
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content 是一条消息。
type Content struct {
	Parts []*Part     `json:"parts,omitempty"`
	Role  SpeakerRole `json:"role,omitempty"`
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content []Content `json:"content,omitempty"`
}

// NewTextRequest 构造只包含一条用户文本的请求。
func NewTextRequest(text string) *GenerateContentRequest {
	return &GenerateContentRequest{
		Content: []Content{{Role: SpeakerUser, Parts: []*Part{{Text: text}}}},
	}
}

// GenerateContentResponse 是一次完整响应，或流式响应中的一个分片。
// 流式场景下 Err 非空表示流异常结束，此前收到的分片不完整。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`
	ResponseID   string    `json:"responseId,omitempty"`
	ModelVersion string    `json:"modelVersion,omitempty"`
	Err          error     `json:"-"`
}

// Text 按顺序拼接响应中的所有文本片段。
func (r *GenerateContentResponse) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range r.Content {
		for _, p := range c.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
	}
	return b.String()
}
