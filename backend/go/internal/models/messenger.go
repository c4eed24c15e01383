package models

// WebhookEvent 是 Messenger 平台推送的一批事件。
type WebhookEvent struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry 对应一个主页在一次推送中的事件集合。
type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent 是单条消息事件。
type MessagingEvent struct {
	Sender    Participant     `json:"sender"`
	Recipient Participant     `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *InboundMessage `json:"message,omitempty"`
}

// Participant 标识消息的发送方或接收方。
type Participant struct {
	ID string `json:"id"`
}

// InboundMessage 是用户发来的消息内容。
type InboundMessage struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo,omitempty"`
}

// OutboundMessage 是通过 Send API 发出的文本回复。
type OutboundMessage struct {
	RecipientID string
	Text        string
}
