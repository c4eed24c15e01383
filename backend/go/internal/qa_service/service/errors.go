package service

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshakeRejected 表示 webhook 校验请求的 mode 或 verify_token 不匹配。
	ErrHandshakeRejected = errors.New("webhook handshake rejected")
	// ErrGenerationUnavailable 表示知识库未命中且没有配置生成服务的 API Key。
	ErrGenerationUnavailable = errors.New("generation is not configured")
	// ErrTimeout 表示生成调用超过了配置的时限。
	ErrTimeout = errors.New("generation timed out")
)

// GenerationError 包装生成服务的失败原因。
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError 表示导入文件结构不合法。Unreadable 为 true 时文件本身无法解析，否则是缺少必需的列等结构问题。
type ParseError struct {
	Reason     string
	Unreadable bool
	Err        error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }
