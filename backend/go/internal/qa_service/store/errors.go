package store

import "errors"

var (
	// ErrInvalidInput 表示必填字段为空。
	ErrInvalidInput = errors.New("question and answer are required")
	// ErrInvalidIdentifier 表示问答 ID 格式不合法。
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrNotFound 表示记录不存在。
	ErrNotFound = errors.New("not found")
	// ErrNothingToUpdate 表示更新请求没有提供任何字段。
	ErrNothingToUpdate = errors.New("nothing to update")
)
