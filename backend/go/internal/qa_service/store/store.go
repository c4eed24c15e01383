// Package store 持久化问答知识库和机器人配置记录。
package store

import (
	"AskBot/backend/go/internal/models"
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// UpsertResult 是 UpsertIfAbsent 的结果。Inserted 为 false 表示该问题已存在。
type UpsertResult struct {
	Inserted bool
	ID       string
}

// BulkResult 是批量写入的统计。Skipped 只统计"问题已存在"的行，空行计入 Blank，写入失败的行计入 Failed。
type BulkResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Blank    int `json:"blank"`
	Failed   int `json:"failed"`
}

// FactStore 定义了问答知识库的持久化接口。
type FactStore interface {
	// UpsertIfAbsent 在规范键不存在时插入问答；已存在时不覆盖答案。
	UpsertIfAbsent(ctx context.Context, question, answer string) (UpsertResult, error)
	// Update 按 ID 部分更新。修改问题会重新计算规范键，不做去重。
	Update(ctx context.Context, id string, newQuestion, newAnswer *string) error
	// Lookup 按规范键精确查找，未命中时返回 nil, nil。
	Lookup(ctx context.Context, normalizedKey string) (*models.Fact, error)
	// Get 按 ID 读取。
	Get(ctx context.Context, id string) (*models.Fact, error)
}

// ConfigStore 定义了唯一配置记录的持久化接口。
type ConfigStore interface {
	// Get 读取配置记录，不存在时以默认值创建。
	Get(ctx context.Context) (*models.BotConfig, error)
	// Peek 读取配置记录，不存在时返回 ErrNotFound。
	Peek(ctx context.Context) (*models.BotConfig, error)
	// Update 只修改补丁中提供的字段。
	Update(ctx context.Context, patch models.ConfigPatch) error
}

// BulkUpsert 按顺序对每一行调用 UpsertIfAbsent，不会因为单行失败而中断。
// 只有 ctx 被取消时才提前返回已处理部分的统计。
func BulkUpsert(ctx context.Context, s FactStore, pairs []models.QAPair) (BulkResult, error) {
	var res BulkResult
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		q, a := strings.TrimSpace(p.Question), strings.TrimSpace(p.Answer)
		if q == "" || a == "" {
			res.Blank++
			continue
		}
		out, err := s.UpsertIfAbsent(ctx, q, a)
		if err != nil {
			logrus.WithFields(logrus.Fields{"row": i, "error": err.Error()}).Warn("批量导入: 单行写入失败，已跳过")
			res.Failed++
			continue
		}
		if out.Inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

func validatePair(question, answer string) error {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return ErrInvalidInput
	}
	return nil
}
