package models

import "time"

// BotConfigID 是唯一配置记录的固定 _id。
const BotConfigID = "default"

// DefaultVerifyToken 是配置记录首次创建时使用的 webhook 校验令牌。
const DefaultVerifyToken = "askbot_verify_token"

// BotConfig 保存所有可在运行时修改的外部服务凭证。
type BotConfig struct {
	ID              string    `bson:"_id" json:"-"`
	VerifyToken     string    `bson:"verify_token" json:"verify_token"`
	PageAccessToken string    `bson:"page_access_token" json:"page_access_token"` // Send API 的访问令牌
	GenAIAPIKey     string    `bson:"genai_api_key" json:"genai_api_key"`         // 为空表示不启用生成式回答
	UpdatedAt       time.Time `bson:"updated_at,omitempty" json:"-"`
}

// GenerationEnabled 报告是否配置了生成服务的凭证。
func (c *BotConfig) GenerationEnabled() bool {
	return c != nil && c.GenAIAPIKey != ""
}

// DefaultBotConfig 返回首次初始化时的配置记录。
func DefaultBotConfig() BotConfig {
	return BotConfig{
		ID:          BotConfigID,
		VerifyToken: DefaultVerifyToken,
	}
}

// ConfigPatch 是一次部分更新。nil 字段表示未提供，保持原值。
type ConfigPatch struct {
	VerifyToken     *string `json:"verify_token"`
	PageAccessToken *string `json:"page_access_token"`
	GenAIAPIKey     *string `json:"genai_api_key"`
}

// Empty 报告补丁是否没有任何字段。
func (p ConfigPatch) Empty() bool {
	return p.VerifyToken == nil && p.PageAccessToken == nil && p.GenAIAPIKey == nil
}

// Fields 以 bson 字段名返回所有被提供的字段。
func (p ConfigPatch) Fields() map[string]string {
	fields := make(map[string]string, 3)
	if p.VerifyToken != nil {
		fields["verify_token"] = *p.VerifyToken
	}
	if p.PageAccessToken != nil {
		fields["page_access_token"] = *p.PageAccessToken
	}
	if p.GenAIAPIKey != nil {
		fields["genai_api_key"] = *p.GenAIAPIKey
	}
	return fields
}

// Apply 把补丁合并到配置记录上。
func (p ConfigPatch) Apply(cfg *BotConfig) {
	if p.VerifyToken != nil {
		cfg.VerifyToken = *p.VerifyToken
	}
	if p.PageAccessToken != nil {
		cfg.PageAccessToken = *p.PageAccessToken
	}
	if p.GenAIAPIKey != nil {
		cfg.GenAIAPIKey = *p.GenAIAPIKey
	}
}
