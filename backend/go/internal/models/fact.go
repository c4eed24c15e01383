package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fact 是知识库中的一条问答。NormalizedQuestion 永远由 OriginalQuestion 推导得出，不能单独设置。
type Fact struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OriginalQuestion   string             `bson:"original_question" json:"original_question"`
	NormalizedQuestion string             `bson:"normalized_question" json:"normalized_question"`
	Answer             string             `bson:"answer" json:"answer"`
	CreatedAt          time.Time          `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt          time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// QAPair 是一条待写入的原始问答，批量导入时逐行产生。
type QAPair struct {
	Question string
	Answer   string
}

// MissEvent 描述一次知识库未命中，供运营人员补充问答。
type MissEvent struct {
	Question   string    `json:"question"`
	Normalized string    `json:"normalized"`
	Source     string    `json:"source"` // "ask" 或 "messenger"
	OccurredAt time.Time `json:"occurred_at"`
}
