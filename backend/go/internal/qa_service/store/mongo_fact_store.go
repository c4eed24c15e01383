package store

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/normalize"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFactStore 是基于 MongoDB 的 FactStore 实现。
type MongoFactStore struct {
	collection *mongo.Collection
}

// NewMongoFactStore 创建一个新的 MongoFactStore。
func NewMongoFactStore(db *mongo.Database, collectionName string) *MongoFactStore {
	return &MongoFactStore{
		collection: db.Collection(collectionName),
	}
}

// EnsureIndexes 为规范键建立普通索引。
// 这里不用唯一索引：修改问题文本允许产生重复的规范键。
func (s *MongoFactStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "normalized_question", Value: 1}},
		Options: options.Index().SetName("normalized_question_1"),
	})
	if err != nil {
		return fmt.Errorf("创建 normalized_question 索引失败: %w", err)
	}
	return nil
}

// UpsertIfAbsent 用一次带 $setOnInsert 的 upsert 完成"不存在才插入"，只需一次往返。
func (s *MongoFactStore) UpsertIfAbsent(ctx context.Context, question, answer string) (UpsertResult, error) {
	if err := validatePair(question, answer); err != nil {
		return UpsertResult{}, err
	}
	normalized := normalize.Question(question)
	now := time.Now().UTC()

	filter := bson.M{"normalized_question": normalized}
	update := bson.M{
		"$setOnInsert": bson.M{
			"original_question":   question,
			"normalized_question": normalized,
			"answer":              answer,
			"created_at":          now,
			"updated_at":          now,
		},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("写入问答失败: %w", err)
	}
	if res.UpsertedID == nil {
		return UpsertResult{Inserted: false}, nil
	}
	out := UpsertResult{Inserted: true}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		out.ID = oid.Hex()
	}
	return out, nil
}

// Update 按 ID 做 $set 部分更新。
func (s *MongoFactStore) Update(ctx context.Context, id string, newQuestion, newAnswer *string) error {
	set := updateFields(newQuestion, newAnswer)
	if set == nil {
		return ErrNothingToUpdate
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidIdentifier
	}
	set["updated_at"] = time.Now().UTC()

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("更新问答失败: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Lookup 按规范键精确查找。
func (s *MongoFactStore) Lookup(ctx context.Context, normalizedKey string) (*models.Fact, error) {
	var fact models.Fact
	err := s.collection.FindOne(ctx, bson.M{"normalized_question": normalizedKey}).Decode(&fact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询问答失败: %w", err)
	}
	return &fact, nil
}

// Get 按 ID 读取一条问答。
func (s *MongoFactStore) Get(ctx context.Context, id string) (*models.Fact, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	var fact models.Fact
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&fact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取问答失败: %w", err)
	}
	return &fact, nil
}

// updateFields 把可选字段转换为 $set 文档，没有任何字段时返回 nil。
func updateFields(newQuestion, newAnswer *string) bson.M {
	if newQuestion == nil && newAnswer == nil {
		return nil
	}
	set := bson.M{}
	if newQuestion != nil {
		set["original_question"] = *newQuestion
		set["normalized_question"] = normalize.Question(*newQuestion)
	}
	if newAnswer != nil {
		set["answer"] = *newAnswer
	}
	return set
}

var _ FactStore = (*MongoFactStore)(nil)
