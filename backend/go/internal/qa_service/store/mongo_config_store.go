package store

import (
	"AskBot/backend/go/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfigStore 把配置记录保存在 _id 为 "default" 的单个文档中。
type MongoConfigStore struct {
	collection *mongo.Collection
}

// NewMongoConfigStore 创建一个新的 MongoConfigStore。
func NewMongoConfigStore(db *mongo.Database, collectionName string) *MongoConfigStore {
	return &MongoConfigStore{
		collection: db.Collection(collectionName),
	}
}

// Get 用 findAndModify + $setOnInsert 原子地完成懒初始化，并发调用只会创建一条记录。
func (s *MongoConfigStore) Get(ctx context.Context) (*models.BotConfig, error) {
	defaults := models.DefaultBotConfig()
	update := bson.M{
		"$setOnInsert": bson.M{
			"verify_token":      defaults.VerifyToken,
			"page_access_token": defaults.PageAccessToken,
			"genai_api_key":     defaults.GenAIAPIKey,
			"updated_at":        time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var cfg models.BotConfig
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": models.BotConfigID}, update, opts).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	return &cfg, nil
}

// Peek 读取配置记录但不创建。
func (s *MongoConfigStore) Peek(ctx context.Context) (*models.BotConfig, error) {
	var cfg models.BotConfig
	err := s.collection.FindOne(ctx, bson.M{"_id": models.BotConfigID}).Decode(&cfg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	return &cfg, nil
}

// Update 只 $set 补丁中提供的字段，其余字段在记录不存在时以默认值插入。
// 并发修改不同字段互不覆盖。
func (s *MongoConfigStore) Update(ctx context.Context, patch models.ConfigPatch) error {
	if patch.Empty() {
		return ErrNothingToUpdate
	}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": models.BotConfigID}, configUpdateDoc(patch), options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("更新配置失败: %w", err)
	}
	return nil
}

// configUpdateDoc 构造更新文档。同一个字段不能同时出现在 $set 和 $setOnInsert 中。
func configUpdateDoc(patch models.ConfigPatch) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range patch.Fields() {
		set[k] = v
	}

	defaults := models.DefaultBotConfig()
	onInsert := bson.M{}
	for k, v := range map[string]string{
		"verify_token":      defaults.VerifyToken,
		"page_access_token": defaults.PageAccessToken,
		"genai_api_key":     defaults.GenAIAPIKey,
	} {
		if _, ok := set[k]; !ok {
			onInsert[k] = v
		}
	}

	doc := bson.M{"$set": set}
	if len(onInsert) > 0 {
		doc["$setOnInsert"] = onInsert
	}
	return doc
}

var _ ConfigStore = (*MongoConfigStore)(nil)
