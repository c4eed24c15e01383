package store

import (
	"AskBot/backend/go/internal/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testNS = "qa_database.custom_qa"

func TestMongoFactStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("upsert inserts", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: oid}}}},
		))

		res, err := s.UpsertIfAbsent(ctx, "Hi ?", "hello")
		require.NoError(mt, err)
		assert.True(mt, res.Inserted)
		assert.Equal(mt, oid.Hex(), res.ID)
	})

	mt.Run("upsert reports existing", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		res, err := s.UpsertIfAbsent(ctx, "hi?", "hello again")
		require.NoError(mt, err)
		assert.False(mt, res.Inserted)
	})

	mt.Run("upsert rejects blank without round trip", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		_, err := s.UpsertIfAbsent(ctx, "", "a")
		assert.ErrorIs(mt, err, ErrInvalidInput)
	})

	mt.Run("lookup hit", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "original_question", Value: "Hi ?"},
			{Key: "normalized_question", Value: "hi?"},
			{Key: "answer", Value: "hello"},
		}))

		fact, err := s.Lookup(ctx, "hi?")
		require.NoError(mt, err)
		require.NotNil(mt, fact)
		assert.Equal(mt, oid, fact.ID)
		assert.Equal(mt, "hello", fact.Answer)
	})

	mt.Run("lookup miss", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNS, mtest.FirstBatch))

		fact, err := s.Lookup(ctx, "unknown")
		require.NoError(mt, err)
		assert.Nil(mt, fact)
	})

	mt.Run("update not found", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := s.Update(ctx, primitive.NewObjectID().Hex(), nil, strPtr("x"))
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update matched", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := s.Update(ctx, primitive.NewObjectID().Hex(), strPtr("New?"), strPtr("x"))
		assert.NoError(mt, err)
	})

	mt.Run("update validates before round trip", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		assert.ErrorIs(mt, s.Update(ctx, "zzz", nil, nil), ErrNothingToUpdate)
		assert.ErrorIs(mt, s.Update(ctx, "zzz", nil, strPtr("x")), ErrInvalidIdentifier)
	})

	mt.Run("get not found", func(mt *mtest.T) {
		s := NewMongoFactStore(mt.DB, "custom_qa")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNS, mtest.FirstBatch))

		_, err := s.Get(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoConfigStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get returns record", func(mt *mtest.T) {
		s := NewMongoConfigStore(mt.DB, "config")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: models.BotConfigID},
			{Key: "verify_token", Value: models.DefaultVerifyToken},
			{Key: "page_access_token", Value: ""},
			{Key: "genai_api_key", Value: "k"},
		}}))

		cfg, err := s.Get(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, models.DefaultVerifyToken, cfg.VerifyToken)
		assert.Equal(mt, "k", cfg.GenAIAPIKey)
	})

	mt.Run("peek missing", func(mt *mtest.T) {
		s := NewMongoConfigStore(mt.DB, "config")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "qa_database.config", mtest.FirstBatch))

		_, err := s.Peek(ctx)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update empty patch", func(mt *mtest.T) {
		s := NewMongoConfigStore(mt.DB, "config")
		assert.ErrorIs(mt, s.Update(ctx, models.ConfigPatch{}), ErrNothingToUpdate)
	})

	mt.Run("update", func(mt *mtest.T) {
		s := NewMongoConfigStore(mt.DB, "config")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		assert.NoError(mt, s.Update(ctx, models.ConfigPatch{GenAIAPIKey: strPtr("new")}))
	})
}

func TestConfigUpdateDoc_MergesOnlySuppliedFields(t *testing.T) {
	doc := configUpdateDoc(models.ConfigPatch{GenAIAPIKey: strPtr("k")})

	set, ok := doc["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "k", set["genai_api_key"])
	assert.NotContains(t, set, "verify_token")
	assert.NotContains(t, set, "page_access_token")

	onInsert, ok := doc["$setOnInsert"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, models.DefaultVerifyToken, onInsert["verify_token"])
	assert.Contains(t, onInsert, "page_access_token")
	assert.NotContains(t, onInsert, "genai_api_key")
}

func TestConfigUpdateDoc_AllFields(t *testing.T) {
	doc := configUpdateDoc(models.ConfigPatch{
		VerifyToken:     strPtr("v"),
		PageAccessToken: strPtr("p"),
		GenAIAPIKey:     strPtr("g"),
	})
	assert.NotContains(t, doc, "$setOnInsert")
}
