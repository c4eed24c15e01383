package store

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/normalize"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strPtr(s string) *string { return &s }

func TestMemoryFactStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFactStore()

	res, err := s.UpsertIfAbsent(ctx, "  What is Go ?", "A language")
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.NotEmpty(t, res.ID)

	fact, err := s.Lookup(ctx, normalize.Question("what is go?"))
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, "A language", fact.Answer)
	assert.Equal(t, "  What is Go ?", fact.OriginalQuestion)
	assert.Equal(t, "what is go?", fact.NormalizedQuestion)
}

func TestMemoryFactStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFactStore()

	first, err := s.UpsertIfAbsent(ctx, "Hi?", "hello")
	require.NoError(t, err)
	second, err := s.UpsertIfAbsent(ctx, "hi ?", "other answer")
	require.NoError(t, err)

	assert.True(t, first.Inserted)
	assert.False(t, second.Inserted)
	assert.Equal(t, 1, s.Len())

	fact, err := s.Lookup(ctx, "hi?")
	require.NoError(t, err)
	assert.Equal(t, "hello", fact.Answer, "existing answer must not be overwritten")
}

func TestMemoryFactStore_UpsertRejectsBlank(t *testing.T) {
	s := NewMemoryFactStore()
	_, err := s.UpsertIfAbsent(context.Background(), "   ", "a")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.UpsertIfAbsent(context.Background(), "q", "\t")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryFactStore_LookupMiss(t *testing.T) {
	fact, err := NewMemoryFactStore().Lookup(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, fact)
}

func TestMemoryFactStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFactStore()
	res, err := s.UpsertIfAbsent(ctx, "old question", "old answer")
	require.NoError(t, err)

	t.Run("nothing to update", func(t *testing.T) {
		err := s.Update(ctx, res.ID, nil, nil)
		assert.ErrorIs(t, err, ErrNothingToUpdate)
		fact, _ := s.Get(ctx, res.ID)
		assert.Equal(t, "old answer", fact.Answer)
	})

	t.Run("invalid identifier", func(t *testing.T) {
		err := s.Update(ctx, "not-an-id", nil, strPtr("x"))
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})

	t.Run("not found", func(t *testing.T) {
		err := s.Update(ctx, primitive.NewObjectID().Hex(), nil, strPtr("x"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("answer only", func(t *testing.T) {
		require.NoError(t, s.Update(ctx, res.ID, nil, strPtr("new answer")))
		fact, err := s.Lookup(ctx, "old question")
		require.NoError(t, err)
		assert.Equal(t, "new answer", fact.Answer)
	})

	t.Run("question rederives key", func(t *testing.T) {
		require.NoError(t, s.Update(ctx, res.ID, strPtr("  New   Question ?"), nil))
		fact, err := s.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, "  New   Question ?", fact.OriginalQuestion)
		assert.Equal(t, "new question?", fact.NormalizedQuestion)

		old, err := s.Lookup(ctx, "old question")
		require.NoError(t, err)
		assert.Nil(t, old)
	})
}

func TestMemoryFactStore_UpdateMayCreateDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFactStore()
	a, _ := s.UpsertIfAbsent(ctx, "alpha", "1")
	_, _ = s.UpsertIfAbsent(ctx, "beta", "2")

	require.NoError(t, s.Update(ctx, a.ID, strPtr("beta"), nil))
	assert.Equal(t, 2, s.Len())

	fact, err := s.Lookup(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "1", fact.Answer, "lookup returns the earliest inserted match")
}

func TestMemoryFactStore_UpdateKeepsKeyIndexInOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFactStore()
	first, _ := s.UpsertIfAbsent(ctx, "alpha", "1")
	second, _ := s.UpsertIfAbsent(ctx, "beta", "2")
	third, _ := s.UpsertIfAbsent(ctx, "gamma", "3")

	require.NoError(t, s.Update(ctx, third.ID, strPtr("Beta"), nil))
	fact, err := s.Lookup(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "2", fact.Answer, "a later insert moved onto the key does not shadow the earlier one")

	require.NoError(t, s.Update(ctx, first.ID, strPtr("BETA"), nil))
	fact, err = s.Lookup(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "1", fact.Answer)

	for _, key := range []string{"alpha", "gamma"} {
		fact, err := s.Lookup(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, fact, key)
	}

	require.NoError(t, s.Update(ctx, second.ID, strPtr("alpha"), nil))
	fact, err = s.Lookup(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "2", fact.Answer)

	res, err := s.UpsertIfAbsent(ctx, "gamma", "4")
	require.NoError(t, err)
	assert.True(t, res.Inserted, "the vacated key accepts a new insert")
}

func TestMemoryFactStore_ConcurrentIdenticalInserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFactStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.UpsertIfAbsent(ctx, "Same question?", "answer")
			if err == nil && res.Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, s.Len())
}

func TestBulkUpsert_CountsByCause(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFactStore()

	res, err := BulkUpsert(ctx, s, []models.QAPair{
		{Question: "q1", Answer: "a1"},
		{Question: "", Answer: "a2"},
		{Question: "q1", Answer: "a3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Blank)
	assert.Equal(t, 0, res.Failed)

	fact, _ := s.Lookup(ctx, "q1")
	assert.Equal(t, "a1", fact.Answer)
}

type failingStore struct {
	FactStore
	failOn string
}

func (f failingStore) UpsertIfAbsent(ctx context.Context, q, a string) (UpsertResult, error) {
	if q == f.failOn {
		return UpsertResult{}, errors.New("boom")
	}
	return f.FactStore.UpsertIfAbsent(ctx, q, a)
}

func TestBulkUpsert_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	s := failingStore{FactStore: NewMemoryFactStore(), failOn: "bad"}

	res, err := BulkUpsert(ctx, s, []models.QAPair{
		{Question: "bad", Answer: "x"},
		{Question: "good", Answer: "y"},
		{Question: "  ", Answer: "   "},
	})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Inserted: 1, Failed: 1, Blank: 1}, res)
}

func TestBulkUpsert_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BulkUpsert(ctx, NewMemoryFactStore(), []models.QAPair{{Question: "q", Answer: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryConfigStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConfigStore()

	_, err := s.Peek(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	cfg, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultVerifyToken, cfg.VerifyToken)
	assert.Empty(t, cfg.PageAccessToken)
	assert.False(t, cfg.GenerationEnabled())

	assert.ErrorIs(t, s.Update(ctx, models.ConfigPatch{}), ErrNothingToUpdate)

	require.NoError(t, s.Update(ctx, models.ConfigPatch{PageAccessToken: strPtr("page-token")}))
	require.NoError(t, s.Update(ctx, models.ConfigPatch{GenAIAPIKey: strPtr("key-1")}))

	cfg, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultVerifyToken, cfg.VerifyToken)
	assert.Equal(t, "page-token", cfg.PageAccessToken)
	assert.Equal(t, "key-1", cfg.GenAIAPIKey)
}

func TestMemoryConfigStore_ConcurrentDisjointUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConfigStore()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.Update(ctx, models.ConfigPatch{VerifyToken: strPtr("v2")})
	}()
	go func() {
		defer wg.Done()
		_ = s.Update(ctx, models.ConfigPatch{GenAIAPIKey: strPtr("k2")})
	}()
	wg.Wait()

	cfg, err := s.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", cfg.VerifyToken)
	assert.Equal(t, "k2", cfg.GenAIAPIKey)
}
