package service

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/store"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFixture struct {
	facts    *store.MemoryFactStore
	configs  *store.MemoryConfigStore
	factory  *fakeFactory
	misses   *recordingPublisher
	resolver *Resolver
}

func newResolverFixture(t *testing.T, gen *fakeLLM, timeout time.Duration) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		facts:   store.NewMemoryFactStore(),
		configs: store.NewMemoryConfigStore(),
		factory: &fakeFactory{llm: gen},
		misses:  &recordingPublisher{},
	}
	f.resolver = NewResolver(f.facts, f.configs, f.factory.New, timeout, WithMissPublisher(f.misses))
	return f
}

func (f *resolverFixture) setKey(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, f.configs.Update(context.Background(), models.ConfigPatch{GenAIAPIKey: strPtr(key)}))
}

func TestResolver_KnowledgeBaseHit(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t, &fakeLLM{}, time.Second)
	_, err := f.facts.UpsertIfAbsent(ctx, "Giờ mở cửa?", "8h - 17h")
	require.NoError(t, err)

	answer, err := f.resolver.Resolve(ctx, "  giờ MỞ cửa ?")
	require.NoError(t, err)
	assert.Equal(t, "8h - 17h", answer)
	assert.Empty(t, f.factory.Keys(), "generation must not run on a hit")
	assert.Empty(t, f.misses.events)
}

func TestResolver_NotConfigured(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t, &fakeLLM{}, time.Second)

	_, err := f.resolver.Resolve(ctx, "unknown question")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)

	assert.Equal(t, NotConfiguredAnswer, f.resolver.Answer(ctx, "unknown question"))
	assert.Empty(t, f.factory.Keys())
}

func TestResolver_GeneratesWithCurrentKey(t *testing.T) {
	ctx := context.Background()
	gen := &fakeLLM{chunks: []string{"Xin ", "chào", "!"}}
	f := newResolverFixture(t, gen, time.Second)
	f.setKey(t, "key-1")

	answer, err := f.resolver.Resolve(ctx, "  Hello   THERE ?")
	require.NoError(t, err)
	assert.Equal(t, "Xin chào!", answer)
	assert.True(t, gen.closed, "per-call client must be closed")
	require.NotNil(t, gen.gotReq)
	assert.Equal(t, "  Hello   THERE ?", gen.gotReq.Content[0].Parts[0].Text, "generation receives the original text")

	f.setKey(t, "key-2")
	_, err = f.resolver.Resolve(ctx, "another")
	require.NoError(t, err)
	assert.Equal(t, []string{"key-1", "key-2"}, f.factory.Keys())
}

func TestResolver_PublishesMiss(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t, &fakeLLM{}, time.Second)
	f.misses.err = errors.New("broker down")

	_, _ = f.resolver.Resolve(ctx, "Where Is It ?")
	f.resolver.Answer(ctx, "Where is it?")

	require.Len(t, f.misses.events, 2)
	assert.Equal(t, "where is it?", f.misses.events[0].Normalized)
	assert.Equal(t, SourceAsk, f.misses.events[0].Source)
	assert.Equal(t, SourceMessenger, f.misses.events[1].Source)
}

func TestResolver_StreamFailureDiscardsPartialText(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("stream reset")
	f := newResolverFixture(t, &fakeLLM{chunks: []string{"partial "}, streamErr: cause}, time.Second)
	f.setKey(t, "k")

	answer, err := f.resolver.Resolve(ctx, "q")
	assert.Empty(t, answer)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, FallbackAnswer, f.resolver.Answer(ctx, "q"))
}

func TestResolver_FactoryAndOpenErrors(t *testing.T) {
	ctx := context.Background()

	f := newResolverFixture(t, nil, time.Second)
	f.factory.err = errors.New("bad key")
	f.setKey(t, "k")
	_, err := f.resolver.Resolve(ctx, "q")
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)

	f = newResolverFixture(t, &fakeLLM{openErr: errors.New("quota exceeded")}, time.Second)
	f.setKey(t, "k")
	_, err = f.resolver.Resolve(ctx, "q")
	assert.ErrorAs(t, err, &genErr)
}

func TestResolver_Timeout(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t, &fakeLLM{block: true}, 30*time.Millisecond)
	f.setKey(t, "k")

	start := time.Now()
	_, err := f.resolver.Resolve(ctx, "slow question")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, FallbackAnswer, f.resolver.Answer(ctx, "slow question"))
}

func TestResolver_CallerCancellation(t *testing.T) {
	f := newResolverFixture(t, &fakeLLM{block: true}, time.Minute)
	f.setKey(t, "k")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := f.resolver.Resolve(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_BlankQuestion(t *testing.T) {
	f := newResolverFixture(t, &fakeLLM{}, time.Second)
	_, err := f.resolver.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
