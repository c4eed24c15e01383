package store

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/normalize"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryFactStore 是进程内的 FactStore 实现，用于本地调试和测试。
// 插入在同一把锁下完成检查和写入，因此不会产生重复的规范键。
type MemoryFactStore struct {
	mu    sync.RWMutex
	facts map[primitive.ObjectID]*models.Fact
	// byKey 按规范键索引，切片按插入序号升序。
	byKey map[string][]primitive.ObjectID
	seq   map[primitive.ObjectID]uint64
	next  uint64
}

// NewMemoryFactStore 创建一个空的 MemoryFactStore。
func NewMemoryFactStore() *MemoryFactStore {
	return &MemoryFactStore{
		facts: make(map[primitive.ObjectID]*models.Fact),
		byKey: make(map[string][]primitive.ObjectID),
		seq:   make(map[primitive.ObjectID]uint64),
	}
}

func (s *MemoryFactStore) UpsertIfAbsent(_ context.Context, question, answer string) (UpsertResult, error) {
	if err := validatePair(question, answer); err != nil {
		return UpsertResult{}, err
	}
	normalized := normalize.Question(question)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(normalized) != nil {
		return UpsertResult{Inserted: false}, nil
	}
	now := time.Now().UTC()
	fact := &models.Fact{
		ID:                 primitive.NewObjectID(),
		OriginalQuestion:   question,
		NormalizedQuestion: normalized,
		Answer:             answer,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.facts[fact.ID] = fact
	s.next++
	s.seq[fact.ID] = s.next
	s.byKey[normalized] = append(s.byKey[normalized], fact.ID)
	return UpsertResult{Inserted: true, ID: fact.ID.Hex()}, nil
}

func (s *MemoryFactStore) Update(_ context.Context, id string, newQuestion, newAnswer *string) error {
	if newQuestion == nil && newAnswer == nil {
		return ErrNothingToUpdate
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidIdentifier
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fact, ok := s.facts[oid]
	if !ok {
		return ErrNotFound
	}
	if newQuestion != nil {
		s.reindexLocked(fact, normalize.Question(*newQuestion))
		fact.OriginalQuestion = *newQuestion
	}
	if newAnswer != nil {
		fact.Answer = *newAnswer
	}
	fact.UpdatedAt = time.Now().UTC()
	return nil
}

// Lookup 返回插入顺序中第一条匹配的问答，与 MongoDB 按自然顺序 findOne 的行为一致。
func (s *MemoryFactStore) Lookup(_ context.Context, normalizedKey string) (*models.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f := s.findLocked(normalizedKey); f != nil {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryFactStore) Get(_ context.Context, id string) (*models.Fact, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facts[oid]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

// Len 返回问答条数。
func (s *MemoryFactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

func (s *MemoryFactStore) findLocked(normalized string) *models.Fact {
	ids := s.byKey[normalized]
	if len(ids) == 0 {
		return nil
	}
	return s.facts[ids[0]]
}

// reindexLocked 把问答移到新的规范键下。新键的切片按插入顺序合并，
// 与 MongoDB 按自然顺序返回第一条匹配的行为保持一致。
func (s *MemoryFactStore) reindexLocked(fact *models.Fact, normalized string) {
	if fact.NormalizedQuestion == normalized {
		return
	}
	old := s.byKey[fact.NormalizedQuestion]
	for i, id := range old {
		if id == fact.ID {
			old = append(old[:i:i], old[i+1:]...)
			break
		}
	}
	if len(old) == 0 {
		delete(s.byKey, fact.NormalizedQuestion)
	} else {
		s.byKey[fact.NormalizedQuestion] = old
	}

	ids := s.byKey[normalized]
	pos := sort.Search(len(ids), func(i int) bool { return s.seq[ids[i]] > s.seq[fact.ID] })
	ids = append(ids, primitive.NilObjectID)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = fact.ID
	s.byKey[normalized] = ids
	fact.NormalizedQuestion = normalized
}

// MemoryConfigStore 是进程内的 ConfigStore 实现。
type MemoryConfigStore struct {
	mu  sync.Mutex
	cfg *models.BotConfig
}

// NewMemoryConfigStore 创建一个尚未初始化的 MemoryConfigStore。
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{}
}

func (s *MemoryConfigStore) Get(_ context.Context) (*models.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		def := models.DefaultBotConfig()
		def.UpdatedAt = time.Now().UTC()
		s.cfg = &def
	}
	cp := *s.cfg
	return &cp, nil
}

func (s *MemoryConfigStore) Peek(_ context.Context) (*models.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return nil, ErrNotFound
	}
	cp := *s.cfg
	return &cp, nil
}

func (s *MemoryConfigStore) Update(_ context.Context, patch models.ConfigPatch) error {
	if patch.Empty() {
		return ErrNothingToUpdate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		def := models.DefaultBotConfig()
		s.cfg = &def
	}
	patch.Apply(s.cfg)
	s.cfg.UpdatedAt = time.Now().UTC()
	return nil
}

var (
	_ FactStore   = (*MemoryFactStore)(nil)
	_ ConfigStore = (*MemoryConfigStore)(nil)
)
