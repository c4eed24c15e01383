package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// CacheConfig 用于配置LRU缓存的行为。
type CacheConfig struct {
	// Capacity 是缓存的最大元素数量，必须大于 0。
	Capacity int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
	// Now 返回当前时间，为空时使用 time.Now。测试中可替换。
	Now func() time.Time
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	expiration time.Time
}

// LRUCache 是一个支持泛型、带 TTL 且线程安全的LRU缓存。
// 消息去重和按发送者限流都用它来限制内存占用。
type LRUCache[K comparable, V any] struct {
	config CacheConfig
	ll     *list.List
	cache  map[K]*list.Element
	lock   sync.Mutex
}

// NewLRU 使用指定的配置创建一个LRU缓存实例。
func NewLRU[K comparable, V any](config CacheConfig) (*LRUCache[K, V], error) {
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("Capacity 必须大于 0")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &LRUCache[K, V]{
		config: config,
		ll:     list.New(),
		cache:  make(map[K]*list.Element),
	}, nil
}

// Get 根据键获取一个值，过期的元素视为不存在。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if e, ok := c.liveLocked(key); ok {
		c.ll.MoveToFront(e)
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put 添加或覆盖一个键值对，并刷新其 TTL。
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if e, ok := c.cache[key]; ok {
		ent := e.Value.(*entry[K, V])
		ent.value = value
		ent.expiration = c.expiry()
		c.ll.MoveToFront(e)
		return
	}
	c.insertLocked(key, value)
}

// PutIfAbsent 仅在键不存在（或已过期）时写入，返回是否写入成功。
// 检查和写入在同一把锁下完成。
func (c *LRUCache[K, V]) PutIfAbsent(key K, value V) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.liveLocked(key); ok {
		return false
	}
	c.insertLocked(key, value)
	return true
}

// GetOrCreate 返回已有的值，不存在时调用 create 生成并写入。
func (c *LRUCache[K, V]) GetOrCreate(key K, create func() V) V {
	c.lock.Lock()
	defer c.lock.Unlock()

	if e, ok := c.liveLocked(key); ok {
		c.ll.MoveToFront(e)
		return e.Value.(*entry[K, V]).value
	}
	v := create()
	c.insertLocked(key, v)
	return v
}

// Delete 删除一个键。
func (c *LRUCache[K, V]) Delete(key K) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if e, ok := c.cache[key]; ok {
		c.removeElement(e)
	}
}

// Len 返回当前缓存中的条目数量，包括尚未被动淘汰的过期条目。
func (c *LRUCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ll.Len()
}

// liveLocked 查找未过期的元素，过期的元素会被顺手移除。
func (c *LRUCache[K, V]) liveLocked(key K) (*list.Element, bool) {
	e, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	ent := e.Value.(*entry[K, V])
	if c.config.TTL > 0 && !c.config.Now().Before(ent.expiration) {
		c.removeElement(e)
		return nil, false
	}
	return e, true
}

func (c *LRUCache[K, V]) insertLocked(key K, value V) {
	if e, ok := c.cache[key]; ok {
		c.removeElement(e)
	}
	c.cache[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value, expiration: c.expiry()})
	for c.ll.Len() > c.config.Capacity {
		c.removeElement(c.ll.Back())
	}
}

func (c *LRUCache[K, V]) expiry() time.Time {
	if c.config.TTL <= 0 {
		return time.Time{}
	}
	return c.config.Now().Add(c.config.TTL)
}

func (c *LRUCache[K, V]) removeElement(e *list.Element) {
	c.ll.Remove(e)
	delete(c.cache, e.Value.(*entry[K, V]).key)
}
