package identity

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/btree"
)

// Store is a key/value store whose entries expire.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get reports false for missing and expired keys.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	// Take returns and removes key in one step. Of concurrent callers at
	// most one sees ok.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	// Incr atomically increments the integer stored at key, starting from
	// zero, and sets its lifetime to ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type entry struct {
	key       string
	value     []byte
	expiresAt int64
}

type expiryItem struct {
	at   int64
	slot int
}

func expiryLess(a, b expiryItem) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.slot < b.slot
}

// MemoryStore keeps at most capacity entries in a fixed arena. When full,
// the entry closest to expiry is evicted to make room.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	arena    []entry
	free     []int
	index    map[string]int
	expiry   *btree.BTreeG[expiryItem]
	now      func() time.Time
}

// NewMemoryStore creates a store bounded to capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryStore{
		capacity: capacity,
		arena:    make([]entry, 0, capacity),
		index:    make(map[string]int, capacity),
		expiry:   btree.NewBTreeG(expiryLess),
		now:      time.Now,
	}
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set(key, value, ttl)
	return nil
}

// set stores key. m.mu must be held.
func (m *MemoryStore) set(key string, value []byte, ttl time.Duration) {
	at := m.now().Add(ttl).UnixNano()
	if slot, ok := m.index[key]; ok {
		m.expiry.Delete(expiryItem{at: m.arena[slot].expiresAt, slot: slot})
		m.arena[slot].value = value
		m.arena[slot].expiresAt = at
		m.expiry.Set(expiryItem{at: at, slot: slot})
		return
	}

	if len(m.index) >= m.capacity {
		if oldest, ok := m.expiry.PopMin(); ok {
			m.release(oldest.slot)
		}
	}

	var slot int
	if n := len(m.free); n > 0 {
		slot = m.free[n-1]
		m.free = m.free[:n-1]
		m.arena[slot] = entry{key: key, value: value, expiresAt: at}
	} else {
		slot = len(m.arena)
		m.arena = append(m.arena, entry{key: key, value: value, expiresAt: at})
	}
	m.index[key] = slot
	m.expiry.Set(expiryItem{at: at, slot: slot})
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	return m.arena[slot].value, true, nil
}

func (m *MemoryStore) Take(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	value := m.arena[slot].value
	m.expiry.Delete(expiryItem{at: m.arena[slot].expiresAt, slot: slot})
	m.release(slot)
	return value, true, nil
}

func (m *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	if slot, ok := m.live(key); ok {
		var err error
		if n, err = strconv.ParseInt(string(m.arena[slot].value), 10, 64); err != nil {
			return 0, err
		}
	}
	n++
	m.set(key, []byte(strconv.FormatInt(n, 10)), ttl)
	return n, nil
}

// live returns the slot of an unexpired key, dropping it if it has
// expired. m.mu must be held.
func (m *MemoryStore) live(key string) (int, bool) {
	slot, ok := m.index[key]
	if !ok {
		return 0, false
	}
	e := m.arena[slot]
	if e.expiresAt <= m.now().UnixNano() {
		m.expiry.Delete(expiryItem{at: e.expiresAt, slot: slot})
		m.release(slot)
		return 0, false
	}
	return slot, true
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot, ok := m.index[key]; ok {
		m.expiry.Delete(expiryItem{at: m.arena[slot].expiresAt, slot: slot})
		m.release(slot)
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.index)
}

// Sweep removes every expired entry and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UnixNano()
	removed := 0
	for {
		item, ok := m.expiry.Min()
		if !ok || item.at > now {
			return removed
		}
		m.expiry.PopMin()
		m.release(item.slot)
		removed++
	}
}

// RunJanitor sweeps on every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// release frees slot. The caller has already removed its expiry item.
func (m *MemoryStore) release(slot int) {
	delete(m.index, m.arena[slot].key)
	m.arena[slot] = entry{}
	m.free = append(m.free, slot)
}

// RedisStore keeps entries in Redis with native expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *RedisStore) Take(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.GetDel(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, r.prefix+key)
		pipe.Expire(ctx, r.prefix+key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
