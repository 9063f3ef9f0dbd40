package kiosk

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore is the durable storage the kiosk keeps between page
// loads.  It holds exactly one value: the visitor ID written on a
// successful or conflicting check-in, used to re-resolve the active
// visit after a reload.  Checkout and idle-exit clear it.
type SessionStore interface {
	// CurrentVisitor returns the stored visitor ID, or ok=false when
	// nothing is stored.
	CurrentVisitor(ctx context.Context) (id uint64, ok bool, err error)
	// SetCurrentVisitor stores the visitor ID, replacing any previous
	// value.
	SetCurrentVisitor(ctx context.Context, id uint64) error
	// Clear removes the stored visitor ID.  Clearing an empty store is
	// not an error.
	Clear(ctx context.Context) error
}

// RedisSessionStore keeps the current visitor ID in Redis under a
// per-kiosk key with a TTL, so an abandoned kiosk forgets its session
// even if the process never runs the idle-exit path (power cut,
// browser crash).
type RedisSessionStore struct {
	rdb     *redis.Client
	kioskID string
	ttl     time.Duration
}

// NewRedisSessionStore builds a store for one kiosk.  A zero ttl means
// the key never expires on its own.
func NewRedisSessionStore(rdb *redis.Client, kioskID string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, kioskID: kioskID, ttl: ttl}
}

func (s *RedisSessionStore) key() string { return "kiosk:current_visitor:" + s.kioskID }

func (s *RedisSessionStore) CurrentVisitor(ctx context.Context) (uint64, bool, error) {
	val, err := s.rdb.Get(ctx, s.key()).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		// A corrupted value is as good as no value; drop it.
		_ = s.rdb.Del(ctx, s.key()).Err()
		return 0, false, nil
	}
	return id, true, nil
}

func (s *RedisSessionStore) SetCurrentVisitor(ctx context.Context, id uint64) error {
	return s.rdb.Set(ctx, s.key(), strconv.FormatUint(id, 10), s.ttl).Err()
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key()).Err()
}

// MemorySessionStore is an in-process SessionStore for tests and for
// kiosks running without Redis.
type MemorySessionStore struct {
	mu  sync.Mutex
	id  uint64
	set bool
}

func NewMemorySessionStore() *MemorySessionStore { return &MemorySessionStore{} }

func (s *MemorySessionStore) CurrentVisitor(ctx context.Context) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.set, nil
}

func (s *MemorySessionStore) SetCurrentVisitor(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.set = id, true
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.set = 0, false
	return nil
}
