package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionLocker guards against concurrent checkouts for the same session.
// Acquire is fail-fast: it reports false instead of waiting when the session
// is already mid-checkout, because blocking would hold the caller across an
// unbounded chain of network calls.
type SessionLocker interface {
	Acquire(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
}

// NewMemoryLocker constructs an in-process session locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{active: make(map[string]struct{})}
}

// MemoryLocker is a mutex-guarded set of sessions currently executing a
// checkout. It is local to one process: it does not provide mutual exclusion
// across replicas behind a load balancer (use RedisLocker for that).
type MemoryLocker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func (l *MemoryLocker) Acquire(_ context.Context, sessionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.active[sessionID]; held {
		return false, nil
	}
	l.active[sessionID] = struct{}{}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, sessionID)
	return nil
}

// RedisLockClient is the minimal client surface used by RedisLocker.
type RedisLockClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewRedisLocker constructs a Redis-leased session locker. The TTL bounds how
// long a crashed process can keep a session locked; it should comfortably
// exceed the longest expected checkout call.
func NewRedisLocker(client RedisLockClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: "checkout:lock:",
		ttl:       ttl,
	}
}

// RedisLocker implements SessionLocker with a SETNX lease, giving mutual
// exclusion across coordinator replicas.
type RedisLocker struct {
	client    RedisLockClient
	keyPrefix string
	ttl       time.Duration
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID string) (bool, error) {
	return l.client.SetNX(ctx, l.keyPrefix+sessionID, 1, l.ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, sessionID string) error {
	return l.client.Del(ctx, l.keyPrefix+sessionID).Err()
}
