package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "eventa/internal/bookings/errors"
	"eventa/pkg/logger"
	"eventa/pkg/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRetryInterval = 25 * time.Millisecond

// Locker hands out per-key leases. Acquire blocks until the lease is held,
// the wait bound passes or ctx is done. release is safe to call twice.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func waitContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, wait)
}

func lockTimeout(key string, err error) error {
	return fmt.Errorf("%w: %s: %v", bookingserrors.ErrLockTimeout, key, err)
}

// MemoryLocker serializes callers inside one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLock
	wait  time.Duration
}

type memoryLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*memoryLock),
		wait:  wait,
	}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ctx, cancel := waitContext(ctx, m.wait)
	defer cancel()

	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &memoryLock{ch: make(chan struct{}, 1)}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, lock)
		return nil, lockTimeout(key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.ch
			m.unref(key, lock)
		})
	}, nil
}

func (m *MemoryLocker) unref(key string, lock *memoryLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, key)
	}
}

// Len reports how many keys are currently tracked.
func (m *MemoryLocker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker holds a SET NX lease per key, shared by every instance
// talking to the same Redis. The TTL bounds how long a crashed holder can
// block the key.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	log    *logger.Logger
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  defaultRetryInterval,
		log:    log,
	}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ctx, cancel := waitContext(ctx, r.wait)
	defer cancel()

	token := uuid.NewString()
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, lockTimeout(key, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire redis lock %s: %w", key, err)
		}
		if ok {
			return r.releaseFunc(key, token), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, lockTimeout(key, ctx.Err())
		}
	}
}

func (r *RedisLocker) releaseFunc(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			// Only the holder's token deletes the key; an expired lease
			// taken over by another caller is left alone.
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
				r.log.Warn("Failed to release admission lock, held until TTL", "key", key, "ttl", r.ttl, "store", "redis", "error", err)
			}
		})
	}
}

// LockStore persists advisory lock documents.
type LockStore interface {
	// Insert returns bookingserrors.ErrLockHeld when the key is taken.
	Insert(ctx context.Context, lock *model.AdmissionLock) error
	DeleteExpired(ctx context.Context, id string, now time.Time) error
	Release(ctx context.Context, id, token string) error
}

// MongoLocker keeps leases as documents in a collection with a unique _id.
// Expired leases are removed before each attempt, and a TTL index cleans up
// after crashed holders.
type MongoLocker struct {
	store LockStore
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
	now   func() time.Time
	log   *logger.Logger
}

func NewMongoLocker(store LockStore, ttl, wait time.Duration, log *logger.Logger) *MongoLocker {
	return &MongoLocker{
		store: store,
		ttl:   ttl,
		wait:  wait,
		retry: defaultRetryInterval,
		now:   time.Now,
		log:   log,
	}
}

func (m *MongoLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ctx, cancel := waitContext(ctx, m.wait)
	defer cancel()

	token := uuid.NewString()
	ticker := time.NewTicker(m.retry)
	defer ticker.Stop()

	for {
		now := m.now().UTC()
		if err := m.store.DeleteExpired(ctx, key, now); err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to clear expired lock %s: %w", key, err)
		}

		err := m.store.Insert(ctx, &model.AdmissionLock{
			ID:        key,
			Token:     token,
			ExpiresAt: now.Add(m.ttl),
			CreatedAt: now,
		})
		if err == nil {
			return m.releaseFunc(key, token), nil
		}
		if ctx.Err() != nil {
			return nil, lockTimeout(key, ctx.Err())
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, lockTimeout(key, ctx.Err())
		}
	}
}

func (m *MongoLocker) releaseFunc(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := m.store.Release(ctx, key, token); err != nil {
				m.log.Warn("Failed to release admission lock, held until TTL", "key", key, "ttl", m.ttl, "store", "mongo", "error", err)
			}
		})
	}
}
