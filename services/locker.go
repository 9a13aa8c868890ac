package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OrderLocker serializes mutations of a single order. Lock blocks until the
// order is free, ctx is done or the locker's timeout elapses, and returns the
// release function on success.
type OrderLocker interface {
	Lock(ctx context.Context, orderID uint) (func(), error)
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// MemoryOrderLocker is an in-process keyed lock. Entries are dropped once no
// caller holds or waits for them.
type MemoryOrderLocker struct {
	mu      sync.Mutex
	entries map[uint]*lockEntry
	timeout time.Duration
}

// NewMemoryOrderLocker creates an in-process locker. A non-positive timeout
// waits until ctx is done.
func NewMemoryOrderLocker(timeout time.Duration) *MemoryOrderLocker {
	return &MemoryOrderLocker{
		entries: make(map[uint]*lockEntry),
		timeout: timeout,
	}
}

// Lock acquires the lock for orderID
func (l *MemoryOrderLocker) Lock(ctx context.Context, orderID uint) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[orderID]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(orderID, entry)
		return nil, lockError(orderID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.unref(orderID, entry)
		})
	}, nil
}

func (l *MemoryOrderLocker) unref(orderID uint, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, orderID)
	}
}

// held reports how many callers hold or wait on orderID
func (l *MemoryOrderLocker) held(orderID uint) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.entries[orderID]; ok {
		return entry.refs
	}
	return 0
}

// releaseScript deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOrderLocker is a lock shared between API instances. Each lock is a key
// set with SET NX PX holding a random token; release deletes the key only
// while the token still matches.
type RedisOrderLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	timeout   time.Duration
	retry     time.Duration
}

// RedisLockerOption configures a RedisOrderLocker
type RedisLockerOption func(*RedisOrderLocker)

// WithLockTTL sets how long a lock survives if its holder dies
func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisOrderLocker) {
		l.ttl = ttl
	}
}

// WithLockRetry sets the polling interval while waiting for a held lock
func WithLockRetry(interval time.Duration) RedisLockerOption {
	return func(l *RedisOrderLocker) {
		l.retry = interval
	}
}

// WithLockKeyPrefix sets the key namespace
func WithLockKeyPrefix(prefix string) RedisLockerOption {
	return func(l *RedisOrderLocker) {
		l.keyPrefix = prefix
	}
}

// NewRedisOrderLocker creates a locker using an existing Redis client
func NewRedisOrderLocker(client *redis.Client, timeout time.Duration, opts ...RedisLockerOption) *RedisOrderLocker {
	l := &RedisOrderLocker{
		client:    client,
		keyPrefix: "orders:lock:",
		ttl:       30 * time.Second,
		timeout:   timeout,
		retry:     50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the Redis key guarding orderID
func (l *RedisOrderLocker) Key(orderID uint) string {
	return l.keyPrefix + strconv.FormatUint(uint64(orderID), 10)
}

// Lock acquires the lock for orderID, polling until it is free
func (l *RedisOrderLocker) Lock(ctx context.Context, orderID uint) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	key := l.Key(orderID)
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to acquire order lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, lockError(orderID, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}

func lockError(orderID uint, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewDomainError(CodeLockTimeout, fmt.Sprintf("Order %d is being modified, try again", orderID))
	}
	return err
}
