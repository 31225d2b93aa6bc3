package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/PrathyushaPonnala/sales-prediction/internal/adapters/redis"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// Locker serializes forecast runs per product. Concurrent refreshes of the
// same product would interleave fit, artifact save, and forecast
// replacement; the lock makes one caller wait.
type Locker interface {
	// Acquire blocks until the product lock is held or ctx ends.
	// The returned func releases the lock.
	Acquire(ctx context.Context, productID string) (func(), error)
}

// KeyedMutex is an in-process Locker for single-replica deployments
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an in-process per-key lock set
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Acquire blocks until the product lock is held or ctx ends
func (k *KeyedMutex) Acquire(ctx context.Context, productID string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[productID]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[productID] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.put(productID, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.ch
		k.put(productID, l)
	}, nil
}

// put drops one reference, removing idle locks from the map
func (k *KeyedMutex) put(productID string, l *keyedLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, productID)
	}
	k.mu.Unlock()
}

// lockPollInterval is how often a blocked Redis acquirer retries SetNX
const lockPollInterval = 100 * time.Millisecond

// RedisLocker serializes product forecasts across replicas using a
// distributed SetNX lock. The TTL bounds how long a crashed holder can
// block a product.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a Redis-backed product locker
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Acquire polls SetNX until the lock is held or ctx ends
func (r *RedisLocker) Acquire(ctx context.Context, productID string) (func(), error) {
	key := "forecast:" + productID

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.AcquireLock(ctx, key, r.ttl)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to acquire forecast lock for %s", productID)
		}
		if ok {
			return func() {
				// Release must not depend on a request context that may
				// already be canceled
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = r.client.ReleaseLock(releaseCtx, key)
			}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
