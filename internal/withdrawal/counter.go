package withdrawal

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
)

const counterPrefix = "withdrawals:daily:"

// DailyCounter tracks withdrawal requests per user per UTC calendar day.
// Acquire must check and increment atomically.
type DailyCounter interface {
	// Acquire takes one slot for the day of now, failing with
	// DailyLimitExceeded once limit slots are taken. It returns the count
	// including the new slot.
	Acquire(ctx context.Context, userID string, now time.Time, limit int) (int, error)
	// Release gives back a slot taken by Acquire for the same day.
	Release(ctx context.Context, userID string, now time.Time) error
	Count(ctx context.Context, userID string, now time.Time) (int, error)
}

func counterKey(userID string, now time.Time) string {
	return counterPrefix + userID + ":" + clock.DayKey(now)
}

func limitError(limit int) error {
	return apperror.New(apperror.KindDailyLimitExceeded, "only %d withdrawals are allowed per day, try again tomorrow", limit)
}

// RedisCounter keeps the daily counters in Redis. Keys expire an hour after
// the UTC midnight that ends their day.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter builds a Redis backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Acquire(ctx context.Context, userID string, now time.Time, limit int) (int, error) {
	key := counterKey(userID, now)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireAt(ctx, key, clock.NextMidnight(now).Add(time.Hour))
		return nil
	})
	if err != nil {
		return 0, apperror.Backend("increment daily counter", err)
	}
	n := int(incr.Val())
	if n > limit {
		if err := r.client.Decr(ctx, key).Err(); err != nil {
			return n - 1, apperror.Backend("rollback daily counter", err)
		}
		return n - 1, limitError(limit)
	}
	return n, nil
}

func (r *RedisCounter) Release(ctx context.Context, userID string, now time.Time) error {
	key := counterKey(userID, now)
	n, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return apperror.Backend("release daily counter", err)
	}
	if n < 0 {
		r.client.Set(ctx, key, 0, redis.KeepTTL)
	}
	return nil
}

func (r *RedisCounter) Count(ctx context.Context, userID string, now time.Time) (int, error) {
	n, err := r.client.Get(ctx, counterKey(userID, now)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, apperror.Backend("read daily counter", err)
	}
	return n, nil
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryCounter builds an in-process counter for tests and development.
func NewMemoryCounter() DailyCounter {
	return &memoryCounter{counts: make(map[string]int)}
}

func (m *memoryCounter) Acquire(_ context.Context, userID string, now time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := counterKey(userID, now)
	if m.counts[key] >= limit {
		return m.counts[key], limitError(limit)
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryCounter) Release(_ context.Context, userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := counterKey(userID, now)
	if m.counts[key] > 0 {
		m.counts[key]--
	}
	return nil
}

func (m *memoryCounter) Count(_ context.Context, userID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[counterKey(userID, now)], nil
}
