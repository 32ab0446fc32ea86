package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter increments a per-key hit count inside a fixed window and reports
// the count after the increment plus the moment the window resets.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// sweepInterval bounds how often the memory counter scans for dead cells.
const sweepInterval = time.Minute

// MemoryCounter keeps fixed-window counters in process memory. Counters are
// not shared across worker processes: with prefork enabled each worker
// enforces its own cap. Expired cells are swept on access so the map does
// not grow with every client IP ever seen.
type MemoryCounter struct {
	mu        sync.Mutex
	cells     map[string]*counterCell
	now       func() time.Time
	lastSweep time.Time
}

type counterCell struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		cells: make(map[string]*counterCell),
		now:   time.Now,
	}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
		m.lastSweep = now
	}

	cell, ok := m.cells[key]
	if !ok || !now.Before(cell.expiresAt) {
		cell = &counterCell{expiresAt: now.Add(window)}
		m.cells[key] = cell
	}

	cell.count++
	return cell.count, cell.expiresAt, nil
}

// sweep drops every cell whose window has elapsed. Caller holds the lock.
func (m *MemoryCounter) sweep(now time.Time) {
	for key, cell := range m.cells {
		if !now.Before(cell.expiresAt) {
			delete(m.cells, key)
		}
	}
}

// incrScript atomically bumps the counter and starts the window TTL on the
// first hit, so the whole window lives and dies with one key.
const incrScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}`

// RedisCounter keeps fixed-window counters in Redis so all worker
// processes share one cap per key.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	result, err := r.client.Eval(ctx, incrScript, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to execute counter script: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected counter script result: %v", result)
	}

	count, ok := values[0].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("failed to parse counter value")
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = window.Milliseconds()
	}

	resetAt := time.Now().Add(time.Duration(ttlMs) * time.Millisecond)
	return count, resetAt, nil
}
