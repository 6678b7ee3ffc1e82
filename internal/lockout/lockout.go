// Package lockout counts failed logins per username and blocks further
// attempts for a cool-down once the limit is reached.
package lockout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// Locked reports whether key is blocked and for how much longer.
	Locked(ctx context.Context, key string) (bool, time.Duration, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type Policy struct {
	MaxFailures int
	Lockout     time.Duration
}

type Redis struct {
	Client *redis.Client
	Policy Policy
	Prefix string
}

func NewRedis(url string, p Policy) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	return &Redis{Client: redis.NewClient(opt), Policy: p, Prefix: "blog:login"}, nil
}

func (r *Redis) failKey(key string) string { return r.Prefix + ":fail:" + strings.ToLower(key) }
func (r *Redis) lockKey(key string) string { return r.Prefix + ":lock:" + strings.ToLower(key) }

func (r *Redis) Locked(ctx context.Context, key string) (bool, time.Duration, error) {
	ttl, err := r.Client.PTTL(ctx, r.lockKey(key)).Result()
	if err != nil {
		return false, 0, err
	}
	// PTTL is -2 for a missing key.
	if ttl < 0 {
		return false, 0, nil
	}
	return true, ttl, nil
}

func (r *Redis) Fail(ctx context.Context, key string) error {
	pipe := r.Client.TxPipeline()
	incr := pipe.Incr(ctx, r.failKey(key))
	pipe.Expire(ctx, r.failKey(key), r.Policy.Lockout)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if incr.Val() < int64(r.Policy.MaxFailures) {
		return nil
	}
	if err := r.Client.Set(ctx, r.lockKey(key), "1", r.Policy.Lockout).Err(); err != nil {
		return err
	}
	return r.Client.Del(ctx, r.failKey(key)).Err()
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	return r.Client.Del(ctx, r.failKey(key), r.lockKey(key)).Err()
}

func (r *Redis) Close() error { return r.Client.Close() }

// Memory is a single-process Guard. Failure counts expire after
// Policy.Lockout, matching the Redis key TTL, and expired entries are swept
// at most once per Lockout period.
type Memory struct {
	Policy Policy
	Now    func() time.Time

	mu        sync.Mutex
	failures  map[string]window
	until     map[string]time.Time
	nextSweep time.Time
}

type window struct {
	n       int
	expires time.Time
}

func NewMemory(p Policy) *Memory {
	return &Memory{Policy: p, Now: time.Now, failures: map[string]window{}, until: map[string]time.Time{}}
}

func (m *Memory) Locked(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key = strings.ToLower(key)
	until, ok := m.until[key]
	if !ok {
		return false, 0, nil
	}
	left := until.Sub(m.Now())
	if left <= 0 {
		delete(m.until, key)
		return false, 0, nil
	}
	return true, left, nil
}

func (m *Memory) Fail(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	m.sweep(now)

	key = strings.ToLower(key)
	w := m.failures[key]
	if !now.Before(w.expires) {
		w = window{}
	}
	w.n++
	w.expires = now.Add(m.Policy.Lockout)
	if w.n >= m.Policy.MaxFailures {
		m.until[key] = now.Add(m.Policy.Lockout)
		delete(m.failures, key)
		return nil
	}
	m.failures[key] = w
	return nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key = strings.ToLower(key)
	delete(m.failures, key)
	delete(m.until, key)
	return nil
}

func (m *Memory) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for k, w := range m.failures {
		if !now.Before(w.expires) {
			delete(m.failures, k)
		}
	}
	for k, until := range m.until {
		if !now.Before(until) {
			delete(m.until, k)
		}
	}
	m.nextSweep = now.Add(m.Policy.Lockout)
}

type Nop struct{}

func (Nop) Locked(context.Context, string) (bool, time.Duration, error) { return false, 0, nil }
func (Nop) Fail(context.Context, string) error                          { return nil }
func (Nop) Reset(context.Context, string) error                         { return nil }
