package security

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// VisitorStore decides whether a request from the given client key may
// proceed. Implementations own their eviction policy; the middleware holds no
// process-wide state of its own.
type VisitorStore interface {
	// Allow reports whether the request is within limits. When it is not,
	// the returned duration is a hint for the Retry-After header.
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

// visitor pairs a limiter with its last activity time for eviction.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryVisitorStore keeps one token-bucket limiter per client key and evicts
// entries not seen for three windows. Close stops the eviction goroutine.
type MemoryVisitorStore struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	maxRequests int
	window      time.Duration
	rate        rate.Limit
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewMemoryVisitorStore(maxRequests int, window time.Duration) *MemoryVisitorStore {
	s := &MemoryVisitorStore{
		visitors:    make(map[string]*visitor),
		maxRequests: maxRequests,
		window:      window,
		rate:        rate.Every(window / time.Duration(maxRequests)),
		stop:        make(chan struct{}),
	}

	go func() {
		expiry := window * 3
		if expiry < time.Minute {
			expiry = time.Minute
		}
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				for key, v := range s.visitors {
					if time.Since(v.lastSeen) > expiry {
						delete(s.visitors, key)
					}
				}
				s.mu.Unlock()
			case <-s.stop:
				return
			}
		}
	}()

	return s
}

// Close stops the eviction goroutine. Safe to call more than once.
func (s *MemoryVisitorStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryVisitorStore) Allow(ctx context.Context, key string) (bool, time.Duration) {
	s.mu.Lock()
	v, exists := s.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(s.rate, s.maxRequests)}
		s.visitors[key] = v
	}
	v.lastSeen = time.Now()
	s.mu.Unlock()

	if !v.limiter.Allow() {
		return false, s.window
	}
	return true, 0
}

// Len returns the number of tracked clients. Exposed for eviction tests.
func (s *MemoryVisitorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RedisVisitorStore is a fixed-window counter for multi-instance
// deployments: INCR per window key, EXPIRE on first hit.
type RedisVisitorStore struct {
	rdb         *redis.Client
	prefix      string
	maxRequests int
	window      time.Duration
}

func NewRedisVisitorStore(rdb *redis.Client, prefix string, maxRequests int, window time.Duration) *RedisVisitorStore {
	return &RedisVisitorStore{
		rdb:         rdb,
		prefix:      prefix,
		maxRequests: maxRequests,
		window:      window,
	}
}

func (s *RedisVisitorStore) Allow(ctx context.Context, key string) (bool, time.Duration) {
	redisKey := s.prefix + ":" + key

	count, err := s.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		// Fail open: a rate limiter outage must not take the API down.
		return true, 0
	}
	if count == 1 {
		s.rdb.Expire(ctx, redisKey, s.window)
	}

	if count > int64(s.maxRequests) {
		ttl, err := s.rdb.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = s.window
		}
		return false, ttl
	}
	return true, 0
}
