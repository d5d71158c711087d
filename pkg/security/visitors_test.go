package security

import (
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

// unreachableRedis returns a client pointed at a port nothing listens on.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestMemoryVisitorStoreAllowsUpToLimit(t *testing.T) {
	store := NewMemoryVisitorStore(3, time.Hour)
	t.Cleanup(store.Close)

	for i := 0; i < 3; i++ {
		ok, _ := store.Allow(t.Context(), "1.2.3.4")
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, retry := store.Allow(t.Context(), "1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Hour, retry)
}

func TestMemoryVisitorStoreKeysAreIndependent(t *testing.T) {
	store := NewMemoryVisitorStore(1, time.Hour)
	t.Cleanup(store.Close)

	ok, _ := store.Allow(t.Context(), "1.2.3.4")
	assert.True(t, ok)
	ok, _ = store.Allow(t.Context(), "1.2.3.4")
	assert.False(t, ok)

	// a different client still has a full bucket
	ok, _ = store.Allow(t.Context(), "5.6.7.8")
	assert.True(t, ok)

	assert.Equal(t, 2, store.Len())
}

func TestMemoryVisitorStoreClose(t *testing.T) {
	store := NewMemoryVisitorStore(1, time.Hour)

	// stops the eviction goroutine and is idempotent
	store.Close()
	store.Close()

	// the store still answers after Close; only eviction stops
	ok, _ := store.Allow(t.Context(), "1.2.3.4")
	assert.True(t, ok)
}

func TestRedisVisitorStoreFailsOpen(t *testing.T) {
	// No redis behind this client; Incr fails and the limiter must let the
	// request through rather than block traffic.
	store := NewRedisVisitorStore(unreachableRedis(t), "ratelimit:test", 1, time.Minute)

	for i := 0; i < 5; i++ {
		ok, _ := store.Allow(t.Context(), "1.2.3.4")
		assert.True(t, ok)
	}
}
