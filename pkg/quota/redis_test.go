package quota

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func redisClientForTest(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Skipping integration test: Redis not available (%v)", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func uniqueBucketID(name string) string {
	return fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
}

func TestRedisStore_Integration(t *testing.T) {
	client := redisClientForTest(t)
	ctx := context.Background()

	store, err := NewRedisStore(client, WithPrefix("it:quota:"))
	if err != nil {
		t.Fatalf("Failed to create RedisStore: %v", err)
	}

	t.Run("BasicFlow", func(t *testing.T) {
		id := uniqueBucketID("basic")

		dec, err := store.GetBucket(ctx, id, 2, time.Second)
		if err != nil {
			t.Fatalf("Redis error: %v", err)
		}
		if !dec.Allowed {
			t.Error("Expected first access to be allowed")
		}
		if dec.Bucket.Tokens != 1 {
			t.Errorf("Expected 1 remaining, got %d", dec.Bucket.Tokens)
		}

		dec, err = store.GetBucket(ctx, id, 2, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if !dec.Allowed {
			t.Error("Expected second access to be allowed")
		}
		if dec.Bucket.Tokens != 0 {
			t.Errorf("Expected 0 remaining, got %d", dec.Bucket.Tokens)
		}

		dec, err = store.GetBucket(ctx, id, 2, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if dec.Allowed {
			t.Error("Expected third access to be denied")
		}
		if dec.Bucket.Tokens != 0 {
			t.Errorf("Denied access must not change the balance, got %d", dec.Bucket.Tokens)
		}
	})

	t.Run("Refill", func(t *testing.T) {
		id := uniqueBucketID("refill")
		window := 200 * time.Millisecond

		store.GetBucket(ctx, id, 1, window)
		if dec, _ := store.GetBucket(ctx, id, 1, window); dec.Allowed {
			t.Fatal("Should be denied before the window elapses")
		}

		time.Sleep(250 * time.Millisecond)

		dec, err := store.GetBucket(ctx, id, 1, window)
		if err != nil {
			t.Fatal(err)
		}
		if !dec.Allowed {
			t.Error("Access after the window elapsed should be allowed again")
		}
	})

	t.Run("DistributedState", func(t *testing.T) {
		id := uniqueBucketID("dist")

		// Two stores on one Redis simulate two application instances.
		storeA, _ := NewRedisStore(client, WithPrefix("it:quota:"))
		storeB, _ := NewRedisStore(client, WithPrefix("it:quota:"))

		storeA.GetBucket(ctx, id, 1, time.Minute)

		dec, err := storeB.GetBucket(ctx, id, 1, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if dec.Allowed {
			t.Error("Instance B should see the token consumed by instance A")
		}
	})

	t.Run("CapacityBindsAtCreation", func(t *testing.T) {
		id := uniqueBucketID("bind")

		store.GetBucket(ctx, id, 2, time.Minute)
		dec, err := store.GetBucket(ctx, id, 100, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if dec.Bucket.Capacity != 2 {
			t.Errorf("Existing bucket resized mid-window: capacity %d", dec.Bucket.Capacity)
		}
	})

	t.Run("RemoveIdempotent", func(t *testing.T) {
		id := uniqueBucketID("remove")

		if err := store.Remove(ctx, id); err != nil {
			t.Errorf("Remove of unknown bucket should not fail: %v", err)
		}

		store.GetBucket(ctx, id, 1, time.Minute)
		if err := store.Remove(ctx, id); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}

		dec, _ := store.GetBucket(ctx, id, 1, time.Minute)
		if !dec.Allowed {
			t.Error("Access after Remove should see a fresh bucket")
		}
	})

	t.Run("KeyEscaping", func(t *testing.T) {
		// Hostile bucket ids must stay inside the store's namespace.
		id := "ops team:GET /orders?page=1 " + uniqueBucketID("esc")

		if _, err := store.GetBucket(ctx, id, 1, time.Minute); err != nil {
			t.Fatalf("GetBucket with hostile id failed: %v", err)
		}

		escaped := "it:quota:" + url.QueryEscape(id)
		exists, err := client.Exists(ctx, escaped).Result()
		if err != nil {
			t.Fatalf("Redis Exists failed: %v", err)
		}
		if exists == 0 {
			t.Errorf("Expected key %s to exist, but it does not", escaped)
		}
		store.Remove(ctx, id)
	})
}

func TestRedisStore_RemoveAll(t *testing.T) {
	client := redisClientForTest(t)
	ctx := context.Background()

	base := fmt.Sprintf("it:rmall:%d", time.Now().UnixNano())
	store, err := NewRedisStore(client, WithPrefix(base+":a:"))
	if err != nil {
		t.Fatalf("Failed to create RedisStore: %v", err)
	}

	// Sibling namespace that RemoveAll must leave alone.
	other, _ := NewRedisStore(client, WithPrefix(base+":b:"))

	store.GetBucket(ctx, "a", 1, time.Minute)
	store.GetBucket(ctx, "b", 1, time.Minute)
	other.GetBucket(ctx, "c", 1, time.Minute)

	if err := store.RemoveAll(ctx); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	for _, id := range []string{"a", "b"} {
		dec, _ := store.GetBucket(ctx, id, 1, time.Minute)
		if !dec.Allowed {
			t.Errorf("Bucket %q should be fresh after RemoveAll", id)
		}
	}

	// c was exhausted before RemoveAll and must still be exhausted.
	if dec, _ := other.GetBucket(ctx, "c", 1, time.Minute); dec.Allowed {
		t.Error("RemoveAll must not cross into a sibling namespace")
	}

	store.RemoveAll(ctx)
	other.RemoveAll(ctx)
}

func TestRedisStore_ConcurrentAdmissions(t *testing.T) {
	client := redisClientForTest(t)
	ctx := context.Background()

	store, err := NewRedisStore(client, WithPrefix("it:quota:"))
	if err != nil {
		t.Fatalf("Failed to create RedisStore: %v", err)
	}

	const capacity = 5
	const callers = 25
	id := uniqueBucketID("conc")

	var admitted atomic.Int64
	var wg sync.WaitGroup

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			dec, err := store.GetBucket(ctx, id, capacity, time.Minute)
			if err != nil {
				t.Errorf("GetBucket failed: %v", err)
				return
			}
			if dec.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != capacity {
		t.Errorf("Expected exactly %d admissions out of %d calls, got %d", capacity, callers, got)
	}
	store.Remove(ctx, id)
}

func TestRedisStore_UnavailableBackend(t *testing.T) {
	client := redisClientForTest(t)

	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("Failed to create RedisStore: %v", err)
	}

	// Closing the client turns every further operation into a store failure.
	client.Close()

	_, err = store.GetBucket(context.Background(), "op", 1, time.Minute)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Errorf("Expected a StoreError, got %T", err)
	}
}
