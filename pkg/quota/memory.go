package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process bucket store.
//
// It is safe for concurrent use by multiple goroutines, but its state is local
// to the process and is not shared across replicas. Use RedisStore when you
// need one shared budget across multiple instances.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// NewMemoryStore constructs a MemoryStore with empty state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*Bucket),
	}
}

// GetBucket performs one refill-and-consume access. The whole read-refill-
// consume sequence runs under the store mutex, so concurrent accesses to the
// same bucket never interleave.
func (m *MemoryStore) GetBucket(ctx context.Context, bucketID string, capacity int64, window time.Duration) (Decision, error) {
	if err := validateBucketArgs(capacity, window); err != nil {
		return Decision{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, exists := m.buckets[bucketID]
	if !exists {
		b = &Bucket{
			ID:              bucketID,
			Capacity:        capacity,
			Window:          window,
			Tokens:          capacity,
			WindowStartedAt: now,
		}
		m.buckets[bucketID] = b
	}

	if now.Sub(b.WindowStartedAt) > b.Window {
		b.WindowStartedAt = now
		b.Tokens = b.Capacity
	}

	allowed := b.Tokens > 0
	if allowed {
		b.Tokens--
	}
	b.LastUpdatedAt = now

	return Decision{Allowed: allowed, Bucket: *b}, nil
}

// Remove deletes the bucket if present.
func (m *MemoryStore) Remove(ctx context.Context, bucketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, bucketID)
	return nil
}

// RemoveAll drops every bucket in this store.
func (m *MemoryStore) RemoveAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buckets = make(map[string]*Bucket)
	return nil
}
