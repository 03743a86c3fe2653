package quota

import (
	"context"
	"time"
)

// Bucket is a snapshot of one quota scope's state. The owning Store is the
// only component that mutates bucket state; everything else sees copies.
type Bucket struct {
	// ID is the bucket key. Immutable once the bucket exists.
	ID string

	// Capacity is the maximum number of tokens the bucket can hold, i.e.
	// the number of calls admitted per window.
	Capacity int64

	// Window is the duration after which tokens refill to Capacity.
	Window time.Duration

	// Tokens is the remaining balance after the most recent access.
	// Always within [0, Capacity].
	Tokens int64

	// WindowStartedAt marks the start of the current window.
	WindowStartedAt time.Time

	// LastUpdatedAt is the time of the most recent access.
	LastUpdatedAt time.Time
}

// Decision is the outcome of a single GetBucket access.
//
// Allowed cannot be derived from the snapshot alone: a bucket that just spent
// its last token and a bucket that was already empty both report Tokens == 0.
type Decision struct {
	Allowed bool
	Bucket  Bucket
}

// RetryAfter returns how long the caller should wait, measured from now,
// until the bucket's window resets. Zero when the decision was an admit.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.Bucket.WindowStartedAt.Add(d.Bucket.Window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Store holds bucket state and performs the atomic refill-and-consume access.
type Store interface {
	// GetBucket returns the decision for one access to bucketID, creating the
	// bucket with a full token balance if it does not exist. In a single
	// indivisible step the store resets the bucket when its window has
	// elapsed, then consumes one token when any remain. The returned snapshot
	// reflects state after the consume.
	//
	// capacity and window are honored only when the bucket is created; an
	// existing bucket keeps the values it was created with.
	GetBucket(ctx context.Context, bucketID string, capacity int64, window time.Duration) (Decision, error)

	// Remove deletes the bucket if present. Removing an unknown bucket is
	// not an error.
	Remove(ctx context.Context, bucketID string) error

	// RemoveAll deletes every bucket known to this store's namespace.
	RemoveAll(ctx context.Context) error
}

func validateBucketArgs(capacity int64, window time.Duration) error {
	if capacity < 1 {
		return &ConfigError{"capacity must be at least 1"}
	}
	if window < time.Millisecond {
		return &ConfigError{"window must be at least 1ms"}
	}
	return nil
}
