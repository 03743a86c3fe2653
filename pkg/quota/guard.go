package quota

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// OverflowHandler owns the HTTP response when Guard.Middleware denies a call.
type OverflowHandler func(w http.ResponseWriter, r *http.Request, dec Decision)

// OverflowFunc owns the outcome when Guard.Do denies a call.
type OverflowFunc func(ctx context.Context, dec Decision) error

// Guard enforces a call-rate quota in front of protected operations.
//
// A Guard is constructed explicitly with its store and limits; there is no
// package-level default instance. Multiple independently configured guards
// can coexist in one process, sharing or not sharing a store as needed.
//
// Both entry points, Middleware and Do, run the same decision procedure
// against the same store, so the two integration styles are interchangeable:
// a bucket exhausted through one is exhausted for the other.
type Guard struct {
	store    Store
	scope    Scope
	capacity int64
	window   time.Duration

	overflowHandler OverflowHandler
	overflowFunc    OverflowFunc
}

// NewGuard builds a Guard admitting capacity calls per window per bucket.
// Capacity and window come from host configuration at startup; the guard
// never reads configuration ambiently.
func NewGuard(store Store, capacity int64, window time.Duration, opts ...GuardOption) (*Guard, error) {
	if store == nil {
		return nil, &ConfigError{"store is required"}
	}
	if err := validateBucketArgs(capacity, window); err != nil {
		return nil, err
	}

	g := &Guard{
		store:    store,
		scope:    ScopeGlobal,
		capacity: capacity,
		window:   window,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// check is the single decision procedure shared by both entry points.
// Each call consumes a token when the bucket is not already exhausted; there
// is no way to peek without consuming.
func (g *Guard) check(ctx context.Context, operationID, callerID string) (Decision, error) {
	bucketID := BucketID(g.scope, operationID, callerID)
	return g.store.GetBucket(ctx, bucketID, g.capacity, g.window)
}

// Do runs fn if the quota for operationID (and callerID, under
// ScopePerCaller) admits the call.
//
// On an exhausted bucket Do returns ErrQuotaExceeded, or defers to the
// configured overflow func. A store failure propagates unchanged and fn does
// not run: a call whose quota status is unknown is not admitted.
func (g *Guard) Do(ctx context.Context, operationID, callerID string, fn func(ctx context.Context) error) error {
	dec, err := g.check(ctx, operationID, callerID)
	if err != nil {
		return err
	}

	if dec.Allowed {
		return fn(ctx)
	}

	if g.overflowFunc != nil {
		return g.overflowFunc(ctx, dec)
	}
	return ErrQuotaExceeded
}

// IsQuotaExceeded reports whether err is the guard's denial error.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
