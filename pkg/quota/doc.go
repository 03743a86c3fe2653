// Package quota provides local and distributed call-rate quotas based on a
// fixed-window token bucket.
//
// The primary entry point is the Guard:
//
//	g, err := quota.NewGuard(store, 100, time.Minute)
//	mux.Handle("/orders", g.Middleware("GET /orders", callerFromAPIKey)(handler))
//
// A Guard admits at most capacity calls per window per bucket, where a bucket
// is either one per operation (ScopeGlobal) or one per operation and caller
// (ScopePerCaller).
//
// # Overview
//
// Each bucket holds up to Capacity tokens. When the window elapses the bucket
// refills to full; until then, every admitted call consumes one token. A call
// arriving at an empty bucket is denied. Refill-then-consume happens as one
// indivisible step inside the store, which is what keeps the quota honest
// under concurrency: at most Capacity calls are ever admitted within one
// window, no matter how many goroutines or processes race for the bucket.
//
// # Core Types
//
// Bucket is the snapshot of one quota scope: its Capacity, Window, remaining
// Tokens, and the window timestamps. Stores hand out copies; only the store
// itself mutates bucket state.
//
// Decision pairs a snapshot with the admission outcome of one access. The
// outcome is explicit because the snapshot alone is ambiguous: Tokens == 0
// after an access can mean "spent the last token, admitted" or "already
// empty, denied".
//
// BucketID derives bucket identity. Operation identifiers are declared at
// registration time ("GET /orders", "OrderService.List"); nothing is
// discovered through reflection. Under ScopePerCaller, callers without an
// identity share one "[anonymous]" bucket per operation.
//
// # Backends
//
// The package provides two Store implementations with the same contract:
//
//   - MemoryStore: an in-process store backed by a Go map. Useful for unit
//     tests, local development, and single-instance deployments. Its state is
//     local to the process, so it cannot enforce a global budget across
//     replicas.
//
//   - RedisStore: a distributed store backed by Redis. It runs the
//     refill-and-consume cycle inside a Lua script, so Redis serializes
//     concurrent accesses from many application instances against a single
//     shared budget per bucket.
//
// Recommendation: use RedisStore in production when you need a global limit,
// and MemoryStore in tests as a fast, dependency-free stand-in. The two reach
// identical decisions given the same bucket parameters.
//
// # Concurrency
//
// MemoryStore is safe for concurrent use by multiple goroutines; the whole
// read-refill-consume sequence runs under one mutex. RedisStore delegates
// serialization to Redis script execution, which also covers concurrent
// accesses from independent processes.
//
// # Context and Error Policy
//
// GetBucket accepts a context.Context. RedisStore passes it through to Redis
// operations (bounded by the store's configured timeout) so callers can
// cancel work during partial outages.
//
// The enforcement layer is fail-closed: when the store cannot determine quota
// status, the call is not admitted. Guard.Do propagates the store error
// unchanged; Guard.Middleware answers 500. The store never substitutes a
// full bucket for an unreachable one, because a silent "always allow"
// fallback would disable limiting exactly when the backing service is
// overloaded. Store failures match errors.Is(err, ErrStoreUnavailable).
//
// Denial is the one outcome callers can customize: WithOverflowHandler (for
// Middleware) and WithOverflowFunc (for Do) hand the exhausted-bucket case
// entirely to the caller, which may retry later, serve cached data, or signal
// its own error. Without a handler, Middleware answers 429 with a fixed
// message and Do returns ErrQuotaExceeded.
//
// # Storage Details
//
// MemoryStore keeps buckets in a process-local map keyed by bucket id.
//
// RedisStore stores one hash per bucket under:
//
//	"{prefix}" + urlEscape(bucketID)
//
// with fields "tokens", "resetTime" (window start), "lastUpdatedAt",
// "capacity" and "windowMs". Escaping keeps arbitrary caller-supplied
// identities from colliding with unrelated keys or breaking key syntax. Keys
// carry no TTL: a bucket exists until Remove or RemoveAll, which are the
// administrative reset operations.
//
// # Limitations and Notes
//
//   - Capacity and window bind when a bucket is created. Passing different
//     values for an existing bucket does not resize it mid-window; Remove the
//     bucket to apply a new configuration.
//   - Every admission check consumes a token when one is available. There is
//     no peek-without-consuming operation.
//   - RedisStore uses EVALSHA with the script loaded at construction; if the
//     Redis script cache is flushed it transparently falls back to EVAL.
//   - This package does not retry store operations. Compose a retry layer
//     around the Guard if transient store failures should be retried.
//
// # Configuration
//
// RedisStore uses the Functional Options pattern:
//
//	store, _ := quota.NewRedisStore(client,
//		quota.WithPrefix("myapp:quota:"),
//		quota.WithTimeout(2*time.Second),
//		quota.WithRecorder(quota.NewPrometheusRecorder(prometheus.DefaultRegisterer)),
//	)
//
// Guard options are WithScope, WithOverflowHandler and WithOverflowFunc.
// WithLogging wraps any Store with structured logging via logrus.
package quota
