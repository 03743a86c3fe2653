package quota

import "time"

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix for bucket keys (default "quota:").
// Separate prefixes give independent bucket namespaces on one Redis instance;
// RemoveAll only touches keys under the store's own prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTimeout sets the per-operation deadline applied to Redis calls
// (default 5s). The store itself never retries; callers that want retries
// compose them around GetBucket.
func WithTimeout(timeout time.Duration) RedisOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithRecorder injects a metrics backend for the store's hot path.
func WithRecorder(recorder MetricsRecorder) RedisOption {
	return func(s *RedisStore) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithScope selects bucket identity derivation (default ScopeGlobal).
func WithScope(scope Scope) GuardOption {
	return func(g *Guard) {
		g.scope = scope
	}
}

// WithOverflowHandler installs the HTTP overflow handler invoked by
// Guard.Middleware when a bucket is exhausted. The handler fully owns the
// response; the guard writes nothing after calling it.
func WithOverflowHandler(h OverflowHandler) GuardOption {
	return func(g *Guard) {
		g.overflowHandler = h
	}
}

// WithOverflowFunc installs the overflow func invoked by Guard.Do when a
// bucket is exhausted. Its return value becomes Do's return value, so it may
// recover, substitute a cached result, or signal its own error.
func WithOverflowFunc(f OverflowFunc) GuardOption {
	return func(g *Guard) {
		g.overflowFunc = f
	}
}
