package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/manenim/call-quota/pkg/quota"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	capacity := envInt64("QUOTA_CAPACITY", 5)
	window := envDuration("QUOTA_WINDOW", 10*time.Second)

	// With REDIS_ADDR set, buckets are shared across every replica pointed
	// at the same instance; without it, quotas are per-process.
	var store quota.Store = quota.NewMemoryStore()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		rs, err := quota.NewRedisStore(client,
			quota.WithPrefix("demo:quota:"),
			quota.WithTimeout(100*time.Millisecond),
		)
		if err != nil {
			log.WithError(err).Fatal("redis store unavailable")
		}
		store = rs
	}
	store = quota.WithLogging(store, log)

	guard, err := quota.NewGuard(store, capacity, window,
		quota.WithScope(quota.ScopePerCaller),
	)
	if err != nil {
		log.WithError(err).Fatal("bad quota configuration")
	}

	callerByIP := func(r *http.Request) string { return r.RemoteAddr }

	mux := http.NewServeMux()
	mux.Handle("/ping", guard.Middleware("GET /ping", callerByIP)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("Pong!\n"))
		}),
	))

	log.WithFields(logrus.Fields{
		"capacity": capacity,
		"window":   window,
	}).Info("listening on :8080")
	if err := http.ListenAndServe(":8080", mux); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func envInt64(name string, fallback int64) int64 {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
