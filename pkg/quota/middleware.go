package quota

import (
	"net/http"
	"strconv"
	"time"
)

// CallerFunc extracts the caller identity from an inbound request, for
// example an authenticated user id or an API key. Returning "" marks the
// caller as anonymous. A nil CallerFunc treats every caller as anonymous.
type CallerFunc func(r *http.Request) string

// Middleware intercepts inbound calls to one protected operation.
//
// operationID is declared here, at registration time, and must be unique per
// operation; "GET /orders" is the usual form for HTTP routes. Two routes
// sharing an operationID would share a bucket.
//
// On admission the request proceeds immediately. On an exhausted bucket the
// overflow handler, when configured, owns the response; otherwise the
// middleware answers 429 with a fixed message. On a store failure it answers
// 500 and the request does not proceed.
func (g *Guard) Middleware(operationID string, callerFn CallerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID := ""
			if callerFn != nil {
				callerID = callerFn(r)
			}

			dec, err := g.check(r.Context(), operationID, callerID)
			if err != nil {
				http.Error(w, "quota check failed", http.StatusInternalServerError)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(dec.Bucket.Capacity, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(dec.Bucket.Tokens, 10))

			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if g.overflowHandler != nil {
				g.overflowHandler(w, r, dec)
				return
			}

			if retry := dec.RetryAfter(time.Now()); retry > 0 {
				w.Header().Set("Retry-After", strconv.FormatInt(ceilSeconds(retry), 10))
			}
			http.Error(w, QuotaExceededMessage, QuotaExceededStatus)
		})
	}
}

func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
