package quota

import (
	"errors"
	"net/http"
)

// QuotaExceededMessage is the response body sent to callers when a bucket is
// exhausted and no overflow handler is configured.
const QuotaExceededMessage = "Too many requests, please try again later."

// QuotaExceededStatus is the HTTP status equivalent of an exhausted bucket.
const QuotaExceededStatus = http.StatusTooManyRequests

// ErrQuotaExceeded is returned by Guard.Do when the bucket is exhausted and
// no overflow func is configured.
var ErrQuotaExceeded = errors.New(QuotaExceededMessage)

// ErrStoreUnavailable matches, via errors.Is, any StoreError raised when a
// backing store could not complete the refill-and-consume operation. A call
// whose quota status cannot be determined is never admitted.
var ErrStoreUnavailable = errors.New("quota store unavailable")

// ConfigError reports invalid limiter configuration, such as a non-positive
// capacity or window. It is raised immediately and never stored.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "quota config error: " + e.Message
}

// StoreError wraps a failure from a backing store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "quota store error in " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
