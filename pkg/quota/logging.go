package quota

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// loggingStore decorates a Store with structured logging. The wrapped store
// keeps full ownership of bucket state; this layer only observes outcomes.
type loggingStore struct {
	next Store
	log  *logrus.Logger
}

// WithLogging wraps store so that denials are logged at warn level and store
// failures at error level. Admissions log at debug to keep the hot path quiet
// under normal log levels.
func WithLogging(store Store, log *logrus.Logger) Store {
	return &loggingStore{next: store, log: log}
}

func (l *loggingStore) GetBucket(ctx context.Context, bucketID string, capacity int64, window time.Duration) (Decision, error) {
	dec, err := l.next.GetBucket(ctx, bucketID, capacity, window)
	if err != nil {
		l.log.WithError(err).WithField("bucket", bucketID).Error("quota: bucket access failed")
		return dec, err
	}

	entry := l.log.WithFields(logrus.Fields{
		"bucket":    bucketID,
		"remaining": dec.Bucket.Tokens,
	})
	if dec.Allowed {
		entry.Debug("quota: call admitted")
	} else {
		entry.Warn("quota: bucket exhausted")
	}
	return dec, nil
}

func (l *loggingStore) Remove(ctx context.Context, bucketID string) error {
	err := l.next.Remove(ctx, bucketID)
	if err != nil {
		l.log.WithError(err).WithField("bucket", bucketID).Error("quota: remove failed")
	}
	return err
}

func (l *loggingStore) RemoveAll(ctx context.Context) error {
	err := l.next.RemoveAll(ctx)
	if err != nil {
		l.log.WithError(err).Error("quota: remove all failed")
	}
	return err
}
