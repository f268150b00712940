package connection

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry modes accepted by NewRetryPolicy.
const (
	RetryBackoff = "backoff"
	RetryNone    = "none"
)

// NewRetryPolicy builds the reconnect policy for a Client.
//
// RetryNone never retries: one session, then Run returns. RetryBackoff waits
// exponentially longer between attempts, starting at base and capped at maxDelay.
// maxAttempts limits consecutive failed attempts; 0 means unlimited.
func NewRetryPolicy(mode string, base, maxDelay time.Duration, maxAttempts int) backoff.BackOff {
	if mode == RetryNone {
		return &backoff.StopBackOff{}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0 // bounded by maxAttempts, not wall time
	b.Reset()

	if maxAttempts > 0 {
		return backoff.WithMaxRetries(b, uint64(maxAttempts))
	}
	return b
}
