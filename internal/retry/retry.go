// Package retry executes operations under an exponential-backoff-with-jitter
// policy, classifying errors as retryable or fatal. Transient failures are
// fully absorbed here and surface only when attempts are exhausted.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/mihailsb/docsync/internal/common"
)

// Policy configures backoff behavior for one call site.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Multiplier grows the delay between consecutive retries.
	Multiplier float64
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// Jitter perturbs each delay by up to ±25% to avoid synchronized retry
	// storms across devices.
	Jitter bool
}

// Default policies per call site.
var (
	// NetworkPolicy covers remote document-store mutations.
	NetworkPolicy = Policy{MaxRetries: 5, BaseDelay: 1 * time.Second, Multiplier: 2, MaxDelay: 16 * time.Second, Jitter: true}
	// AuthPolicy covers operations that depend on a valid credential.
	AuthPolicy = Policy{MaxRetries: 3, BaseDelay: 2 * time.Second, Multiplier: 2, MaxDelay: 8 * time.Second, Jitter: true}
	// FilePolicy covers object-store transfers.
	FilePolicy = Policy{MaxRetries: 3, BaseDelay: 2 * time.Second, Multiplier: 2, MaxDelay: 8 * time.Second, Jitter: true}
)

// Class is the retry classification of an error.
type Class int

const (
	// ClassFatal errors propagate immediately without consuming a retry.
	ClassFatal Class = iota
	// ClassTransient errors (network, timeout, 5xx-equivalent) are retried.
	ClassTransient
	// ClassAuth errors are retryable only after a credential refresh.
	ClassAuth
	// ClassConflict marks a remote version conflict. Never retried here;
	// the caller routes it to conflict detection.
	ClassConflict
)

// Classify maps an error onto the retry taxonomy.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassFatal
	case errors.Is(err, common.ErrVersionConflict):
		return ClassConflict
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrTokenExpired):
		return ClassAuth
	case errors.Is(err, common.ErrServerUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return ClassTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ClassTransient
	}
	return ClassFatal
}

// DelayFor returns the backoff delay before retry attempt n (1-indexed),
// before jitter: min(BaseDelay × Multiplier^(n−1), MaxDelay).
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
		if time.Duration(d) >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// jitter perturbs d by up to ±25%.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	f := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(d) * f)
}

// Do runs op, retrying transient failures per the policy. Fatal errors and
// version conflicts propagate immediately. Auth errors are fatal here; use
// DoWithRefresh when the caller can refresh credentials.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	return DoWithRefresh(ctx, p, nil, op)
}

// DoWithRefresh is Do with an optional credential refresher. On the first
// auth-classified failure the refresher is invoked once and the operation is
// retried without consuming a backoff attempt; a second auth failure is
// fatal.
func DoWithRefresh(ctx context.Context, p Policy, refresh func(ctx context.Context) error, op func(ctx context.Context) error) error {
	var lastErr error
	refreshed := false

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			d := p.DelayFor(attempt)
			if p.Jitter {
				d = jitter(d)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		switch Classify(lastErr) {
		case ClassTransient:
			if attempt >= p.MaxRetries {
				return fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, lastErr)
			}
		case ClassAuth:
			if refresh == nil || refreshed {
				return lastErr
			}
			refreshed = true
			if rerr := refresh(ctx); rerr != nil {
				return fmt.Errorf("credential refresh failed: %w", rerr)
			}
			attempt-- // the refreshed call does not count as a retry
		default:
			return lastErr
		}
	}
}
