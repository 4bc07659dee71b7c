package jwks

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	// throttleTableSize bounds the per-key-id bucket table so a flood of
	// unknown kids cannot grow it without limit.
	throttleTableSize = 256

	// throttleJitter is the upper bound of the random delay added in waiting
	// mode to spread callers released at the same instant.
	throttleJitter = 100 * time.Millisecond
)

// throttlingResolver bounds how often each key id may reach the wrapped
// resolver. Each key id gets its own token bucket sized to the configured
// requests-per-minute; budgets are never shared across kids. The bucket is
// charged before delegation, so rapid repeated failures count against it and
// cannot be used to hammer the endpoint.
//
// By default an exhausted budget rejects immediately with ErrRateLimited.
// In waiting mode the call blocks until budget is available or the context
// is done.
type throttlingResolver struct {
	next  KeyResolver
	limit rate.Limit
	burst int
	wait  bool

	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
}

func newThrottlingResolver(next KeyResolver, requestsPerMinute int, wait bool) (*throttlingResolver, error) {
	limiters, err := lru.New[string, *rate.Limiter](throttleTableSize)
	if err != nil {
		return nil, err
	}
	return &throttlingResolver{
		next:     next,
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    requestsPerMinute,
		wait:     wait,
		limiters: limiters,
	}, nil
}

func (r *throttlingResolver) ResolveSigningKey(ctx context.Context, keyID string) (*SigningKey, error) {
	limiter := r.limiterFor(keyID)
	if r.wait {
		if err := r.waitWithJitter(ctx, limiter); err != nil {
			return nil, err
		}
	} else if !limiter.Allow() {
		return nil, fmt.Errorf("%w: key id %q", ErrRateLimited, keyID)
	}
	return r.next.ResolveSigningKey(ctx, keyID)
}

// limiterFor returns the bucket for a key id, creating it on first use. The
// mutex only guards the get-or-create; the buckets themselves are safe for
// concurrent use.
func (r *throttlingResolver) limiterFor(keyID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limiter, ok := r.limiters.Get(keyID); ok {
		return limiter
	}
	limiter := rate.NewLimiter(r.limit, r.burst)
	r.limiters.Add(keyID, limiter)
	return limiter
}

func (r *throttlingResolver) waitWithJitter(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	select {
	case <-time.After(time.Duration(rand.Int63n(int64(throttleJitter)))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
