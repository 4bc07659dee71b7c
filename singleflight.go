package jwks

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// coalescingResolver collapses concurrent resolutions of the same key id
// into a single call to the wrapped resolver, fanning the result out to
// every waiter. It sits between the cache and the throttle, so a coalesced
// group consumes one unit of rate budget and one network call.
//
// Off by default: sharing one budget charge across callers changes the
// observable rate-limit accounting.
type coalescingResolver struct {
	next  KeyResolver
	group singleflight.Group
}

func (r *coalescingResolver) ResolveSigningKey(ctx context.Context, keyID string) (*SigningKey, error) {
	v, err, _ := r.group.Do(keyID, func() (any, error) {
		return r.next.ResolveSigningKey(ctx, keyID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SigningKey), nil
}
