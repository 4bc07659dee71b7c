package jwks

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachingResolver memoizes successful resolutions per key id in a bounded,
// time-boxed LRU. A live entry is returned without touching the wrapped
// resolver, so a cache hit consumes neither rate budget nor a network call.
// Failures of any kind pass through uncached, so the next call for the same
// key id retries the wrapped chain cleanly.
type cachingResolver struct {
	next  KeyResolver
	cache *expirable.LRU[string, *SigningKey]
}

func newCachingResolver(next KeyResolver, maxEntries int, maxAge time.Duration) *cachingResolver {
	return &cachingResolver{
		next:  next,
		cache: expirable.NewLRU[string, *SigningKey](maxEntries, nil, maxAge),
	}
}

func (r *cachingResolver) ResolveSigningKey(ctx context.Context, keyID string) (*SigningKey, error) {
	if key, ok := r.cache.Get(keyID); ok {
		return key, nil
	}

	key, err := r.next.ResolveSigningKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	r.cache.Add(keyID, key)
	return key, nil
}
