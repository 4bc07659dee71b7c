package jwks

import (
	"context"
	"log"
)

// A KeyResolver resolves a signing key by its key id. The client assembles a
// chain of resolvers at construction time: a base resolver that talks to the
// endpoint, optionally wrapped by coalescing, throttling, and caching layers.
// The chain is fixed once built.
type KeyResolver interface {
	ResolveSigningKey(ctx context.Context, keyID string) (*SigningKey, error)
}

// keySetResolver is the innermost layer: fetch the key set, convert every
// eligible entry, select the requested key id.
type keySetResolver struct {
	cfg *clientConfig
}

func (r *keySetResolver) ResolveSigningKey(ctx context.Context, keyID string) (*SigningKey, error) {
	jwks, err := fetchKeySet(ctx, r.cfg)
	if err != nil {
		return nil, err
	}

	keys, err := convertKeySet(jwks, r.cfg.logger)
	if err != nil {
		return nil, err
	}

	for i := range keys {
		if keys[i].KeyID == keyID {
			return &keys[i], nil
		}
	}
	return nil, &KeyNotFoundError{KeyID: keyID}
}

// convertKeySet runs the converter over every entry of a key set, preserving
// order. Ineligible entries are skipped silently; corrupt eligible entries
// fail the whole batch. A set with zero signing keys is an error, distinct
// from a failed lookup.
func convertKeySet(jwks *JSONWebKeySet, logger *log.Logger) ([]SigningKey, error) {
	keys := make([]SigningKey, 0, len(jwks.Keys))
	for _, key := range jwks.Keys {
		if !isSigningKey(key) {
			logger.Printf("skipping non-signing key %q (kty=%s use=%s)", key.Kid, key.Kty, key.Use)
			continue
		}
		sk, err := convertKey(key)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *sk)
	}
	if len(keys) == 0 {
		return nil, ErrNoSigningKeys
	}
	return keys, nil
}
