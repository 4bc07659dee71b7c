package jwks

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKeyID is returned when a signing key is requested with an
	// empty key id.
	ErrMissingKeyID = errors.New("a key id is required")

	// ErrNoSigningKeys is returned when the endpoint's key set contains no
	// eligible signing keys at all. A set that has signing keys but none
	// matching the requested id yields a *KeyNotFoundError instead.
	ErrNoSigningKeys = errors.New("the JWKS endpoint did not contain any signing keys")

	// ErrRateLimited is returned when the per-key-id request budget is
	// exhausted. The wrapped resolver is not invoked.
	ErrRateLimited = errors.New("too many requests for signing keys")
)

// HTTPError is returned when the JWKS endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// KeyNotFoundError is returned when the key set resolved successfully but no
// entry matches the requested key id.
type KeyNotFoundError struct {
	KeyID string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("unable to find a signing key that matches %q", e.KeyID)
}

// ConversionError is returned when an eligible key set entry carries corrupt
// material. It fails the whole batch: provider-side corruption should
// surface, not be masked by skipping the entry.
type ConversionError struct {
	KeyID string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("unable to convert key %q: %v", e.KeyID, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
