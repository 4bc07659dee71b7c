package jwks

import (
	"context"
	"io"
	"log"
	"sync"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// stubResolver counts delegations and answers from a per-call function.
type stubResolver struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, keyID string) (*SigningKey, error)
}

func (s *stubResolver) ResolveSigningKey(_ context.Context, keyID string) (*SigningKey, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call, keyID)
}

func (s *stubResolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func staticKey(keyID string) func(int, string) (*SigningKey, error) {
	return func(int, string) (*SigningKey, error) {
		return &SigningKey{KeyID: keyID, RSAPublicKeyPEM: "-----BEGIN RSA PUBLIC KEY-----\n-----END RSA PUBLIC KEY-----\n"}, nil
	}
}
