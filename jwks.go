package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// JSONWebKey is a single entry of a JWKS document as published by the
// provider. It is untrusted input: only kty is guaranteed present.
type JSONWebKey struct {
	Kty string   `json:"kty"`
	Kid string   `json:"kid,omitempty"`
	Use string   `json:"use,omitempty"`
	Alg string   `json:"alg,omitempty"`
	X5c []string `json:"x5c,omitempty"`
	N   string   `json:"n,omitempty"`
	E   string   `json:"e,omitempty"`
	Nbf *int64   `json:"nbf,omitempty"`
}

// JSONWebKeySet is the RFC 7517 document shape returned by a JWKS endpoint.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// fetchKeySet performs a single GET against the configured JWKS endpoint and
// decodes the response. Any retry policy belongs to the caller.
func fetchKeySet(ctx context.Context, cfg *clientConfig) (*JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.jwksURI, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.requestHeaders {
		req.Header.Set(k, v)
	}

	res, err := cfg.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting JWKS endpoint: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	bs, err := io.ReadAll(io.LimitReader(res.Body, cfg.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading JWKS response: %w", err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, newHTTPError(res.StatusCode, bs)
	}

	var jwks JSONWebKeySet
	if err := json.Unmarshal(bs, &jwks); err != nil {
		return nil, fmt.Errorf("error unmarshaling JWKS response: %w", err)
	}
	return &jwks, nil
}

// newHTTPError picks the most descriptive message available: a message field
// in the body, then the raw body, then the status text, then the code alone.
func newHTTPError(statusCode int, body []byte) *HTTPError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &HTTPError{StatusCode: statusCode, Message: payload.Message}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return &HTTPError{StatusCode: statusCode, Message: msg}
	}
	if msg := http.StatusText(statusCode); msg != "" {
		return &HTTPError{StatusCode: statusCode, Message: msg}
	}
	return &HTTPError{StatusCode: statusCode, Message: fmt.Sprintf("HTTP error %d", statusCode)}
}
