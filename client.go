package jwks

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	// defaultMaxBodySize is the max size to read from the JWKS endpoint.
	defaultMaxBodySize = 1024 * 1024 * 4

	defaultCacheMaxEntries   = 5
	defaultCacheMaxAge       = 10 * time.Minute
	defaultRequestsPerMinute = 10
)

type clientConfig struct {
	jwksURI        string
	requestHeaders map[string]string
	httpClient     *http.Client
	insecureTLS    bool
	logger         *log.Logger
	maxBodySize    int64

	cache           bool
	cacheMaxEntries int
	cacheMaxAge     time.Duration

	rateLimit         bool
	requestsPerMinute int
	rateLimitWait     bool

	coalesce bool
}

// An Option customizes the client config.
type Option func(cfg *clientConfig)

// WithHTTPClient sets the HTTP client used to reach the JWKS endpoint. It
// defaults to the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = httpClient
	}
}

// WithRequestHeaders sets extra headers sent on every JWKS request.
func WithRequestHeaders(headers map[string]string) Option {
	return func(cfg *clientConfig) {
		cfg.requestHeaders = headers
	}
}

// WithInsecureTLS disables TLS certificate verification on the default
// transport. It has no effect when a custom HTTP client is supplied.
func WithInsecureTLS() Option {
	return func(cfg *clientConfig) {
		cfg.insecureTLS = true
	}
}

// WithLogger sets a custom logger for diagnostic messages.
func WithLogger(logger *log.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithMaxBodySize caps how many bytes are read from the endpoint's response.
func WithMaxBodySize(n int64) Option {
	return func(cfg *clientConfig) {
		cfg.maxBodySize = n
	}
}

// WithCache enables memoization of resolved signing keys, 5 entries for 10
// minutes unless tuned with WithCacheMaxEntries and WithCacheMaxAge. Only
// successful resolutions are stored.
func WithCache() Option {
	return func(cfg *clientConfig) {
		cfg.cache = true
	}
}

// WithCacheMaxEntries sets the cache capacity. The least recently used entry
// is evicted when the capacity is exceeded.
func WithCacheMaxEntries(n int) Option {
	return func(cfg *clientConfig) {
		cfg.cacheMaxEntries = n
	}
}

// WithCacheMaxAge sets how long a cached signing key stays valid.
func WithCacheMaxAge(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.cacheMaxAge = d
	}
}

// WithRateLimit bounds how many resolution attempts per minute may reach the
// endpoint for each distinct key id. An exhausted budget fails immediately
// with ErrRateLimited unless WithRateLimitWait is also set. Cache hits never
// consume budget.
func WithRateLimit(requestsPerMinute int) Option {
	return func(cfg *clientConfig) {
		cfg.rateLimit = true
		cfg.requestsPerMinute = requestsPerMinute
	}
}

// WithRateLimitWait makes a throttled call wait for budget (with a short
// random jitter) instead of failing immediately.
func WithRateLimitWait() Option {
	return func(cfg *clientConfig) {
		cfg.rateLimitWait = true
	}
}

// WithRequestCoalescing collapses concurrent resolutions of the same key id
// into one request to the endpoint.
func WithRequestCoalescing() Option {
	return func(cfg *clientConfig) {
		cfg.coalesce = true
	}
}

func getClientConfig(jwksURI string, options ...Option) *clientConfig {
	cfg := &clientConfig{
		jwksURI:           jwksURI,
		maxBodySize:       defaultMaxBodySize,
		cacheMaxEntries:   defaultCacheMaxEntries,
		cacheMaxAge:       defaultCacheMaxAge,
		requestsPerMinute: defaultRequestsPerMinute,
	}
	for _, o := range options {
		o(cfg)
	}

	// set unassigned to defaults
	if cfg.logger == nil {
		cfg.logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if cfg.httpClient == nil {
		if cfg.insecureTLS {
			cfg.httpClient = &http.Client{
				Transport: &http.Transport{
					TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				},
			}
		} else {
			cfg.httpClient = http.DefaultClient
		}
	}
	return cfg
}

// A Client resolves signing keys published at a JWKS endpoint. All state it
// holds (cache entries, rate budgets) is in-memory and scoped to the client's
// lifetime; it is safe for concurrent use.
type Client struct {
	cfg      *clientConfig
	resolver KeyResolver
}

// New creates a client for the given JWKS endpoint. The resolver chain is
// assembled here once, innermost first, and never reassigned: the cache (if
// enabled) is the outermost layer with the throttle directly beneath it, so
// a cache hit skips the throttle and a throttle rejection is never cached.
func New(jwksURI string, options ...Option) (*Client, error) {
	if jwksURI == "" {
		return nil, errors.New("a JWKS endpoint URI is required")
	}
	if _, err := url.Parse(jwksURI); err != nil {
		return nil, fmt.Errorf("invalid JWKS endpoint URI: %w", err)
	}

	cfg := getClientConfig(jwksURI, options...)
	if cfg.rateLimit && cfg.requestsPerMinute <= 0 {
		return nil, errors.New("requests per minute must be positive")
	}
	if cfg.cache && (cfg.cacheMaxEntries <= 0 || cfg.cacheMaxAge <= 0) {
		return nil, errors.New("cache capacity and max age must be positive")
	}

	var resolver KeyResolver = &keySetResolver{cfg: cfg}
	if cfg.rateLimit {
		throttled, err := newThrottlingResolver(resolver, cfg.requestsPerMinute, cfg.rateLimitWait)
		if err != nil {
			return nil, err
		}
		resolver = throttled
	}
	if cfg.coalesce {
		resolver = &coalescingResolver{next: resolver}
	}
	if cfg.cache {
		resolver = newCachingResolver(resolver, cfg.cacheMaxEntries, cfg.cacheMaxAge)
	}

	return &Client{cfg: cfg, resolver: resolver}, nil
}

// GetSigningKey resolves the signing key for the given key id through the
// configured resolver chain. An empty key id fails before any cache,
// throttle, or network work happens.
func (c *Client) GetSigningKey(ctx context.Context, keyID string) (*SigningKey, error) {
	if keyID == "" {
		return nil, ErrMissingKeyID
	}
	return c.resolver.ResolveSigningKey(ctx, keyID)
}

// GetSigningKeys fetches and converts the full key set. The call always goes
// to the endpoint: the cache and rate-limit layers decorate only the
// single-key path.
func (c *Client) GetSigningKeys(ctx context.Context) ([]SigningKey, error) {
	jwks, err := fetchKeySet(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	return convertKeySet(jwks, c.cfg.logger)
}

// GetKeys returns the raw key set document as published by the endpoint,
// without filtering or conversion. Exposed for diagnostics.
func (c *Client) GetKeys(ctx context.Context) (*JSONWebKeySet, error) {
	return fetchKeySet(ctx, c.cfg)
}
