package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/shakthivel10/FSND/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultJWKSCacheTTL     = time.Hour
	defaultJWKSMaxStale     = 15 * time.Minute
	defaultJWKSMinRefresh   = 10 * time.Second
	defaultJWKSFetchTimeout = 5 * time.Second
	maxJWKSResponseBytes    = 1 << 20
	jwksRefreshFlightKey    = "jwks"
)

var (
	// ErrKeyNotFound means no cached key carries the requested kid.
	ErrKeyNotFound = errors.New("signing key not found")
	// ErrNoUsableKeys means a fetched key set held no RSA signing keys.
	ErrNoUsableKeys = errors.New("key set contains no usable RSA signing keys")
)

type keyState int

const (
	keyMissing keyState = iota
	keyFresh
	keyStale
)

// KeySet resolves key ids to RSA public keys published at a JWKS URL.
// Keys are cached for a TTL; past it a refresh is attempted and, if that
// fails, keys are served for a further grace window. Concurrent refreshes
// share one fetch, and unknown kids trigger at most one fetch per minimum
// refresh interval.
type KeySet struct {
	url          string
	httpClient   *http.Client
	ttl          time.Duration
	maxStale     time.Duration
	minRefresh   time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
	metrics      *metrics.Metrics

	group singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
}

// KeySetOption configures a KeySet.
type KeySetOption func(*KeySet)

// WithHTTPClient sets the client used to fetch the key set.
func WithHTTPClient(c *http.Client) KeySetOption {
	return func(s *KeySet) { s.httpClient = c }
}

// WithCacheTTL sets how long fetched keys are considered fresh.
func WithCacheTTL(d time.Duration) KeySetOption {
	return func(s *KeySet) { s.ttl = d }
}

// WithMaxStale sets how long past the TTL keys are served when a refresh fails.
func WithMaxStale(d time.Duration) KeySetOption {
	return func(s *KeySet) { s.maxStale = d }
}

// WithMinRefreshInterval sets the minimum time between two fetch attempts.
func WithMinRefreshInterval(d time.Duration) KeySetOption {
	return func(s *KeySet) { s.minRefresh = d }
}

// WithFetchTimeout bounds a single fetch.
func WithFetchTimeout(d time.Duration) KeySetOption {
	return func(s *KeySet) { s.fetchTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) KeySetOption {
	return func(s *KeySet) { s.now = now }
}

// WithKeySetLogger sets the logger for refresh events.
func WithKeySetLogger(l *zap.Logger) KeySetOption {
	return func(s *KeySet) { s.logger = l }
}

// WithKeySetMetrics sets the metrics sink.
func WithKeySetMetrics(m *metrics.Metrics) KeySetOption {
	return func(s *KeySet) { s.metrics = m }
}

// NewKeySet creates an empty key set. Nothing is fetched until the first
// lookup or an explicit Refresh.
func NewKeySet(url string, opts ...KeySetOption) *KeySet {
	s := &KeySet{
		url:          url,
		ttl:          defaultJWKSCacheTTL,
		maxStale:     defaultJWKSMaxStale,
		minRefresh:   defaultJWKSMinRefresh,
		fetchTimeout: defaultJWKSFetchTimeout,
		now:          time.Now,
		logger:       zap.NewNop(),
		keys:         map[string]*rsa.PublicKey{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.fetchTimeout}
	}
	return s
}

// Key returns the public key for kid, fetching the key set when the kid is
// unknown or the cached keys have expired.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, ErrKeyNotFound
	}

	key, state := s.lookup(kid)
	if state == keyFresh {
		s.metrics.RecordKeyLookup("hit")
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		if state == keyStale {
			s.metrics.RecordKeyLookup("stale")
			s.logger.Warn("Serving stale signing key after failed refresh",
				zap.String("kid", kid), zap.Error(err))
			return key, nil
		}
		s.metrics.RecordKeyLookup("miss")
		return nil, err
	}

	key, state = s.lookup(kid)
	switch state {
	case keyFresh:
		s.metrics.RecordKeyLookup("miss")
		return key, nil
	case keyStale:
		s.metrics.RecordKeyLookup("stale")
		return key, nil
	}
	s.metrics.RecordKeyLookup("miss")
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// Refresh fetches the key set now unless a fetch was attempted within the
// minimum refresh interval.
func (s *KeySet) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

// Len returns the number of cached keys.
func (s *KeySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *KeySet) lookup(kid string) (*rsa.PublicKey, keyState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[kid]
	if !ok {
		return nil, keyMissing
	}
	age := s.now().Sub(s.fetchedAt)
	if age < s.ttl {
		return key, keyFresh
	}
	if age < s.ttl+s.maxStale {
		return key, keyStale
	}
	return nil, keyMissing
}

// refresh runs at most one fetch at a time. Waiting callers give up when
// their context ends; the fetch itself carries on under its own timeout.
func (s *KeySet) refresh(ctx context.Context) error {
	ch := s.group.DoChan(jwksRefreshFlightKey, func() (interface{}, error) {
		s.mu.Lock()
		if !s.lastAttempt.IsZero() && s.now().Sub(s.lastAttempt) < s.minRefresh {
			s.mu.Unlock()
			return nil, nil
		}
		s.lastAttempt = s.now()
		s.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		defer cancel()

		keys, err := s.fetch(fetchCtx)
		s.metrics.RecordKeyRefresh(err, len(keys))
		if err != nil {
			s.logger.Error("Failed to refresh signing keys", zap.String("url", s.url), zap.Error(err))
			return nil, err
		}

		s.mu.Lock()
		s.keys = keys
		s.fetchedAt = s.now()
		s.mu.Unlock()

		s.logger.Info("Signing keys refreshed", zap.Int("keys", len(keys)))
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch key set: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch key set: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read key set: %w", err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if key.KeyType() != jwa.RSA || key.KeyID() == "" {
			continue
		}
		if use := key.KeyUsage(); use != "" && use != "sig" {
			continue
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			s.logger.Warn("Skipping malformed RSA key", zap.String("kid", key.KeyID()), zap.Error(err))
			continue
		}
		keys[key.KeyID()] = &pub
	}

	if len(keys) == 0 {
		return nil, ErrNoUsableKeys
	}
	return keys, nil
}
