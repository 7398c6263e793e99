// Package auth provides pluggable request authentication for the isobox
// service, an in-memory cache for authentication results, and the execution
// deduplication cache.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iarunsaragadam/isobox/config"
)

// Sentinel errors for authentication failures. Strategies wrap these with
// detail; transports branch on them with errors.Is.
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConfiguration      = errors.New("auth configuration error")
)

// Result represents the outcome of authenticating a request
type Result struct {
	UserID        string            `json:"user_id,omitempty"`
	Permissions   []string          `json:"permissions,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Authenticated bool              `json:"authenticated"`
}

// HasPermission reports whether the result carries the given permission.
func (r *Result) HasPermission(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Strategy authenticates an HTTP request. Implementations must be safe for
// concurrent use.
type Strategy interface {
	Authenticate(r *http.Request) (*Result, error)
	Name() string
}

// Service applies a strategy with a cache in front of it. Successful results
// are cached keyed by the request's credential headers; failures are not.
type Service struct {
	strategy Strategy
	cache    *Cache
}

// NewService builds the authentication service selected by the configuration.
func NewService(cfg *config.Config) (*Service, error) {
	strategy, err := newStrategy(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		strategy: strategy,
		cache:    NewCache(cfg.AuthCacheSize, cfg.AuthCacheTTL),
	}, nil
}

// newStrategy is the factory keyed on AUTH_TYPE.
func newStrategy(cfg *config.Config) (Strategy, error) {
	switch cfg.AuthType {
	case "", "none":
		return &NoneStrategy{}, nil
	case "apikey":
		if len(cfg.APIKeys) == 0 {
			return nil, fmt.Errorf("%w: apikey auth requires API_KEYS", ErrConfiguration)
		}
		return NewAPIKeyStrategy(cfg.APIKeyHeader, cfg.APIKeys), nil
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("%w: jwt auth requires JWT_SECRET", ErrConfiguration)
		}
		return NewJWTStrategy(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience), nil
	default:
		return nil, fmt.Errorf("%w: unknown auth type %q", ErrConfiguration, cfg.AuthType)
	}
}

// StrategyName returns the name of the configured strategy.
func (s *Service) StrategyName() string {
	return s.strategy.Name()
}

// Authenticate resolves the request against the cache first and falls back to
// the strategy, caching successful results.
func (s *Service) Authenticate(r *http.Request) (*Result, error) {
	key := cacheKey(r)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	result, err := s.strategy.Authenticate(r)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, result)
	return result, nil
}
