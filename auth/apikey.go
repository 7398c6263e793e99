package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyStrategy validates a shared key carried in a request header. A
// configured key that looks like a bcrypt hash is compared with bcrypt so
// deployments never have to put plaintext keys in the environment.
type APIKeyStrategy struct {
	headerName string
	keys       []string
}

// NewAPIKeyStrategy creates an API key strategy.
func NewAPIKeyStrategy(headerName string, keys []string) *APIKeyStrategy {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	return &APIKeyStrategy{headerName: headerName, keys: keys}
}

// Authenticate checks the request's API key header against the configured keys
func (s *APIKeyStrategy) Authenticate(r *http.Request) (*Result, error) {
	apiKey := strings.TrimSpace(r.Header.Get(s.headerName))
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no %s header", ErrMissingCredentials, s.headerName)
	}

	if !s.validKey(apiKey) {
		return nil, fmt.Errorf("%w: invalid API key", ErrInvalidCredentials)
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	return &Result{
		UserID:        "apikey:" + prefix,
		Permissions:   []string{"execute", "read", "write"},
		Authenticated: true,
		Metadata: map[string]string{
			"auth_type":      "apikey",
			"api_key_prefix": prefix,
		},
	}, nil
}

// Name returns the strategy name
func (s *APIKeyStrategy) Name() string {
	return "apikey"
}

func (s *APIKeyStrategy) validKey(candidate string) bool {
	valid := false
	for _, key := range s.keys {
		if isBcryptHash(key) {
			if bcrypt.CompareHashAndPassword([]byte(key), []byte(candidate)) == nil {
				valid = true
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			valid = true
		}
	}
	return valid
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
