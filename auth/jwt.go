package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims represents the JWT claims isobox understands
type UserClaims struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// JWTStrategy validates HS256 bearer tokens from the Authorization header.
type JWTStrategy struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTStrategy creates a JWT strategy. Issuer and audience checks are only
// applied when the corresponding value is non-empty.
func NewJWTStrategy(secret, issuer, audience string) *JWTStrategy {
	return &JWTStrategy{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Authenticate parses and validates the bearer token
func (s *JWTStrategy) Authenticate(r *http.Request) (*Result, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("%w: no Authorization header", ErrMissingCredentials)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, fmt.Errorf("%w: invalid Authorization header format", ErrMissingCredentials)
	}

	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrInvalidCredentials)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidCredentials)
	}
	if s.audience != "" && !containsAudience(claims.Audience, s.audience) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidCredentials)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}

	permissions := claims.Permissions
	if len(permissions) == 0 {
		permissions = []string{"execute", "read"}
	}

	return &Result{
		UserID:        userID,
		Permissions:   permissions,
		Authenticated: true,
		Metadata: map[string]string{
			"auth_type": "jwt",
			"issuer":    claims.Issuer,
		},
	}, nil
}

// Name returns the strategy name
func (s *JWTStrategy) Name() string {
	return "jwt"
}

func containsAudience(audience jwt.ClaimStrings, expected string) bool {
	for _, aud := range audience {
		if aud == expected {
			return true
		}
	}
	return false
}
