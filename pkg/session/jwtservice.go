// Package session mints and verifies the stateless, signed session
// credential returned after a successful login. A session asserts identity
// id and role for a bounded time and is verifiable without a store lookup.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/verture/identity-core/pkg/identity"
)

// DefaultSessionExpiry is the fixed lifetime of an issued session.
const DefaultSessionExpiry = 24 * time.Hour

var (
	// ErrInvalidSession is returned when a credential fails signature or
	// time validation.
	ErrInvalidSession = errors.New("invalid session credential")
)

// Claims are the JWT claims carried by a session credential.
type Claims struct {
	Role          string `json:"role"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	PhoneVerified bool   `json:"phone_verified"`
	jwt.RegisteredClaims
}

// JwtService issues and parses session credentials using HS256.
type JwtService struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// Option configures a JwtService
type Option func(*JwtService)

// WithExpiry sets the session lifetime
func WithExpiry(d time.Duration) Option {
	return func(s *JwtService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithIssuer sets the iss claim
func WithIssuer(issuer string) Option {
	return func(s *JwtService) { s.issuer = issuer }
}

// NewJwtService creates a session issuer with the given signing secret
func NewJwtService(secret string, opts ...Option) *JwtService {
	s := &JwtService{
		secret: []byte(secret),
		issuer: "identity-core",
		expiry: DefaultSessionExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueSession mints a signed credential for an authenticated identity.
func (s *JwtService) IssueSession(ident identity.Identity) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiry)

	claims := Claims{
		Role:          string(ident.Role),
		Name:          ident.Name,
		Email:         ident.Email,
		EmailVerified: ident.EmailVerified,
		PhoneVerified: ident.PhoneVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseSession validates a credential and returns its claims.
func (s *JwtService) ParseSession(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// SubjectID extracts the identity id from validated claims.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Secret exposes the signing secret for jwtauth middleware wiring.
func (s *JwtService) Secret() []byte {
	return s.secret
}
