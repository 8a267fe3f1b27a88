package credential

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/verture/identity-core/pkg/identity"
)

// DefaultLockoutThreshold is the number of consecutive failed logins after
// which an account is locked.
const DefaultLockoutThreshold = 5

var (
	// ErrAccountLocked is returned when the identity is locked, regardless
	// of whether the supplied password was correct.
	ErrAccountLocked = errors.New("account is locked")
)

// Service performs password hashing/verification and lockout bookkeeping.
type Service struct {
	repo      identity.Repository
	hasher    PasswordHasher
	policy    PasswordPolicy
	threshold int
}

// Option configures a Service
type Option func(*Service)

// WithLockoutThreshold overrides the failed-attempt threshold
func WithLockoutThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithPolicy overrides the password complexity policy
func WithPolicy(p PasswordPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// NewService creates a credential service
func NewService(repo identity.Repository, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		hasher:    hasher,
		policy:    DefaultPasswordPolicy(),
		threshold: DefaultLockoutThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active password complexity policy
func (s *Service) Policy() PasswordPolicy {
	return s.policy
}

// HashPassword checks the password against the policy and derives the hash
func (s *Service) HashPassword(password string) ([]byte, error) {
	if err := s.policy.Check(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return []byte(hash), nil
}

// VerifyPassword compares a plaintext password against a stored hash
func (s *Service) VerifyPassword(password string, hash []byte) (bool, error) {
	return s.hasher.Verify(password, string(hash))
}

// RecordLoginResult updates the identity's attempt counter atomically.
// A success resets the counter and clears the lock; a failure increments it
// and locks the account once the threshold is reached.
func (s *Service) RecordLoginResult(ctx context.Context, id uuid.UUID, success bool) (identity.Identity, error) {
	return s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		now := time.Now().UTC()
		if success {
			ident.LoginAttempts = 0
			ident.Locked = false
			ident.LastLogin = &now
			return nil
		}

		ident.LoginAttempts++
		ident.LastFailedLogin = &now
		if ident.LoginAttempts >= s.threshold {
			if !ident.Locked {
				slog.Warn("Account locked after repeated failed logins",
					"identity_id", ident.ID, "attempts", ident.LoginAttempts)
			}
			ident.Locked = true
		}
		return nil
	})
}

// AdminUnlock clears the lock and the attempt counter. Administrative
// override; the caller is responsible for auditing it.
func (s *Service) AdminUnlock(ctx context.Context, id uuid.UUID) (identity.Identity, error) {
	return s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		ident.Locked = false
		ident.LoginAttempts = 0
		return nil
	})
}
