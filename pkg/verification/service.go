// Package verification issues and consumes the single-use, time-boxed
// tokens that prove ownership of an email address or phone number, and the
// password reset token.
//
// Only the SHA-256 digest of a raw token is ever stored; the raw value is
// returned to the caller once, for out-of-band delivery. Issuing a token
// overwrites any prior outstanding token for the same (identity, purpose)
// in the same atomic update, and consumption clears the stored record in
// the same atomic update that applies the purpose's effect, so a replay of
// the same raw value can never succeed twice. Expiry is checked lazily at
// consumption time.
package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/verture/identity-core/pkg/identity"
	"github.com/verture/identity-core/pkg/utils"
)

// Channel identifies which contact value a token proves ownership of.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Default token lifetimes.
const (
	DefaultEmailTokenTTL = 24 * time.Hour
	DefaultPhoneCodeTTL  = 10 * time.Minute
	DefaultResetTokenTTL = 10 * time.Minute

	tokenBytes = 32
	codeDigits = 6
)

// IssuedToken carries a freshly issued raw token and where to deliver it.
// The raw value must not be logged or persisted.
type IssuedToken struct {
	Raw         string
	Channel     Channel
	Destination string
	ExpiresAt   time.Time
}

// Service is the verification token service.
type Service struct {
	repo          identity.Repository
	emailTokenTTL time.Duration
	phoneCodeTTL  time.Duration
	resetTokenTTL time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithEmailTokenTTL sets the email verification token lifetime
func WithEmailTokenTTL(d time.Duration) Option {
	return func(s *Service) { s.emailTokenTTL = d }
}

// WithPhoneCodeTTL sets the phone verification code lifetime
func WithPhoneCodeTTL(d time.Duration) Option {
	return func(s *Service) { s.phoneCodeTTL = d }
}

// WithResetTokenTTL sets the password reset token lifetime
func WithResetTokenTTL(d time.Duration) Option {
	return func(s *Service) { s.resetTokenTTL = d }
}

// NewService creates a verification token service
func NewService(repo identity.Repository, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		emailTokenTTL: DefaultEmailTokenTTL,
		phoneCodeTTL:  DefaultPhoneCodeTTL,
		resetTokenTTL: DefaultResetTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueEmailVerification issues a token proving ownership of the identity's
// current email address. Any prior outstanding email token is invalidated in
// the same update.
func (s *Service) IssueEmailVerification(ctx context.Context, id uuid.UUID) (IssuedToken, error) {
	raw, err := utils.GenerateSecureToken(tokenBytes)
	if err != nil {
		return IssuedToken{}, err
	}
	expiresAt := time.Now().UTC().Add(s.emailTokenTTL)

	var destination string
	_, err = s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		if ident.Email == "" {
			return ErrNoContactValue
		}
		destination = ident.Email
		ident.EmailToken = &identity.TokenRecord{Hash: utils.HashToken(raw), ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return IssuedToken{}, err
	}

	slog.Info("Issued email verification token", "identity_id", id, "expires_at", expiresAt)
	return IssuedToken{Raw: raw, Channel: ChannelEmail, Destination: destination, ExpiresAt: expiresAt}, nil
}

// IssuePhoneVerification issues a numeric code proving ownership of the
// identity's current phone number.
func (s *Service) IssuePhoneVerification(ctx context.Context, id uuid.UUID) (IssuedToken, error) {
	code, err := utils.GenerateNumericCode(codeDigits)
	if err != nil {
		return IssuedToken{}, err
	}
	expiresAt := time.Now().UTC().Add(s.phoneCodeTTL)

	var destination string
	_, err = s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		if ident.Phone == "" {
			return ErrNoContactValue
		}
		destination = ident.Phone
		ident.PhoneCode = &identity.TokenRecord{Hash: utils.HashToken(code), ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return IssuedToken{}, err
	}

	slog.Info("Issued phone verification code", "identity_id", id, "expires_at", expiresAt)
	return IssuedToken{Raw: code, Channel: ChannelPhone, Destination: destination, ExpiresAt: expiresAt}, nil
}

// IssuePasswordReset issues a password reset token, invalidating any prior
// outstanding reset token in the same update.
func (s *Service) IssuePasswordReset(ctx context.Context, id uuid.UUID) (IssuedToken, error) {
	raw, err := utils.GenerateSecureToken(tokenBytes)
	if err != nil {
		return IssuedToken{}, err
	}
	expiresAt := time.Now().UTC().Add(s.resetTokenTTL)

	var destination string
	_, err = s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		destination = ident.Email
		ident.ResetToken = &identity.TokenRecord{Hash: utils.HashToken(raw), ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return IssuedToken{}, err
	}

	slog.Info("Issued password reset token", "identity_id", id, "expires_at", expiresAt)
	return IssuedToken{Raw: raw, Channel: ChannelEmail, Destination: destination, ExpiresAt: expiresAt}, nil
}

// ConsumeEmailToken validates a raw email token and applies its effect:
// either the initial verification of the current address, or the commit of
// a staged email change. Clearing the token and applying the effect happen
// in one atomic update; a failed match leaves the stored token untouched.
func (s *Service) ConsumeEmailToken(ctx context.Context, rawToken string) (identity.Identity, error) {
	hash := utils.HashToken(rawToken)
	found, err := s.repo.FindByEmailTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Identity{}, ErrInvalidOrExpiredToken
		}
		return identity.Identity{}, err
	}

	now := time.Now().UTC()
	return s.repo.Update(ctx, found.ID, func(ident *identity.Identity) error {
		switch {
		case tokenMatches(ident.EmailToken, hash, now):
			ident.EmailVerified = true
			ident.EmailToken = nil
			return nil
		case pendingMatches(ident.PendingEmail, hash, now):
			ident.Email = ident.PendingEmail.NewValue
			ident.EmailVerified = true
			ident.PendingEmail = nil
			ident.EmailToken = nil
			return nil
		default:
			return ErrInvalidOrExpiredToken
		}
	})
}

// ConsumePhoneCode validates a numeric code for the given identity and
// applies its effect: initial phone verification or commit of a staged
// phone change.
func (s *Service) ConsumePhoneCode(ctx context.Context, id uuid.UUID, code string) (identity.Identity, error) {
	hash := utils.HashToken(code)
	now := time.Now().UTC()

	updated, err := s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		switch {
		case tokenMatches(ident.PhoneCode, hash, now):
			ident.PhoneVerified = true
			ident.PhoneCode = nil
			return nil
		case pendingMatches(ident.PendingPhone, hash, now):
			ident.Phone = ident.PendingPhone.NewValue
			ident.PhoneVerified = true
			ident.PendingPhone = nil
			ident.PhoneCode = nil
			return nil
		default:
			return ErrInvalidOrExpiredToken
		}
	})
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Identity{}, ErrInvalidOrExpiredToken
		}
		return identity.Identity{}, err
	}
	return updated, nil
}

// ConsumePasswordReset validates a raw reset token and, in the same atomic
// update that clears it, installs the new password hash, resets the attempt
// counter and unlocks the account. On failure the password is unchanged.
func (s *Service) ConsumePasswordReset(ctx context.Context, rawToken string, newHash []byte) (identity.Identity, error) {
	hash := utils.HashToken(rawToken)
	found, err := s.repo.FindByResetTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Identity{}, ErrInvalidOrExpiredToken
		}
		return identity.Identity{}, err
	}

	now := time.Now().UTC()
	return s.repo.Update(ctx, found.ID, func(ident *identity.Identity) error {
		if !tokenMatches(ident.ResetToken, hash, now) {
			return ErrInvalidOrExpiredToken
		}
		ident.ResetToken = nil
		ident.PasswordHash = newHash
		ident.LoginAttempts = 0
		ident.Locked = false
		return nil
	})
}

// RequestContactChange stages a new email or phone value and issues its
// proof-of-ownership token. The canonical field and its verified flag stay
// untouched until the token is consumed. Fails when newValue collides with
// another identity.
func (s *Service) RequestContactChange(ctx context.Context, id uuid.UUID, channel Channel, newValue string) (IssuedToken, error) {
	switch channel {
	case ChannelEmail:
		inUse, err := s.repo.EmailInUse(ctx, newValue, id)
		if err != nil {
			return IssuedToken{}, err
		}
		if inUse {
			return IssuedToken{}, identity.ErrDuplicateEmail
		}

		raw, err := utils.GenerateSecureToken(tokenBytes)
		if err != nil {
			return IssuedToken{}, err
		}
		expiresAt := time.Now().UTC().Add(s.emailTokenTTL)

		_, err = s.repo.Update(ctx, id, func(ident *identity.Identity) error {
			ident.PendingEmail = &identity.PendingChange{
				NewValue: newValue,
				Token:    identity.TokenRecord{Hash: utils.HashToken(raw), ExpiresAt: expiresAt},
			}
			return nil
		})
		if err != nil {
			return IssuedToken{}, err
		}
		return IssuedToken{Raw: raw, Channel: ChannelEmail, Destination: newValue, ExpiresAt: expiresAt}, nil

	case ChannelPhone:
		inUse, err := s.repo.PhoneInUse(ctx, newValue, id)
		if err != nil {
			return IssuedToken{}, err
		}
		if inUse {
			return IssuedToken{}, identity.ErrDuplicatePhone
		}

		code, err := utils.GenerateNumericCode(codeDigits)
		if err != nil {
			return IssuedToken{}, err
		}
		expiresAt := time.Now().UTC().Add(s.phoneCodeTTL)

		_, err = s.repo.Update(ctx, id, func(ident *identity.Identity) error {
			ident.PendingPhone = &identity.PendingChange{
				NewValue: newValue,
				Token:    identity.TokenRecord{Hash: utils.HashToken(code), ExpiresAt: expiresAt},
			}
			return nil
		})
		if err != nil {
			return IssuedToken{}, err
		}
		return IssuedToken{Raw: code, Channel: ChannelPhone, Destination: newValue, ExpiresAt: expiresAt}, nil

	default:
		return IssuedToken{}, ErrUnknownChannel
	}
}

// ResendVerification re-issues the outstanding verification for a channel:
// for a staged change it re-issues the staged value's token, otherwise the
// initial verification of the current value. The prior token is invalidated
// by the overwrite. Fails with ErrAlreadyVerified when the channel is
// verified and nothing is staged.
func (s *Service) ResendVerification(ctx context.Context, id uuid.UUID, channel Channel) (IssuedToken, error) {
	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return IssuedToken{}, err
	}

	switch channel {
	case ChannelEmail:
		if ident.PendingEmail != nil {
			return s.RequestContactChange(ctx, id, ChannelEmail, ident.PendingEmail.NewValue)
		}
		if ident.EmailVerified {
			return IssuedToken{}, ErrAlreadyVerified
		}
		return s.IssueEmailVerification(ctx, id)

	case ChannelPhone:
		if ident.PendingPhone != nil {
			return s.RequestContactChange(ctx, id, ChannelPhone, ident.PendingPhone.NewValue)
		}
		if ident.PhoneVerified {
			return IssuedToken{}, ErrAlreadyVerified
		}
		return s.IssuePhoneVerification(ctx, id)

	default:
		return IssuedToken{}, ErrUnknownChannel
	}
}

func tokenMatches(rec *identity.TokenRecord, hash string, now time.Time) bool {
	if rec == nil || rec.Expired(now) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(rec.Hash), []byte(hash)) == 1
}

func pendingMatches(p *identity.PendingChange, hash string, now time.Time) bool {
	if p == nil {
		return false
	}
	return tokenMatches(&p.Token, hash, now)
}
