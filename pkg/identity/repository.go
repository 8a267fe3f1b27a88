package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common repository errors
var (
	// ErrNotFound is returned when no identity matches the lookup.
	ErrNotFound = errors.New("identity not found")

	// ErrDuplicateEmail is returned when an email is already claimed by
	// another identity.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrDuplicatePhone is returned when a phone number is already claimed
	// by another identity.
	ErrDuplicatePhone = errors.New("phone number already in use")

	// ErrVersionConflict is returned when an optimistic update loses the
	// compare-and-set race and retries are exhausted.
	ErrVersionConflict = errors.New("identity was modified concurrently")
)

// Stats summarizes the security state of the store, for the admin surface.
type Stats struct {
	TotalIdentities     int64 `json:"total_identities"`
	EmailVerified       int64 `json:"email_verified"`
	PhoneVerified       int64 `json:"phone_verified"`
	LockedAccounts      int64 `json:"locked_accounts"`
	RecentRegistrations int64 `json:"recent_registrations"` // last 30 days
}

// Repository is the durable store of identities.
//
// Update applies fn to the current state of one identity as a single atomic
// read-modify-write and persists the result. If fn returns an error the
// identity is left untouched and the error is returned verbatim. Uniqueness
// of email and phone is re-validated on persist, so a staged contact change
// committed by fn fails with ErrDuplicateEmail/ErrDuplicatePhone when the
// value was claimed since staging.
type Repository interface {
	Create(ctx context.Context, ident Identity) (Identity, error)
	GetByID(ctx context.Context, id uuid.UUID) (Identity, error)
	GetByEmail(ctx context.Context, email string) (Identity, error)

	// Token lookups search both the initial-verification record and the
	// staged pending change for the channel.
	FindByEmailTokenHash(ctx context.Context, hash string) (Identity, error)
	FindByResetTokenHash(ctx context.Context, hash string) (Identity, error)

	EmailInUse(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	PhoneInUse(ctx context.Context, phone string, exclude uuid.UUID) (bool, error)

	Update(ctx context.Context, id uuid.UUID, fn func(*Identity) error) (Identity, error)

	GetStats(ctx context.Context) (Stats, error)
}
