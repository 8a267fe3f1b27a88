// Package identity defines the durable identity record and its repository.
//
// The Identity row is the only contended resource in the system. All
// security-relevant mutation goes through Repository.Update, which applies
// a mutation function as one atomic read-modify-write, so concurrent failed
// logins cannot under-count attempts and a token cannot be consumed twice.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// TokenRecord is the stored half of an outstanding single-use token: the
// SHA-256 hex digest of the raw value and its absolute expiry. The raw value
// is never persisted.
type TokenRecord struct {
	Hash      string
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at the given instant.
func (t TokenRecord) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// PendingChange is a staged contact value awaiting proof of ownership.
// The canonical field is untouched until the change's own token is consumed.
type PendingChange struct {
	NewValue string
	Token    TokenRecord
}

// Identity is the per-user security record.
type Identity struct {
	ID           uuid.UUID
	Name         string
	Email        string // case-normalized, unique
	Phone        string // E.164, unique when present, "" when absent
	PasswordHash []byte // one-way derivation, never serialized outward
	Role         Role

	EmailVerified bool
	PhoneVerified bool

	LoginAttempts   int
	Locked          bool
	LastLogin       *time.Time
	LastFailedLogin *time.Time

	// Outstanding verification of the current (non-staged) values.
	EmailToken *TokenRecord
	PhoneCode  *TokenRecord

	// Single active password reset token.
	ResetToken *TokenRecord

	// Staged contact changes, one per channel.
	PendingEmail *PendingChange
	PendingPhone *PendingChange

	CreatedAt time.Time

	// Version increments on every successful Update; the PostgreSQL
	// repository uses it as the compare-and-set guard.
	Version int64
}

// Public is the outward projection of an identity. It carries no password
// hash and no token material.
type Public struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	Locked        bool      `json:"locked"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public returns the outward projection of the identity.
func (i Identity) Public() Public {
	return Public{
		ID:            i.ID,
		Name:          i.Name,
		Email:         i.Email,
		Phone:         i.Phone,
		Role:          i.Role,
		EmailVerified: i.EmailVerified,
		PhoneVerified: i.PhoneVerified,
		Locked:        i.Locked,
		CreatedAt:     i.CreatedAt,
	}
}

// Clone returns a deep copy so repository callers can mutate freely inside
// an Update closure without aliasing stored state.
func (i Identity) Clone() Identity {
	out := i
	out.LastLogin = cloneTime(i.LastLogin)
	out.LastFailedLogin = cloneTime(i.LastFailedLogin)
	out.EmailToken = cloneToken(i.EmailToken)
	out.PhoneCode = cloneToken(i.PhoneCode)
	out.ResetToken = cloneToken(i.ResetToken)
	out.PendingEmail = clonePending(i.PendingEmail)
	out.PendingPhone = clonePending(i.PendingPhone)
	if i.PasswordHash != nil {
		out.PasswordHash = append([]byte(nil), i.PasswordHash...)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneToken(t *TokenRecord) *TokenRecord {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func clonePending(p *PendingChange) *PendingChange {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
