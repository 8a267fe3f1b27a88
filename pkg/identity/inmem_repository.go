package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage.
// All operations are serialized by a single mutex, which gives Update its
// atomic read-modify-write guarantee. Intended for tests and local runs.
type InMemoryRepository struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]Identity
	byEmail    map[string]uuid.UUID
	byPhone    map[string]uuid.UUID
}

// NewInMemoryRepository creates a new in-memory identity repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		identities: make(map[uuid.UUID]Identity),
		byEmail:    make(map[string]uuid.UUID),
		byPhone:    make(map[string]uuid.UUID),
	}
}

// Create stores a new identity, enforcing email and phone uniqueness
func (r *InMemoryRepository) Create(ctx context.Context, ident Identity) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[ident.Email]; exists {
		return Identity{}, ErrDuplicateEmail
	}
	if ident.Phone != "" {
		if _, exists := r.byPhone[ident.Phone]; exists {
			return Identity{}, ErrDuplicatePhone
		}
	}

	if ident.ID == uuid.Nil {
		ident.ID = uuid.New()
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}
	ident.Version = 1

	r.identities[ident.ID] = ident.Clone()
	r.byEmail[ident.Email] = ident.ID
	if ident.Phone != "" {
		r.byPhone[ident.Phone] = ident.ID
	}
	return ident, nil
}

// GetByID returns the identity with the given id
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ident, ok := r.identities[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return ident.Clone(), nil
}

// GetByEmail returns the identity with the given (normalized) email
func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return r.identities[id].Clone(), nil
}

// FindByEmailTokenHash finds the identity holding the given email token hash,
// either as an initial verification token or on a staged email change.
func (r *InMemoryRepository) FindByEmailTokenHash(ctx context.Context, hash string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ident := range r.identities {
		if ident.EmailToken != nil && ident.EmailToken.Hash == hash {
			return ident.Clone(), nil
		}
		if ident.PendingEmail != nil && ident.PendingEmail.Token.Hash == hash {
			return ident.Clone(), nil
		}
	}
	return Identity{}, ErrNotFound
}

// FindByResetTokenHash finds the identity holding the given reset token hash
func (r *InMemoryRepository) FindByResetTokenHash(ctx context.Context, hash string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ident := range r.identities {
		if ident.ResetToken != nil && ident.ResetToken.Hash == hash {
			return ident.Clone(), nil
		}
	}
	return Identity{}, ErrNotFound
}

// EmailInUse reports whether an email is claimed by an identity other than exclude
func (r *InMemoryRepository) EmailInUse(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	return ok && id != exclude, nil
}

// PhoneInUse reports whether a phone number is claimed by an identity other than exclude
func (r *InMemoryRepository) PhoneInUse(ctx context.Context, phone string, exclude uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phone]
	return ok && id != exclude, nil
}

// Update applies fn to the identity under the repository lock and persists
// the result, re-validating email/phone uniqueness when fn changed them.
func (r *InMemoryRepository) Update(ctx context.Context, id uuid.UUID, fn func(*Identity) error) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.identities[id]
	if !ok {
		return Identity{}, ErrNotFound
	}

	updated := stored.Clone()
	if err := fn(&updated); err != nil {
		return Identity{}, err
	}

	// fn must not reassign the row to another identity.
	updated.ID = stored.ID
	updated.CreatedAt = stored.CreatedAt

	if updated.Email != stored.Email {
		if other, exists := r.byEmail[updated.Email]; exists && other != id {
			return Identity{}, ErrDuplicateEmail
		}
	}
	if updated.Phone != stored.Phone && updated.Phone != "" {
		if other, exists := r.byPhone[updated.Phone]; exists && other != id {
			return Identity{}, ErrDuplicatePhone
		}
	}

	if updated.Email != stored.Email {
		delete(r.byEmail, stored.Email)
		r.byEmail[updated.Email] = id
	}
	if updated.Phone != stored.Phone {
		if stored.Phone != "" {
			delete(r.byPhone, stored.Phone)
		}
		if updated.Phone != "" {
			r.byPhone[updated.Phone] = id
		}
	}

	updated.Version = stored.Version + 1
	r.identities[id] = updated.Clone()
	return updated, nil
}

// GetStats summarizes the security state of the store
func (r *InMemoryRepository) GetStats(ctx context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	stats := Stats{}
	for _, ident := range r.identities {
		stats.TotalIdentities++
		if ident.EmailVerified {
			stats.EmailVerified++
		}
		if ident.PhoneVerified {
			stats.PhoneVerified++
		}
		if ident.Locked {
			stats.LockedAccounts++
		}
		if ident.CreatedAt.After(cutoff) {
			stats.RecentRegistrations++
		}
	}
	return stats, nil
}
