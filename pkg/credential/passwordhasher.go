// Package credential manages password hashing and verification and the
// login-attempt lockout bookkeeping on an identity.
package credential

// PasswordHasher abstracts the one-way password derivation so the algorithm
// and cost can change without touching callers.
type PasswordHasher interface {
	// Hash derives a storable hash from a plaintext password.
	Hash(password string) (string, error)

	// Verify compares a plaintext password against a stored hash using the
	// derivation's own constant-time compare. A mismatch is (false, nil),
	// not an error.
	Verify(password, hashedPassword string) (bool, error)
}
