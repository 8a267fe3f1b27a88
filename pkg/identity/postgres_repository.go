package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// updateRetries bounds the optimistic concurrency loop in Update.
const updateRetries = 3

const identityColumns = `
	id, name, email, phone, password_hash, role,
	email_verified, phone_verified,
	login_attempts, locked, last_login, last_failed_login,
	email_token_hash, email_token_expires_at,
	phone_code_hash, phone_code_expires_at,
	reset_token_hash, reset_token_expires_at,
	pending_email_value, pending_email_token_hash, pending_email_expires_at,
	pending_phone_value, pending_phone_token_hash, pending_phone_expires_at,
	created_at, version`

// PostgresRepository implements Repository using PostgreSQL. Update relies
// on an optimistic version check: the UPDATE only matches when the version
// read is still current, so two concurrent mutations cannot both apply to
// the same snapshot.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-backed identity repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new identity
func (r *PostgresRepository) Create(ctx context.Context, ident Identity) (Identity, error) {
	if ident.ID == uuid.Nil {
		ident.ID = uuid.New()
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}
	ident.Version = 1

	query := `
		INSERT INTO identities (
			id, name, email, phone, password_hash, role,
			email_verified, phone_verified, login_attempts, locked,
			email_token_hash, email_token_expires_at,
			phone_code_hash, phone_code_expires_at,
			created_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Exec(ctx, query,
		ident.ID, ident.Name, ident.Email, nullString(ident.Phone),
		ident.PasswordHash, string(ident.Role),
		ident.EmailVerified, ident.PhoneVerified,
		ident.LoginAttempts, ident.Locked,
		tokenHash(ident.EmailToken), tokenExpiry(ident.EmailToken),
		tokenHash(ident.PhoneCode), tokenExpiry(ident.PhoneCode),
		ident.CreatedAt, ident.Version,
	)
	if err != nil {
		return Identity{}, mapUniqueViolation(err)
	}
	return ident, nil
}

// GetByID returns the identity with the given id
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Identity, error) {
	query := `SELECT` + identityColumns + ` FROM identities WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByEmail returns the identity with the given (normalized) email
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (Identity, error) {
	query := `SELECT` + identityColumns + ` FROM identities WHERE email = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

// FindByEmailTokenHash finds the identity holding the given email token hash,
// on the initial verification token or on a staged email change.
func (r *PostgresRepository) FindByEmailTokenHash(ctx context.Context, hash string) (Identity, error) {
	query := `SELECT` + identityColumns + `
		FROM identities
		WHERE email_token_hash = $1 OR pending_email_token_hash = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, hash))
}

// FindByResetTokenHash finds the identity holding the given reset token hash
func (r *PostgresRepository) FindByResetTokenHash(ctx context.Context, hash string) (Identity, error) {
	query := `SELECT` + identityColumns + ` FROM identities WHERE reset_token_hash = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, hash))
}

// EmailInUse reports whether an email is claimed by an identity other than exclude
func (r *PostgresRepository) EmailInUse(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identities WHERE email = $1 AND id <> $2)`,
		email, exclude,
	).Scan(&exists)
	return exists, err
}

// PhoneInUse reports whether a phone number is claimed by an identity other than exclude
func (r *PostgresRepository) PhoneInUse(ctx context.Context, phone string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identities WHERE phone = $1 AND id <> $2)`,
		phone, exclude,
	).Scan(&exists)
	return exists, err
}

// Update applies fn under an optimistic version check, retrying a bounded
// number of times when a concurrent writer got there first.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, fn func(*Identity) error) (Identity, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return Identity{}, err
		}

		updated := current.Clone()
		if err := fn(&updated); err != nil {
			return Identity{}, err
		}
		updated.ID = current.ID
		updated.CreatedAt = current.CreatedAt
		updated.Version = current.Version + 1

		query := `
			UPDATE identities SET
				name = $1, email = $2, phone = $3, password_hash = $4, role = $5,
				email_verified = $6, phone_verified = $7,
				login_attempts = $8, locked = $9,
				last_login = $10, last_failed_login = $11,
				email_token_hash = $12, email_token_expires_at = $13,
				phone_code_hash = $14, phone_code_expires_at = $15,
				reset_token_hash = $16, reset_token_expires_at = $17,
				pending_email_value = $18, pending_email_token_hash = $19, pending_email_expires_at = $20,
				pending_phone_value = $21, pending_phone_token_hash = $22, pending_phone_expires_at = $23,
				version = $24
			WHERE id = $25 AND version = $26
		`

		tag, err := r.db.Exec(ctx, query,
			updated.Name, updated.Email, nullString(updated.Phone),
			updated.PasswordHash, string(updated.Role),
			updated.EmailVerified, updated.PhoneVerified,
			updated.LoginAttempts, updated.Locked,
			updated.LastLogin, updated.LastFailedLogin,
			tokenHash(updated.EmailToken), tokenExpiry(updated.EmailToken),
			tokenHash(updated.PhoneCode), tokenExpiry(updated.PhoneCode),
			tokenHash(updated.ResetToken), tokenExpiry(updated.ResetToken),
			pendingValue(updated.PendingEmail), pendingHash(updated.PendingEmail), pendingExpiry(updated.PendingEmail),
			pendingValue(updated.PendingPhone), pendingHash(updated.PendingPhone), pendingExpiry(updated.PendingPhone),
			updated.Version, updated.ID, current.Version,
		)
		if err != nil {
			return Identity{}, mapUniqueViolation(err)
		}
		if tag.RowsAffected() == 1 {
			return updated, nil
		}
		// Lost the race, re-read and retry.
	}
	return Identity{}, ErrVersionConflict
}

// GetStats summarizes the security state of the store
func (r *PostgresRepository) GetStats(ctx context.Context) (Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE email_verified),
			COUNT(*) FILTER (WHERE phone_verified),
			COUNT(*) FILTER (WHERE locked),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '30 days')
		FROM identities
	`

	var stats Stats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalIdentities,
		&stats.EmailVerified,
		&stats.PhoneVerified,
		&stats.LockedAccounts,
		&stats.RecentRegistrations,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load identity stats: %w", err)
	}
	return stats, nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (Identity, error) {
	var (
		ident                              Identity
		phone                              *string
		role                               string
		emailTokenHash, phoneCodeHash      *string
		resetTokenHash                     *string
		emailTokenExp, phoneCodeExp        *time.Time
		resetTokenExp                      *time.Time
		pendEmailVal, pendEmailHash        *string
		pendEmailExp                       *time.Time
		pendPhoneVal, pendPhoneHash        *string
		pendPhoneExp                       *time.Time
	)

	err := row.Scan(
		&ident.ID, &ident.Name, &ident.Email, &phone, &ident.PasswordHash, &role,
		&ident.EmailVerified, &ident.PhoneVerified,
		&ident.LoginAttempts, &ident.Locked, &ident.LastLogin, &ident.LastFailedLogin,
		&emailTokenHash, &emailTokenExp,
		&phoneCodeHash, &phoneCodeExp,
		&resetTokenHash, &resetTokenExp,
		&pendEmailVal, &pendEmailHash, &pendEmailExp,
		&pendPhoneVal, &pendPhoneHash, &pendPhoneExp,
		&ident.CreatedAt, &ident.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}

	if phone != nil {
		ident.Phone = *phone
	}
	ident.Role = Role(role)
	ident.EmailToken = buildToken(emailTokenHash, emailTokenExp)
	ident.PhoneCode = buildToken(phoneCodeHash, phoneCodeExp)
	ident.ResetToken = buildToken(resetTokenHash, resetTokenExp)
	ident.PendingEmail = buildPending(pendEmailVal, pendEmailHash, pendEmailExp)
	ident.PendingPhone = buildPending(pendPhoneVal, pendPhoneHash, pendPhoneExp)
	return ident, nil
}

func buildToken(hash *string, exp *time.Time) *TokenRecord {
	if hash == nil || exp == nil {
		return nil
	}
	return &TokenRecord{Hash: *hash, ExpiresAt: *exp}
}

func buildPending(value, hash *string, exp *time.Time) *PendingChange {
	if value == nil || hash == nil || exp == nil {
		return nil
	}
	return &PendingChange{NewValue: *value, Token: TokenRecord{Hash: *hash, ExpiresAt: *exp}}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func tokenHash(t *TokenRecord) *string {
	if t == nil {
		return nil
	}
	return &t.Hash
}

func tokenExpiry(t *TokenRecord) *time.Time {
	if t == nil {
		return nil
	}
	return &t.ExpiresAt
}

func pendingValue(p *PendingChange) *string {
	if p == nil {
		return nil
	}
	return &p.NewValue
}

func pendingHash(p *PendingChange) *string {
	if p == nil {
		return nil
	}
	return &p.Token.Hash
}

func pendingExpiry(p *PendingChange) *time.Time {
	if p == nil {
		return nil
	}
	return &p.Token.ExpiresAt
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "identities_phone_key":
			return ErrDuplicatePhone
		default:
			return ErrDuplicateEmail
		}
	}
	return err
}
