// Package account orchestrates the identity lifecycle: registration, login
// with lockout, contact verification, password recovery and the admin
// surface. It composes the identity, credential, verification and session
// services and translates their sentinel errors into the shared taxonomy.
//
// Responses never disclose whether an email address is registered: login
// failures for unknown and known addresses share one error code and cost a
// comparable amount of work, and password reset requests acknowledge
// identically either way.
package account

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/verture/identity-core/pkg/audit"
	"github.com/verture/identity-core/pkg/credential"
	"github.com/verture/identity-core/pkg/errors"
	"github.com/verture/identity-core/pkg/identity"
	"github.com/verture/identity-core/pkg/notification"
	"github.com/verture/identity-core/pkg/session"
	"github.com/verture/identity-core/pkg/utils"
	"github.com/verture/identity-core/pkg/verification"
)

// defaultAuditPageSize bounds audit listings when no limit is requested.
const defaultAuditPageSize = 20

// AuditSink receives audit entries without blocking the caller.
type AuditSink interface {
	Record(entry audit.Entry)
}

// AuditLog reads back recorded entries, for the admin surface.
type AuditLog interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error)
}

// Service is the account orchestration service.
type Service struct {
	repo        identity.Repository
	credentials *credential.Service
	verifier    *verification.Service
	sessions    *session.JwtService
	notifier    *notification.NotificationManager
	auditor     AuditSink
	auditLog    AuditLog
	phoneRegion string

	// dummyHash is compared against when the login email is unknown, so
	// both outcomes cost one password verification.
	dummyHash []byte
}

// Option configures a Service
type Option func(*Service)

// WithNotificationManager enables out-of-band delivery of tokens and codes
func WithNotificationManager(nm *notification.NotificationManager) Option {
	return func(s *Service) { s.notifier = nm }
}

// WithAuditSink enables audit recording
func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) { s.auditor = sink }
}

// WithAuditLog enables audit read-back for the admin surface
func WithAuditLog(log AuditLog) Option {
	return func(s *Service) { s.auditLog = log }
}

// WithPhoneRegion sets the default region for phone numbers supplied
// without a country prefix
func WithPhoneRegion(region string) Option {
	return func(s *Service) { s.phoneRegion = region }
}

// NewService creates an account service
func NewService(repo identity.Repository, credentials *credential.Service, verifier *verification.Service, sessions *session.JwtService, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		credentials: credentials,
		verifier:    verifier,
		sessions:    sessions,
		phoneRegion: "US",
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := credentials.HashPassword("Enumeration9Padding")
	if err != nil {
		slog.Error("Failed to derive enumeration padding hash", "err", err)
	}
	s.dummyHash = dummy

	return s
}

// Register creates a new identity and issues its initial verification
// tokens. Token delivery is best effort and never fails the registration.
func (s *Service) Register(ctx context.Context, req RegisterRequest, origin audit.Origin) (identity.Public, error) {
	if err := req.Validate(); err != nil {
		return identity.Public{}, errors.Wrap(err, errors.ErrCodeValidation, "invalid registration request")
	}

	email := normalizeEmail(req.Email)
	phone := ""
	if req.Phone != "" {
		normalized, err := normalizePhone(req.Phone, s.phoneRegion)
		if err != nil {
			return identity.Public{}, err
		}
		phone = normalized
	}

	hash, err := s.credentials.HashPassword(req.Password)
	if err != nil {
		return identity.Public{}, errors.Wrap(err, errors.ErrCodeValidation, "password does not meet the policy")
	}

	created, err := s.repo.Create(ctx, identity.Identity{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         identity.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return identity.Public{}, mapIdentityErr(err)
	}

	if issued, err := s.verifier.IssueEmailVerification(ctx, created.ID); err != nil {
		slog.Error("Failed to issue email verification", "identity_id", created.ID, "err", err)
	} else {
		s.notify(notification.EmailVerificationNotice, notification.NotificationData{
			To: issued.Destination,
			Data: map[string]string{
				"Name":   created.Name,
				"Token":  issued.Raw,
				"Expiry": humanDuration(time.Until(issued.ExpiresAt)),
			},
		})
	}

	if phone != "" {
		if issued, err := s.verifier.IssuePhoneVerification(ctx, created.ID); err != nil {
			slog.Error("Failed to issue phone verification", "identity_id", created.ID, "err", err)
		} else {
			s.notify(notification.PhoneVerificationNotice, notification.NotificationData{
				To:   issued.Destination,
				Data: map[string]string{"Code": issued.Raw},
			})
		}
	}

	s.record(audit.NewEntry(&created.ID, audit.ActionRegister, "account registered", origin, map[string]interface{}{
		"email": utils.MaskEmail(created.Email),
	}))
	return created.Public(), nil
}

// Login authenticates an identity and mints a session credential.
//
// Unknown email and wrong password share one error code. A locked account
// is reported as locked regardless of whether the supplied password was
// correct, and stays locked until reset or an admin unlock.
func (s *Service) Login(ctx context.Context, req LoginRequest, origin audit.Origin) (LoginResult, error) {
	if err := req.Validate(); err != nil {
		return LoginResult{}, errors.Wrap(err, errors.ErrCodeValidation, "invalid login request")
	}

	email := normalizeEmail(req.Email)
	ident, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, identity.ErrNotFound) {
			// Burn one verification so the response time does not
			// reveal whether the address is registered.
			s.credentials.VerifyPassword(req.Password, s.dummyHash)
			s.record(audit.NewEntry(nil, audit.ActionFailedLogin, "login with unknown email", origin, map[string]interface{}{
				"email": utils.MaskEmail(email),
			}))
			return LoginResult{}, errors.New(errors.ErrCodeInvalidCredentials, "invalid email or password")
		}
		return LoginResult{}, errors.Wrap(err, errors.ErrCodeInternal, "login failed")
	}

	if ident.Locked {
		s.record(audit.NewEntry(&ident.ID, audit.ActionFailedLogin, "login attempt on locked account", origin, nil))
		return LoginResult{}, errors.New(errors.ErrCodeAccountLocked, "account is locked")
	}

	ok, err := s.credentials.VerifyPassword(req.Password, ident.PasswordHash)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, errors.ErrCodeInternal, "login failed")
	}
	if !ok {
		if _, err := s.credentials.RecordLoginResult(ctx, ident.ID, false); err != nil {
			slog.Error("Failed to record failed login", "identity_id", ident.ID, "err", err)
		}
		s.record(audit.NewEntry(&ident.ID, audit.ActionFailedLogin, "wrong password", origin, nil))
		return LoginResult{}, errors.New(errors.ErrCodeInvalidCredentials, "invalid email or password")
	}

	updated, err := s.credentials.RecordLoginResult(ctx, ident.ID, true)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, errors.ErrCodeInternal, "login failed")
	}

	token, expiresAt, err := s.sessions.IssueSession(updated)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to issue session")
	}

	s.record(audit.NewEntry(&updated.ID, audit.ActionLogin, "login succeeded", origin, nil))
	return LoginResult{Token: token, ExpiresAt: expiresAt, Identity: updated.Public()}, nil
}

// Logout records the end of a session. Session credentials are stateless,
// so there is nothing to revoke server-side before their expiry.
func (s *Service) Logout(ctx context.Context, id uuid.UUID, origin audit.Origin) {
	s.record(audit.NewEntry(&id, audit.ActionLogout, "logout", origin, nil))
}

// VerifyEmail consumes an emailed verification token: either the initial
// verification of the account's address or the commit of a staged change.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string, origin audit.Origin) (identity.Public, error) {
	updated, err := s.verifier.ConsumeEmailToken(ctx, rawToken)
	if err != nil {
		return identity.Public{}, mapVerificationErr(err)
	}

	s.record(audit.NewEntry(&updated.ID, audit.ActionVerifyEmail, "email verified", origin, map[string]interface{}{
		"email": utils.MaskEmail(updated.Email),
	}))
	return updated.Public(), nil
}

// VerifyPhone consumes a numeric SMS code for the given identity.
func (s *Service) VerifyPhone(ctx context.Context, id uuid.UUID, code string, origin audit.Origin) (identity.Public, error) {
	updated, err := s.verifier.ConsumePhoneCode(ctx, id, code)
	if err != nil {
		return identity.Public{}, mapVerificationErr(err)
	}

	s.record(audit.NewEntry(&updated.ID, audit.ActionVerifyPhone, "phone verified", origin, map[string]interface{}{
		"phone": utils.MaskPhone(updated.Phone),
	}))
	return updated.Public(), nil
}

// RequestPasswordReset issues a reset token and emails it to the account.
// The acknowledgement is identical whether or not the address is
// registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, origin audit.Origin) error {
	normalized := normalizeEmail(email)
	ident, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil {
		if stderrors.Is(err, identity.ErrNotFound) {
			s.record(audit.NewEntry(nil, audit.ActionResetPasswordRequest, "reset requested for unknown email", origin, map[string]interface{}{
				"email": utils.MaskEmail(normalized),
			}))
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "reset request failed")
	}

	issued, err := s.verifier.IssuePasswordReset(ctx, ident.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "reset request failed")
	}

	s.notify(notification.PasswordResetNotice, notification.NotificationData{
		To: issued.Destination,
		Data: map[string]string{
			"Token":  issued.Raw,
			"Expiry": humanDuration(time.Until(issued.ExpiresAt)),
		},
	})

	s.record(audit.NewEntry(&ident.ID, audit.ActionResetPasswordRequest, "password reset requested", origin, nil))
	return nil
}

// ResetPassword consumes a reset token and installs the new password. The
// same update clears the lockout state, so a reset recovers a locked
// account.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest, origin audit.Origin) (identity.Public, error) {
	if err := req.Validate(); err != nil {
		return identity.Public{}, errors.Wrap(err, errors.ErrCodeValidation, "invalid reset request")
	}

	hash, err := s.credentials.HashPassword(req.NewPassword)
	if err != nil {
		return identity.Public{}, errors.Wrap(err, errors.ErrCodeValidation, "password does not meet the policy")
	}

	updated, err := s.verifier.ConsumePasswordReset(ctx, req.Token, hash)
	if err != nil {
		return identity.Public{}, mapVerificationErr(err)
	}

	s.record(audit.NewEntry(&updated.ID, audit.ActionResetPassword, "password reset completed", origin, nil))
	return updated.Public(), nil
}

// ChangePassword replaces the password of an authenticated identity after
// re-verifying the current one. Any outstanding reset token is invalidated
// in the same update.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest, origin audit.Origin) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid change request")
	}

	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapIdentityErr(err)
	}

	ok, err := s.credentials.VerifyPassword(req.CurrentPassword, ident.PasswordHash)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "password change failed")
	}
	if !ok {
		s.record(audit.NewEntry(&id, audit.ActionFailedLogin, "password change with wrong current password", origin, nil))
		return errors.New(errors.ErrCodeInvalidCredentials, "current password is incorrect")
	}

	hash, err := s.credentials.HashPassword(req.NewPassword)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "password does not meet the policy")
	}

	if _, err := s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		ident.PasswordHash = hash
		ident.ResetToken = nil
		return nil
	}); err != nil {
		return mapIdentityErr(err)
	}

	s.record(audit.NewEntry(&id, audit.ActionUpdatePassword, "password changed", origin, nil))
	return nil
}

// RequestContactChange stages a new email address or phone number for the
// identity and sends a proof-of-ownership token to the new destination. The
// canonical value stays in effect until the token is consumed.
func (s *Service) RequestContactChange(ctx context.Context, id uuid.UUID, channel verification.Channel, newValue string, origin audit.Origin) error {
	var normalized string
	var err error
	switch channel {
	case verification.ChannelEmail:
		normalized = normalizeEmail(newValue)
		if err := validation.Validate(normalized, validation.Required, is.Email); err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "invalid email address")
		}
	case verification.ChannelPhone:
		normalized, err = normalizePhone(newValue, s.phoneRegion)
		if err != nil {
			return err
		}
	default:
		return errors.Newf(errors.ErrCodeValidation, "unknown channel: %s", channel)
	}

	issued, err := s.verifier.RequestContactChange(ctx, id, channel, normalized)
	if err != nil {
		return mapVerificationErr(err)
	}

	switch channel {
	case verification.ChannelEmail:
		s.notify(notification.EmailChangeNotice, notification.NotificationData{
			To: issued.Destination,
			Data: map[string]string{
				"Token":  issued.Raw,
				"Expiry": humanDuration(time.Until(issued.ExpiresAt)),
			},
		})
	case verification.ChannelPhone:
		s.notify(notification.PhoneChangeNotice, notification.NotificationData{
			To:   issued.Destination,
			Data: map[string]string{"Code": issued.Raw},
		})
	}

	s.record(audit.NewEntry(&id, audit.ActionUpdateProfile, fmt.Sprintf("%s change requested", channel), origin, map[string]interface{}{
		"destination": maskDestination(channel, issued.Destination),
	}))
	return nil
}

// ResendVerification re-sends the outstanding verification for a channel,
// invalidating the previously issued token.
func (s *Service) ResendVerification(ctx context.Context, id uuid.UUID, channel verification.Channel, origin audit.Origin) error {
	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapIdentityErr(err)
	}

	issued, err := s.verifier.ResendVerification(ctx, id, channel)
	if err != nil {
		return mapVerificationErr(err)
	}

	switch channel {
	case verification.ChannelEmail:
		noticeType := notification.EmailVerificationNotice
		if ident.PendingEmail != nil {
			noticeType = notification.EmailChangeNotice
		}
		s.notify(noticeType, notification.NotificationData{
			To: issued.Destination,
			Data: map[string]string{
				"Name":   ident.Name,
				"Token":  issued.Raw,
				"Expiry": humanDuration(time.Until(issued.ExpiresAt)),
			},
		})
	case verification.ChannelPhone:
		noticeType := notification.PhoneVerificationNotice
		if ident.PendingPhone != nil {
			noticeType = notification.PhoneChangeNotice
		}
		s.notify(noticeType, notification.NotificationData{
			To:   issued.Destination,
			Data: map[string]string{"Code": issued.Raw},
		})
	}

	s.record(audit.NewEntry(&id, audit.ActionResendVerification, fmt.Sprintf("%s verification re-sent", channel), origin, nil))
	return nil
}

// UpdateName changes the display name of an identity.
func (s *Service) UpdateName(ctx context.Context, id uuid.UUID, name string, origin audit.Origin) (identity.Public, error) {
	if err := validation.Validate(name, validation.Required, validation.Length(1, 200)); err != nil {
		return identity.Public{}, errors.Wrap(err, errors.ErrCodeValidation, "invalid name")
	}

	updated, err := s.repo.Update(ctx, id, func(ident *identity.Identity) error {
		ident.Name = name
		return nil
	})
	if err != nil {
		return identity.Public{}, mapIdentityErr(err)
	}

	s.record(audit.NewEntry(&id, audit.ActionUpdateProfile, "name updated", origin, nil))
	return updated.Public(), nil
}

// GetIdentity returns the outward projection of an identity.
func (s *Service) GetIdentity(ctx context.Context, id uuid.UUID) (identity.Public, error) {
	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return identity.Public{}, mapIdentityErr(err)
	}
	return ident.Public(), nil
}

// GetStats returns the store-wide security summary, for admins.
func (s *Service) GetStats(ctx context.Context) (identity.Stats, error) {
	return s.repo.GetStats(ctx)
}

// ListAuditLog returns recorded audit entries, newest first, for admins.
func (s *Service) ListAuditLog(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	if s.auditLog == nil {
		return nil, 0, errors.New(errors.ErrCodeInternal, "audit log is not configured")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditPageSize
	}
	return s.auditLog.List(ctx, filter)
}

// UnlockAccount clears the lockout of a target identity on behalf of an
// admin.
func (s *Service) UnlockAccount(ctx context.Context, adminID, targetID uuid.UUID, origin audit.Origin) (identity.Public, error) {
	updated, err := s.credentials.AdminUnlock(ctx, targetID)
	if err != nil {
		return identity.Public{}, mapIdentityErr(err)
	}

	s.record(audit.NewEntry(&adminID, audit.ActionAdminAction, "account unlocked", origin, map[string]interface{}{
		"target_id": targetID.String(),
	}))
	return updated.Public(), nil
}

func (s *Service) record(entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(entry)
	}
}

// notify delivers a notice best effort. Delivery failure is logged and
// never propagated to the caller.
func (s *Service) notify(noticeType notification.NoticeType, data notification.NotificationData) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(noticeType, data); err != nil {
		slog.Error("Notification delivery failed", "type", noticeType, "err", err)
	}
}

func mapIdentityErr(err error) error {
	switch {
	case stderrors.Is(err, identity.ErrNotFound):
		return errors.Wrap(err, errors.ErrCodeNotFound, "identity not found")
	case stderrors.Is(err, identity.ErrDuplicateEmail), stderrors.Is(err, identity.ErrDuplicatePhone):
		return errors.Wrap(err, errors.ErrCodeDuplicateIdentity, "contact value already in use")
	default:
		return errors.Wrap(err, errors.ErrCodeInternal, "storage operation failed")
	}
}

func mapVerificationErr(err error) error {
	switch {
	case stderrors.Is(err, verification.ErrInvalidOrExpiredToken):
		return errors.Wrap(err, errors.ErrCodeInvalidOrExpiredToken, "invalid or expired token")
	case stderrors.Is(err, verification.ErrAlreadyVerified):
		return errors.Wrap(err, errors.ErrCodeAlreadyVerified, "already verified")
	case stderrors.Is(err, verification.ErrNoContactValue), stderrors.Is(err, verification.ErrUnknownChannel):
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid verification request")
	default:
		return mapIdentityErr(err)
	}
}

func maskDestination(channel verification.Channel, destination string) string {
	if channel == verification.ChannelPhone {
		return utils.MaskPhone(destination)
	}
	return utils.MaskEmail(destination)
}

// humanDuration renders a token lifetime for notification templates.
func humanDuration(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Round(time.Hour).Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Round(time.Minute).Minutes()))
}
