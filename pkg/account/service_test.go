package account

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verture/identity-core/pkg/audit"
	"github.com/verture/identity-core/pkg/credential"
	"github.com/verture/identity-core/pkg/errors"
	"github.com/verture/identity-core/pkg/identity"
	"github.com/verture/identity-core/pkg/notification"
	"github.com/verture/identity-core/pkg/session"
	"github.com/verture/identity-core/pkg/verification"
)

const bcryptTestCost = 4

// syncSink records audit entries synchronously so tests can assert on them
// without draining a dispatcher.
type syncSink struct {
	mu       sync.Mutex
	recorder *audit.InMemoryRecorder
}

func (s *syncSink) Record(entry audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder.Append(context.Background(), entry)
}

func (s *syncSink) actions(t *testing.T) []audit.Action {
	t.Helper()
	entries, _, err := s.recorder.List(context.Background(), audit.Filter{Limit: 1000})
	require.NoError(t, err)
	actions := make([]audit.Action, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

type testEnv struct {
	svc      *Service
	repo     *identity.InMemoryRepository
	sessions *session.JwtService
	mock     *notification.MockNotifier
	sink     *syncSink
}

func newTestEnv(t *testing.T, opts ...verification.Option) *testEnv {
	t.Helper()

	repo := identity.NewInMemoryRepository()
	credentials := credential.NewService(repo, credential.NewBcryptHasher(bcryptTestCost))
	verifier := verification.NewService(repo, opts...)
	sessions := session.NewJwtService("test-secret")

	nm := notification.NewNotificationManager("https://account.test")
	mock := &notification.MockNotifier{}
	nm.RegisterNotifier(notification.EmailSystem, mock)
	nm.RegisterNotifier(notification.SMSSystem, mock)
	for _, reg := range []struct {
		noticeType notification.NoticeType
		system     notification.NotificationSystem
		text       string
	}{
		{notification.EmailVerificationNotice, notification.EmailSystem, "{{.Token}}"},
		{notification.EmailChangeNotice, notification.EmailSystem, "{{.Token}}"},
		{notification.PasswordResetNotice, notification.EmailSystem, "{{.Token}}"},
		{notification.PhoneVerificationNotice, notification.SMSSystem, "{{.Code}}"},
		{notification.PhoneChangeNotice, notification.SMSSystem, "{{.Code}}"},
	} {
		err := nm.RegisterNotification(reg.noticeType, reg.system, notification.NoticeTemplate{
			Subject: string(reg.noticeType),
			Text:    reg.text,
		})
		require.NoError(t, err)
	}

	sink := &syncSink{recorder: audit.NewInMemoryRecorder()}
	svc := NewService(repo, credentials, verifier, sessions,
		WithNotificationManager(nm),
		WithAuditSink(sink),
		WithAuditLog(sink.recorder),
	)
	return &testEnv{svc: svc, repo: repo, sessions: sessions, mock: mock, sink: sink}
}

func (e *testEnv) register(t *testing.T, email, password string) identity.Public {
	t.Helper()
	pub, err := e.svc.Register(context.Background(), RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: password,
	}, audit.Origin{})
	require.NoError(t, err)
	return pub
}

// lastNotice returns the most recent notification of the given type.
func (e *testEnv) lastNotice(t *testing.T, noticeType notification.NoticeType) notification.NotificationData {
	t.Helper()
	for i := len(e.mock.SentTypes) - 1; i >= 0; i-- {
		if e.mock.SentTypes[i] == noticeType {
			return e.mock.SentNotifications[i]
		}
	}
	t.Fatalf("no notification of type %s was sent", noticeType)
	return notification.NotificationData{}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pub, err := env.svc.Register(ctx, RegisterRequest{
		Name:     "Alice",
		Email:    "Alice@Example.COM",
		Phone:    "202-555-0123",
		Password: "Sup3rSecret",
	}, audit.Origin{IP: "10.1.1.1"})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", pub.Email, "email is case-normalized")
	assert.Equal(t, "+12025550123", pub.Phone, "phone is normalized to E.164")
	assert.Equal(t, identity.RoleUser, pub.Role)
	assert.False(t, pub.EmailVerified)
	assert.False(t, pub.PhoneVerified)

	stored, err := env.repo.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "Sup3rSecret", string(stored.PasswordHash))
	require.NotNil(t, stored.EmailToken, "initial email token is issued")
	require.NotNil(t, stored.PhoneCode, "initial phone code is issued")

	emailNotice := env.lastNotice(t, notification.EmailVerificationNotice)
	assert.Equal(t, "alice@example.com", emailNotice.To)
	assert.NotEmpty(t, emailNotice.Data["Token"])
	smsNotice := env.lastNotice(t, notification.PhoneVerificationNotice)
	assert.Equal(t, "+12025550123", smsNotice.To)
	assert.Len(t, smsNotice.Data["Code"], 6)

	assert.Contains(t, env.sink.actions(t), audit.ActionRegister)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "dup@example.com", "Sup3rSecret")

	_, err := env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Other",
		Email:    "DUP@example.com",
		Password: "Sup3rSecret",
	}, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateIdentity))
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	for _, password := range []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		_, err := env.svc.Register(context.Background(), RegisterRequest{
			Name:     "Weak",
			Email:    "weak@example.com",
			Password: password,
		}, audit.Origin{})
		require.Error(t, err, "password %q should be rejected", password)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	}
}

func TestRegisterRejectsInvalidPhone(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Bad Phone",
		Email:    "badphone@example.com",
		Phone:    "12",
		Password: "Sup3rSecret",
	}, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "login@example.com", "Sup3rSecret")

	result, err := env.svc.Login(ctx, LoginRequest{Email: "Login@Example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, pub.ID, result.Identity.ID)

	claims, err := env.sessions.ParseSession(result.Token)
	require.NoError(t, err)
	subject, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, pub.ID, subject)

	stored, err := env.repo.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
	assert.Zero(t, stored.LoginAttempts)
}

func TestLoginFailuresShareOneCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "known@example.com", "Sup3rSecret")

	_, errUnknown := env.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	_, errWrongPw := env.svc.Login(ctx, LoginRequest{Email: "known@example.com", Password: "WrongPass1"}, audit.Origin{})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, errors.GetCode(errUnknown), errors.GetCode(errWrongPw))
	assert.True(t, errors.IsCode(errUnknown, errors.ErrCodeInvalidCredentials))
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "locked@example.com", "Sup3rSecret")

	for i := 0; i < credential.DefaultLockoutThreshold; i++ {
		_, err := env.svc.Login(ctx, LoginRequest{Email: "locked@example.com", Password: "WrongPass1"}, audit.Origin{})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCredentials))
	}

	stored, err := env.repo.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.True(t, stored.Locked)

	// The correct password no longer helps.
	_, err = env.svc.Login(ctx, LoginRequest{Email: "locked@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAccountLocked))
}

func TestSuccessfulLoginResetsAttemptCounter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "counter@example.com", "Sup3rSecret")

	for i := 0; i < credential.DefaultLockoutThreshold-1; i++ {
		_, err := env.svc.Login(ctx, LoginRequest{Email: "counter@example.com", Password: "WrongPass1"}, audit.Origin{})
		require.Error(t, err)
	}

	_, err := env.svc.Login(ctx, LoginRequest{Email: "counter@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.NoError(t, err)

	stored, err := env.repo.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	assert.False(t, stored.Locked)
}

func TestVerifyEmailFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "verify@example.com", "Sup3rSecret")

	token := env.lastNotice(t, notification.EmailVerificationNotice).Data["Token"]
	verified, err := env.svc.VerifyEmail(ctx, token, audit.Origin{})
	require.NoError(t, err)
	assert.Equal(t, pub.ID, verified.ID)
	assert.True(t, verified.EmailVerified)

	// Single use: a replay of the same token fails.
	_, err = env.svc.VerifyEmail(ctx, token, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidOrExpiredToken))
}

func TestVerifyPhoneFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pub, err := env.svc.Register(ctx, RegisterRequest{
		Name:     "Phones",
		Email:    "phones@example.com",
		Phone:    "+12025550147",
		Password: "Sup3rSecret",
	}, audit.Origin{})
	require.NoError(t, err)

	code := env.lastNotice(t, notification.PhoneVerificationNotice).Data["Code"]
	verified, err := env.svc.VerifyPhone(ctx, pub.ID, code, audit.Origin{})
	require.NoError(t, err)
	assert.True(t, verified.PhoneVerified)

	_, err = env.svc.VerifyPhone(ctx, pub.ID, code, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidOrExpiredToken))
}

func TestRequestPasswordResetIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "resetme@example.com", "Sup3rSecret")

	// Known and unknown addresses acknowledge identically.
	require.NoError(t, env.svc.RequestPasswordReset(ctx, "resetme@example.com", audit.Origin{}))
	require.NoError(t, env.svc.RequestPasswordReset(ctx, "stranger@example.com", audit.Origin{}))

	// Only the known address got mail.
	notice := env.lastNotice(t, notification.PasswordResetNotice)
	assert.Equal(t, "resetme@example.com", notice.To)
}

func TestResetPasswordRecoversLockedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "recover@example.com", "Sup3rSecret")

	for i := 0; i < credential.DefaultLockoutThreshold; i++ {
		env.svc.Login(ctx, LoginRequest{Email: "recover@example.com", Password: "WrongPass1"}, audit.Origin{})
	}
	stored, err := env.repo.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	require.True(t, stored.Locked)

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "recover@example.com", audit.Origin{}))
	token := env.lastNotice(t, notification.PasswordResetNotice).Data["Token"]

	updated, err := env.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "Brand0New!"}, audit.Origin{})
	require.NoError(t, err)
	assert.False(t, updated.Locked)

	result, err := env.svc.Login(ctx, LoginRequest{Email: "recover@example.com", Password: "Brand0New!"}, audit.Origin{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestTamperedResetTokenLeavesPasswordUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "tamper@example.com", "Sup3rSecret")

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "tamper@example.com", audit.Origin{}))
	token := env.lastNotice(t, notification.PasswordResetNotice).Data["Token"]

	tampered := token[:len(token)-1] + "#"
	_, err := env.svc.ResetPassword(ctx, ResetPasswordRequest{Token: tampered, NewPassword: "Brand0New!"}, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidOrExpiredToken))

	// The original password still works.
	_, err = env.svc.Login(ctx, LoginRequest{Email: "tamper@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.NoError(t, err)
}

func TestResetTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "single@example.com", "Sup3rSecret")

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "single@example.com", audit.Origin{}))
	token := env.lastNotice(t, notification.PasswordResetNotice).Data["Token"]

	_, err := env.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "Brand0New!"}, audit.Origin{})
	require.NoError(t, err)

	// The replay fails and the first reset's password stays in effect.
	_, err = env.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "Hijacked1!"}, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidOrExpiredToken))

	_, err = env.svc.Login(ctx, LoginRequest{Email: "single@example.com", Password: "Brand0New!"}, audit.Origin{})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "change@example.com", "Sup3rSecret")

	err := env.svc.ChangePassword(ctx, pub.ID, ChangePasswordRequest{
		CurrentPassword: "WrongPass1",
		NewPassword:     "Brand0New!",
	}, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCredentials))

	err = env.svc.ChangePassword(ctx, pub.ID, ChangePasswordRequest{
		CurrentPassword: "Sup3rSecret",
		NewPassword:     "Brand0New!",
	}, audit.Origin{})
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, LoginRequest{Email: "change@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.Error(t, err)
	_, err = env.svc.Login(ctx, LoginRequest{Email: "change@example.com", Password: "Brand0New!"}, audit.Origin{})
	require.NoError(t, err)
}

func TestChangePasswordInvalidatesOutstandingResetToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "stale@example.com", "Sup3rSecret")

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "stale@example.com", audit.Origin{}))
	token := env.lastNotice(t, notification.PasswordResetNotice).Data["Token"]

	require.NoError(t, env.svc.ChangePassword(ctx, pub.ID, ChangePasswordRequest{
		CurrentPassword: "Sup3rSecret",
		NewPassword:     "Brand0New!",
	}, audit.Origin{}))

	_, err := env.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "Hijacked1!"}, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidOrExpiredToken))
}

func TestEmailChangeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "old@example.com", "Sup3rSecret")

	err := env.svc.RequestContactChange(ctx, pub.ID, verification.ChannelEmail, "New@Example.com", audit.Origin{})
	require.NoError(t, err)

	// Canonical address is untouched while the change is staged.
	stored, err := env.repo.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", stored.Email)
	require.NotNil(t, stored.PendingEmail)
	assert.Equal(t, "new@example.com", stored.PendingEmail.NewValue)

	notice := env.lastNotice(t, notification.EmailChangeNotice)
	assert.Equal(t, "new@example.com", notice.To, "token goes to the new address")

	verified, err := env.svc.VerifyEmail(ctx, notice.Data["Token"], audit.Origin{})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", verified.Email)
	assert.True(t, verified.EmailVerified)

	// The old address is released and logins use the new one.
	_, err = env.svc.Login(ctx, LoginRequest{Email: "old@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.Error(t, err)
	_, err = env.svc.Login(ctx, LoginRequest{Email: "new@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.NoError(t, err)
}

func TestContactChangeRejectsClaimedValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "taken@example.com", "Sup3rSecret")
	pub := env.register(t, "claimer@example.com", "Sup3rSecret")

	err := env.svc.RequestContactChange(ctx, pub.ID, verification.ChannelEmail, "taken@example.com", audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateIdentity))
}

func TestPhoneChangeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pub, err := env.svc.Register(ctx, RegisterRequest{
		Name:     "Mover",
		Email:    "mover@example.com",
		Phone:    "+12025550160",
		Password: "Sup3rSecret",
	}, audit.Origin{})
	require.NoError(t, err)

	require.NoError(t, env.svc.RequestContactChange(ctx, pub.ID, verification.ChannelPhone, "+12025550161", audit.Origin{}))
	code := env.lastNotice(t, notification.PhoneChangeNotice).Data["Code"]
	assert.Equal(t, "+12025550161", env.lastNotice(t, notification.PhoneChangeNotice).To)

	verified, err := env.svc.VerifyPhone(ctx, pub.ID, code, audit.Origin{})
	require.NoError(t, err)
	assert.Equal(t, "+12025550161", verified.Phone)
	assert.True(t, verified.PhoneVerified)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "resend@example.com", "Sup3rSecret")

	firstToken := env.lastNotice(t, notification.EmailVerificationNotice).Data["Token"]
	require.NoError(t, env.svc.ResendVerification(ctx, pub.ID, verification.ChannelEmail, audit.Origin{}))
	secondToken := env.lastNotice(t, notification.EmailVerificationNotice).Data["Token"]
	require.NotEqual(t, firstToken, secondToken)

	// The superseded token is dead; the fresh one works.
	_, err := env.svc.VerifyEmail(ctx, firstToken, audit.Origin{})
	require.Error(t, err)
	_, err = env.svc.VerifyEmail(ctx, secondToken, audit.Origin{})
	require.NoError(t, err)

	// Resending for a verified channel fails.
	err = env.svc.ResendVerification(ctx, pub.ID, verification.ChannelEmail, audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlreadyVerified))
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv(t)
	env.mock.Err = assert.AnError

	pub, err := env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Unreachable",
		Email:    "unreachable@example.com",
		Password: "Sup3rSecret",
	}, audit.Origin{})
	require.NoError(t, err, "delivery failure must not fail registration")
	assert.NotEqual(t, uuid.Nil, pub.ID)
}

func TestUpdateName(t *testing.T) {
	env := newTestEnv(t)
	pub := env.register(t, "renamed@example.com", "Sup3rSecret")

	updated, err := env.svc.UpdateName(context.Background(), pub.ID, "New Name", audit.Origin{})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	_, err = env.svc.UpdateName(context.Background(), pub.ID, "", audit.Origin{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestAdminUnlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "target@example.com", "Sup3rSecret")
	adminID := uuid.New()

	for i := 0; i < credential.DefaultLockoutThreshold; i++ {
		env.svc.Login(ctx, LoginRequest{Email: "target@example.com", Password: "WrongPass1"}, audit.Origin{})
	}

	unlocked, err := env.svc.UnlockAccount(ctx, adminID, pub.ID, audit.Origin{})
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)

	_, err = env.svc.Login(ctx, LoginRequest{Email: "target@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	require.NoError(t, err)

	entries, _, err := env.svc.ListAuditLog(ctx, audit.Filter{Action: audit.ActionAdminAction})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pub.ID.String(), entries[0].Details["target_id"])
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "stats1@example.com", "Sup3rSecret")
	pub := env.register(t, "stats2@example.com", "Sup3rSecret")

	token := env.lastNotice(t, notification.EmailVerificationNotice).Data["Token"]
	_, err := env.svc.VerifyEmail(ctx, token, audit.Origin{})
	require.NoError(t, err)

	for i := 0; i < credential.DefaultLockoutThreshold; i++ {
		env.svc.Login(ctx, LoginRequest{Email: "stats1@example.com", Password: "WrongPass1"}, audit.Origin{})
	}
	_ = pub

	stats, err := env.svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalIdentities)
	assert.Equal(t, int64(1), stats.EmailVerified)
	assert.Equal(t, int64(1), stats.LockedAccounts)
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := env.register(t, "trail@example.com", "Sup3rSecret")

	env.svc.Login(ctx, LoginRequest{Email: "trail@example.com", Password: "WrongPass1"}, audit.Origin{})
	env.svc.Login(ctx, LoginRequest{Email: "trail@example.com", Password: "Sup3rSecret"}, audit.Origin{})
	env.svc.Logout(ctx, pub.ID, audit.Origin{})

	actions := env.sink.actions(t)
	assert.Contains(t, actions, audit.ActionRegister)
	assert.Contains(t, actions, audit.ActionFailedLogin)
	assert.Contains(t, actions, audit.ActionLogin)
	assert.Contains(t, actions, audit.ActionLogout)

	// No raw secrets in recorded details.
	entries, _, err := env.svc.ListAuditLog(ctx, audit.Filter{Limit: 1000})
	require.NoError(t, err)
	for _, entry := range entries {
		for key := range entry.Details {
			assert.NotContains(t, []string{"password", "token", "code"}, key)
		}
	}
}
