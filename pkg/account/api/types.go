package api

import "time"

// IdentityResponse is the outward representation of an identity.
type IdentityResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	Locked        bool      `json:"locked"`
	CreatedAt     time.Time `json:"created_at"`
}

// LoginResponse carries the session credential after a successful login.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Identity  IdentityResponse `json:"identity"`
}

// VerifyEmailRequest carries the emailed verification token.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyPhoneRequest carries the SMS verification code.
type VerifyPhoneRequest struct {
	Code string `json:"code"`
}

// ResetRequestRequest asks for a password reset email.
type ResetRequestRequest struct {
	Email string `json:"email"`
}

// ContactChangeRequest stages a new email address or phone number.
type ContactChangeRequest struct {
	NewValue string `json:"new_value"`
}

// ResendVerificationRequest selects the channel to re-send for.
type ResendVerificationRequest struct {
	Channel string `json:"channel"`
}

// UpdateNameRequest changes the display name.
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// MessageResponse is a generic acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// AuditLogResponse is one page of audit entries.
type AuditLogResponse struct {
	Entries interface{} `json:"entries"`
	Total   int         `json:"total"`
}
