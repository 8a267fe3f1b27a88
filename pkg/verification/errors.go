package verification

import "errors"

var (
	// ErrInvalidOrExpiredToken is returned when a token is absent, expired,
	// or does not match the stored hash. The three cases are deliberately
	// indistinguishable to the caller.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrAlreadyVerified is returned when a resend is requested for a
	// channel that is verified and has no staged change.
	ErrAlreadyVerified = errors.New("channel already verified")

	// ErrNoContactValue is returned when a verification is requested for a
	// channel the identity has no value for.
	ErrNoContactValue = errors.New("identity has no value for this channel")

	// ErrUnknownChannel is returned for a channel other than email or phone.
	ErrUnknownChannel = errors.New("unknown verification channel")
)
