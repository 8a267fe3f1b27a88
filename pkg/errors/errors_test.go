package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeAccountLocked, "account is locked")
	assert.Equal(t, "[ACCOUNT_LOCKED] account is locked", err.Error())

	cause := stderrors.New("row not found")
	wrapped := Wrap(cause, ErrCodeNotFound, "identity lookup failed")
	assert.Contains(t, wrapped.Error(), "row not found")
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "whatever"))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := New(ErrCodeInvalidOrExpiredToken, "token expired")
	outer := fmt.Errorf("consume failed: %w", err)

	assert.True(t, IsCode(outer, ErrCodeInvalidOrExpiredToken))
	assert.False(t, IsCode(outer, ErrCodeInvalidCredentials))
	assert.Equal(t, ErrCodeInvalidOrExpiredToken, GetCode(outer))
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{ErrCodeInvalidOrExpiredToken, http.StatusUnauthorized},
		{ErrCodeAccountLocked, http.StatusForbidden},
		{ErrCodeDuplicateIdentity, http.StatusConflict},
		{ErrCodeAlreadyVerified, http.StatusConflict},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeTransportFailure, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapErrorCodeToHTTPStatus(tt.code), string(tt.code))
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeValidation, "invalid input").WithDetail("field", "email")
	assert.Equal(t, "email", err.Details["field"])
}
