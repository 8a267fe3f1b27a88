package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	other, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestHashToken(t *testing.T) {
	hash := HashToken("some-raw-token")
	assert.Len(t, hash, 64)
	assert.NotEqual(t, "some-raw-token", hash)
	assert.Equal(t, hash, HashToken("some-raw-token"))
	assert.NotEqual(t, hash, HashToken("some-raw-tokeN"))
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"ana@example.com", "a**@example.com"},
		{"a@example.com", "*@example.com"},
		{"not-an-email", "***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskEmail(tt.email))
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*********34", MaskPhone("+3361234534"))
	assert.Equal(t, "***", MaskPhone("12"))
}
