package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Abcdef12", 4)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, VerifyPassword(hash, "Abcdef12"))
	assert.False(t, VerifyPassword(hash, "abcdef12"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("Abcdef12", 4)
	require.NoError(t, err)
	second, err := HashPassword("Abcdef12", 4)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword(first, "Abcdef12"))
	assert.True(t, VerifyPassword(second, "Abcdef12"))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "Abcdef12"))
	assert.False(t, VerifyPassword("", "Abcdef12"))
}

func TestCheckPasswordPolicy(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Abcdef12", ""},
		{"too short", "Ab1x", "at least 8 characters"},
		{"no uppercase", "abcdef12", "uppercase"},
		{"no lowercase", "ABCDEF12", "lowercase"},
		{"no digit", "Abcdefgh", "number"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPasswordPolicy(tc.password)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
