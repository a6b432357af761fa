package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("reader@example.com", "a-long-enough-password")

	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", user.Email)
}

func TestUserValidation(t *testing.T) {
	testCases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"empty email", "", "a-long-enough-password", ErrEmptyEmail},
		{"malformed email", "not-an-email", "a-long-enough-password", ErrInvalidEmail},
		{"short password", "a@example.com", "short", ErrPasswordTooShort},
		{"long password", "a@example.com", strings.Repeat("x", 73), ErrPasswordTooLong},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(tc.email, tc.password)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUserLoadedFromStorageNeedsOnlyHash(t *testing.T) {
	user, err := NewUser("a@example.com", "a-long-enough-password")
	require.NoError(t, err)

	user.Password = ""
	user.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)
}
