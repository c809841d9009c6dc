package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret-key-at-least-32-chars!!", "taskboard", time.Hour)

	token, err := m.Generate("user-1", "client@example.com", "client")
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := m.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "client@example.com", claims.Email)
	assert.Equal(t, "client", claims.Role)
	assert.Equal(t, "taskboard", claims.Issuer)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret-key-at-least-32-chars!!", "taskboard", time.Hour)

	_, err := m.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	m := NewManager("test-secret-key-at-least-32-chars!!", "taskboard", time.Hour)
	other := NewManager("another-secret-key-also-32-chars!!!", "taskboard", time.Hour)

	token, err := m.Generate("user-1", "client@example.com", "client")
	require.NoError(t, err)

	_, err = other.Validate(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("test-secret-key-at-least-32-chars!!", "taskboard", -time.Minute)

	token, err := m.Generate("user-1", "client@example.com", "client")
	require.NoError(t, err)

	_, err = m.Validate(token.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
