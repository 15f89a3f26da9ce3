package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken(7, "ops", RoleAdmin, time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ops", claims.Username)
	assert.True(t, claims.IsAdmin())
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken(1, "ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	SetSecret("first")
	token, err := GenerateToken(1, "ops", "customer", time.Minute)
	require.NoError(t, err)

	SetSecret("second")
	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCustomerIsNotAdmin(t *testing.T) {
	assert.False(t, (&Claims{Role: "customer"}).IsAdmin())
	assert.False(t, (*Claims)(nil).IsAdmin())
}
