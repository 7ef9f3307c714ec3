package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("test-signing-key", "propagentic-test", time.Minute, time.Hour)
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID, "landlord", "owner@example.com")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "landlord", claims.Role)
	assert.Equal(t, "owner@example.com", claims.Email)
}

func TestRefreshTokenCarriesJTI(t *testing.T) {
	m := NewManager("test-signing-key", "propagentic-test", time.Minute, time.Hour)

	token, claims, err := m.GenerateRefreshToken(uuid.New(), "tenant", "t@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	parsed, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, parsed.ID)
	assert.Equal(t, TokenTypeRefresh, parsed.TokenType)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issued := NewManager("test-signing-key", "issuer-a", time.Minute, time.Hour)
	validator := NewManager("test-signing-key", "issuer-b", time.Minute, time.Hour)

	token, err := issued.GenerateAccessToken(uuid.New(), "tenant", "")
	require.NoError(t, err)

	_, err = validator.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-signing-key", "propagentic-test", -time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(uuid.New(), "tenant", "")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsForeignKey(t *testing.T) {
	m := NewManager("key-one", "propagentic-test", time.Minute, time.Hour)
	other := NewManager("key-two", "propagentic-test", time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(uuid.New(), "tenant", "")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}
