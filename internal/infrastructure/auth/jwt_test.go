package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salepoint/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-that-is-long-enough",
		Expiration: time.Hour,
		Issuer:     "salepoint",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	businessID := uuid.New()
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{
		BusinessID: businessID,
		UserID:     userID,
		Username:   "cashier",
		Role:       "MANAGER",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, businessID.String(), claims.BusinessID)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "cashier", claims.Username)
	assert.Equal(t, "MANAGER", claims.Role)

	gotBusiness, err := claims.GetBusinessUUID()
	require.NoError(t, err)
	assert.Equal(t, businessID, gotBusiness)

	gotUser, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
}

func TestJWTService_ValidateToken_Errors(t *testing.T) {
	svc := newTestJWTService()

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:     "another-secret-entirely-different",
			Expiration: time.Hour,
			Issuer:     "salepoint",
		})
		token, _, err := other.GenerateToken(GenerateTokenInput{
			BusinessID: uuid.New(),
			UserID:     uuid.New(),
		})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-key-that-is-long-enough",
			Expiration: -time.Minute,
			Issuer:     "salepoint",
		})
		token, _, err := expired.GenerateToken(GenerateTokenInput{
			BusinessID: uuid.New(),
			UserID:     uuid.New(),
		})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}
