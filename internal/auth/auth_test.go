package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	secret := []byte("s3cret")

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := IssueToken(secret, "kitchen-tablet", time.Hour)
		require.NoError(t, err)

		claims, err := ParseToken(secret, token)
		require.NoError(t, err)
		assert.Equal(t, "kitchen-tablet", claims.Subject)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := IssueToken(secret, "kitchen-tablet", time.Hour)
		require.NoError(t, err)

		_, err = ParseToken([]byte("other"), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := IssueToken(secret, "kitchen-tablet", -time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("RejectsOtherAlgorithms", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, err = ParseToken(secret, signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("EmptySecret", func(t *testing.T) {
		_, err := IssueToken(nil, "x", time.Hour)
		assert.Error(t, err)
	})
}
