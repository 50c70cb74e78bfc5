package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "warden/pkg/domain-errors"
)

func TestService_Tokens(t *testing.T) {
	svc := New("test-signing-key", "warden")

	t.Run("round-trips a valid token", func(t *testing.T) {
		token, err := svc.GenerateToken("operator-1", time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "operator-1", claims.Subject)
		assert.Equal(t, "operator", claims.Role)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token, err := svc.GenerateToken("operator-1", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects a token signed with a different key", func(t *testing.T) {
		other := New("other-key", "warden")
		token, err := other.GenerateToken("operator-1", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects a token from a different issuer", func(t *testing.T) {
		other := New("test-signing-key", "someone-else")
		token, err := other.GenerateToken("operator-1", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		require.Error(t, err)
	})
}
