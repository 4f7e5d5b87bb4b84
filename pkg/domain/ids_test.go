package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "domainhub/pkg/domain-errors"
)

func TestParseUserID(t *testing.T) {
	t.Run("valid uuid round-trips", func(t *testing.T) {
		raw := uuid.NewString()
		id, err := ParseUserID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, id.String())
		assert.False(t, id.IsNil())
	})

	t.Run("invalid input is rejected with a coded error", func(t *testing.T) {
		for _, input := range []string{"", "not-a-uuid", "550e8400-e29b-41d4-a716", "'; DROP TABLE users;--"} {
			_, err := ParseUserID(input)
			require.Error(t, err, "input %q", input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("nil uuid is rejected", func(t *testing.T) {
		// An all-zero subject must never resolve to a usable identity.
		_, err := ParseUserID("00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseAccountID(t *testing.T) {
	raw := uuid.NewString()
	id, err := ParseAccountID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id.String())

	_, err = ParseAccountID("garbage")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// Typed IDs exist so a user ID can never be passed where an account ID is
// expected; the compiler rejects the swap:
//
//	var uid UserID = AccountID(uuid.New())  // type mismatch
func TestTypedIDsAreDistinct(t *testing.T) {
	userID := NewUserID()
	accountID := NewAccountID()

	assert.NotEqual(t, userID.String(), accountID.String())
	assert.IsType(t, UserID{}, userID)
	assert.IsType(t, AccountID{}, accountID)
}
