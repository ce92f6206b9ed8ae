package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	id := Identity{UserID: "u-1", Email: "ana@example.com", Role: RoleAdmin}
	ctx := WithIdentity(context.Background(), id)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.True(t, got.IsAdmin())
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestFromClaims(t *testing.T) {
	id, ok := FromClaims(map[string]interface{}{
		"sub": "u-1", "email": "ana@example.com", "custom:role": RoleAdmin,
	})
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: "u-1", Email: "ana@example.com", Role: RoleAdmin}, id)

	// Fallback role claim, then default.
	id, ok = FromClaims(map[string]interface{}{"sub": "u-2", "role": RoleAdmin})
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, id.Role)

	id, ok = FromClaims(map[string]interface{}{"sub": "u-3"})
	require.True(t, ok)
	assert.Equal(t, RoleUser, id.Role)
	assert.False(t, id.IsAdmin())

	// No subject, no identity.
	_, ok = FromClaims(map[string]interface{}{"email": "x@example.com"})
	assert.False(t, ok)
}

func TestEmptyUserIDIsAnonymous(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{Email: "x@example.com"})
	_, ok := FromContext(ctx)
	assert.False(t, ok)
}
