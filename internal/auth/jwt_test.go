package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner("secret", "erpcore", time.Hour, 24*time.Hour)
	id := uuid.NewString()

	tok, exp, err := s.Sign(id, []string{"User"}, AccessToken)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, id, c.Subject)
	assert.Equal(t, AccessToken, c.Kind)
	assert.True(t, c.HasRole("User"))
	assert.False(t, c.HasRole("Administrator"))
	assert.NotEmpty(t, c.ID)

	refresh, _, err := s.Sign(id, nil, RefreshToken)
	require.NoError(t, err)
	rc, err := s.Verify(refresh)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, rc.Kind)
}

func TestVerifyRejects(t *testing.T) {
	s := NewSigner("secret", "erpcore", time.Hour, time.Hour)
	tok, _, err := s.Sign(uuid.NewString(), nil, AccessToken)
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		_, err := NewSigner("other", "erpcore", time.Hour, time.Hour).Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewSigner("secret", "someone-else", time.Hour, time.Hour).Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		old := NewSigner("secret", "erpcore", time.Minute, time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		stale, _, err := old.Sign(uuid.NewString(), nil, AccessToken)
		require.NoError(t, err)
		_, err = s.Verify(stale)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := s.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(h, "Str0ng!Pass"))
	assert.Error(t, CheckPassword(h, "str0ng!pass"))

	long := "Aa1!0123456789012345678901234567890123456789012345678901234567890123456789-tail"
	lh, err := HashPassword(long)
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(lh, long))
	assert.Error(t, CheckPassword(lh, long[:72]))
}
