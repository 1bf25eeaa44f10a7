package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordErrors(t *testing.T) {
	t.Run("strong", func(t *testing.T) {
		assert.Empty(t, PasswordErrors("Str0ng!Pass"))
		assert.True(t, IsStrongPassword("Vermelho#2024"))
	})

	t.Run("empty reports only required", func(t *testing.T) {
		assert.Equal(t, []string{"password is required"}, PasswordErrors(""))
	})

	t.Run("one message per broken rule", func(t *testing.T) {
		errs := PasswordErrors("short")
		assert.Contains(t, errs, "password must be between 8 and 128 characters")
		assert.Contains(t, errs, "password must contain at least one uppercase letter")
		assert.Contains(t, errs, "password must contain at least one digit")
		assert.Contains(t, errs, "password must contain at least one special character")
		assert.NotContains(t, errs, "password must contain at least one lowercase letter")
	})

	t.Run("too long", func(t *testing.T) {
		pw := "Aa1!" + strings.Repeat("x", 130)
		assert.Contains(t, PasswordErrors(pw), "password must be between 8 and 128 characters")
	})

	t.Run("trivial sequence reported once", func(t *testing.T) {
		errs := PasswordErrors("Xy!123abcQ")
		n := 0
		for _, e := range errs {
			if strings.Contains(e, "common sequences") {
				n++
			}
		}
		assert.Equal(t, 1, n)
	})

	t.Run("simple passwords", func(t *testing.T) {
		for _, pw := range []string{"password", "aaaaaaaa", "87654329", "ABCDEFGH"} {
			assert.Contains(t, PasswordErrors(pw), "password is too simple", pw)
		}
	})
}
