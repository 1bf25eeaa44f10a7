package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidCPF(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"11144477735", true},
		{"111.444.777-35", true},
		{"529.982.247-25", true},
		{"11111111111", false},
		{"12345678901", false},
		{"1114447773", false},
		{"111444777350", false},
		{"", false},
		{"abc.def.ghi-jk", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidCPF(tc.in))
		})
	}
}

func TestFormatAndCleanCPF(t *testing.T) {
	assert.Equal(t, "111.444.777-35", FormatCPF("11144477735"))
	assert.Equal(t, "11144477735", CleanCPF("111.444.777-35"))
	assert.Equal(t, "11144477735", CleanCPF(FormatCPF(" 111 444 777 35 ")))
	assert.Equal(t, "123", FormatCPF("1-2-3"))
}

func TestGenerateCPF(t *testing.T) {
	for i := 0; i < 200; i++ {
		c := GenerateCPF()
		require.Len(t, c, 11)
		require.True(t, IsValidCPF(c), c)
	}
}
