package validation

import (
	"math/rand/v2"
	"strings"
)

const cpfLength = 11

// CleanCPF strips every non-digit character.
func CleanCPF(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidCPF reports whether s carries 11 digits with matching check digits.
// Punctuation is ignored.
func IsValidCPF(s string) bool {
	c := CleanCPF(s)
	if len(c) != cpfLength {
		return false
	}
	if allSame(c) {
		return false
	}
	d := digits(c)
	return cpfCheckDigit(d[:9]) == d[9] && cpfCheckDigit(d[:10]) == d[10]
}

// FormatCPF renders s as ###.###.###-##. Input that does not clean to
// 11 digits is returned cleaned but otherwise untouched.
func FormatCPF(s string) string {
	c := CleanCPF(s)
	if len(c) != cpfLength {
		return c
	}
	return c[0:3] + "." + c[3:6] + "." + c[6:9] + "-" + c[9:11]
}

// GenerateCPF returns a random, checksum-valid CPF (digits only).
func GenerateCPF() string {
	d := make([]int, 0, cpfLength)
	for {
		d = d[:0]
		for i := 0; i < 9; i++ {
			d = append(d, rand.IntN(10))
		}
		if !allSameInts(d) {
			break
		}
	}
	d = append(d, cpfCheckDigit(d))
	d = append(d, cpfCheckDigit(d))
	var b strings.Builder
	for _, n := range d {
		b.WriteByte(byte('0' + n))
	}
	return b.String()
}

// cpfCheckDigit weights the digits from len(d)+1 down to 2.
func cpfCheckDigit(d []int) int {
	sum := 0
	weight := len(d) + 1
	for i, n := range d {
		sum += n * (weight - i)
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

func digits(s string) []int {
	out := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = int(s[i] - '0')
	}
	return out
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func allSameInts(d []int) bool {
	for _, n := range d[1:] {
		if n != d[0] {
			return false
		}
	}
	return true
}
