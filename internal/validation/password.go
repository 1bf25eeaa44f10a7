package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

var trivialSubstrings = []string{"123", "abc", "qwe", "asd", "zxc"}

var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"qwerty123":   {},
	"admin123":    {},
	"senha123":    {},
	"iloveyou":    {},
	"welcome1":    {},
	"letmein1":    {},
}

// PasswordErrors lists every policy rule the password breaks, one message per rule.
func PasswordErrors(pw string) []string {
	if pw == "" {
		return []string{"password is required"}
	}
	var errs []string
	n := utf8.RuneCountInString(pw)
	if n < PasswordMinLength || n > PasswordMaxLength {
		errs = append(errs, "password must be between 8 and 128 characters")
	}

	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			special = true
		}
	}
	if !lower {
		errs = append(errs, "password must contain at least one lowercase letter")
	}
	if !upper {
		errs = append(errs, "password must contain at least one uppercase letter")
	}
	if !digit {
		errs = append(errs, "password must contain at least one digit")
	}
	if !special {
		errs = append(errs, "password must contain at least one special character")
	}

	folded := strings.ToLower(pw)
	for _, s := range trivialSubstrings {
		if strings.Contains(folded, s) {
			errs = append(errs, "password must not contain common sequences such as \""+s+"\"")
			break
		}
	}
	if isSimplePassword(pw) {
		errs = append(errs, "password is too simple")
	}
	return errs
}

// IsStrongPassword reports whether pw passes every rule of PasswordErrors.
func IsStrongPassword(pw string) bool {
	return len(PasswordErrors(pw)) == 0
}

func isSimplePassword(pw string) bool {
	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		return true
	}
	runes := []rune(pw)
	same := true
	for _, r := range runes[1:] {
		if r != runes[0] {
			same = false
			break
		}
	}
	if same {
		return true
	}
	if len(runes) != PasswordMinLength {
		return false
	}
	return every(runes, unicode.IsDigit) || every(runes, isASCIILower) || every(runes, isASCIIUpper)
}

func every(rs []rune, pred func(rune) bool) bool {
	for _, r := range rs {
		if !pred(r) {
			return false
		}
	}
	return true
}

func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
