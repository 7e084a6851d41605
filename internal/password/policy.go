// Package password holds the password policy shared by sign-up and reset.
package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinLength = 8
	MaxLength = 128

	// Symbols is the set of characters that count as a symbol.
	Symbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"
)

// Denylist holds substrings a password may not contain, case-insensitively.
var Denylist = []string{"123", "abc", "qwe", "password", "admin", "user", "test", "12345678"}

// Messages for each rule, in the order rules are checked.
const (
	MsgLength     = "Password must be between 8 and 128 characters"
	MsgUpper      = "Password must contain at least one uppercase letter"
	MsgLower      = "Password must contain at least one lowercase letter"
	MsgDigit      = "Password must contain at least one number"
	MsgSymbol     = "Password must contain at least one special character"
	MsgRepeat     = "Password must not contain 3 or more identical characters in a row"
	MsgDenylisted = "Password must not contain common words or sequences"
	MsgMismatch   = "Passwords do not match"
)

// Form is the submitted new password and its confirmation.
type Form struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Check returns the messages of every rule the password violates.
func Check(password string) []string {
	var violations []string

	if n := utf8.RuneCountInString(password); n < MinLength || n > MaxLength {
		violations = append(violations, MsgLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	if !upper {
		violations = append(violations, MsgUpper)
	}
	if !lower {
		violations = append(violations, MsgLower)
	}
	if !digit {
		violations = append(violations, MsgDigit)
	}
	if !symbol {
		violations = append(violations, MsgSymbol)
	}
	if hasRun(password, 3) {
		violations = append(violations, MsgRepeat)
	}
	if containsDenylisted(password) {
		violations = append(violations, MsgDenylisted)
	}

	return violations
}

// Validate checks the form: policy rules first, then confirmation.
func Validate(f Form) []string {
	violations := Check(f.Password)
	if f.Password != f.ConfirmPassword {
		violations = append(violations, MsgMismatch)
	}
	return violations
}

func hasRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

func containsDenylisted(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range Denylist {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
