package security

import "strings"

// passwordSymbols is the fixed set of symbols the strength policy accepts.
const passwordSymbols = "@$!%*?&"

// ValidPassword reports whether password satisfies the strength policy:
// at least 8 characters, with at least one uppercase letter, one lowercase
// letter, one digit, and one symbol from the allowed set.
func ValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
