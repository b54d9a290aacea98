package utils

import "unicode/utf8"

const (
	PasswordMinLen = 8
	PasswordMaxLen = 15
)

// IsValidPassword 长度 8~15，且同时包含小写字母、大写字母、非字母数字字符
func IsValidPassword(pw string) bool {
	n := utf8.RuneCountInString(pw)
	if n < PasswordMinLen || n > PasswordMaxLen {
		return false
	}
	var lower, upper, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
		default:
			symbol = true
		}
	}
	return lower && upper && symbol
}
