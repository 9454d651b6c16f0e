package core

// Input validation (§4.6.10). Pure, side-effect-free predicates over
// trimmed strings — the original's in-place C trim on a non-owned buffer
// is undefined behaviour with no Go equivalent worth preserving (§9 Open
// Questions).

import (
	"strings"
)

// CheckUsername requires at least 4 characters after trimming whitespace.
func CheckUsername(username string) bool {
	return len(strings.TrimSpace(username)) >= 4
}

// CheckPin requires four decimal digits, excluding "0000".
func CheckPin(pin string) bool {
	trimmed := strings.TrimSpace(pin)
	if len(trimmed) != 4 {
		return false
	}
	if trimmed == "0000" {
		return false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CheckPassword requires at least 4 characters after trimming whitespace.
func CheckPassword(password string) bool {
	return len(strings.TrimSpace(password)) >= 4
}
