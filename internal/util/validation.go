package util

import (
	"regexp"
	"strings"
)

var (
	uuidRegex        = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	pairingCodeRegex = regexp.MustCompile(`^[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{10,12}$`)
	identifierRegex  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}

// NormalizePairingCode trims and upper-cases user input.
func NormalizePairingCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidPairingCode checks shape only; it never touches storage.
func IsValidPairingCode(code string) bool {
	return pairingCodeRegex.MatchString(code)
}

// IsValidIdentifier accepts the client-supplied ids used inside store keys
// (pair ids, challenge ids, mission ids, update ids).
func IsValidIdentifier(s string) bool {
	return identifierRegex.MatchString(s)
}

func IsValidEnum(value string, validValues []string) bool {
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
