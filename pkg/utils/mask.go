package utils

import "regexp"

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN hides the password portion of a database DSN for logging.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskToken keeps the numeric bot ID prefix visible and hides the secret part,
// e.g. "123456:ABC-xyz" -> "123456:***".
func MaskToken(token string) string {
	for i, r := range token {
		if r == ':' {
			return token[:i] + ":***"
		}
	}
	if len(token) > 4 {
		return token[:4] + "***"
	}
	return "***"
}
