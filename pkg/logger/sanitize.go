package logger

import (
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

var sensitiveParams = map[string]bool{
	"password": true,
	"token":    true,
	"secret":   true,
	"email":    true,
	"auth":     true,
	"jwt":      true,
}

// SanitizedEmail masks an email address for logging (e.g., "u***@*******.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Keep first char of the local part
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Keep only the TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// RedactQuery replaces the values of sensitive query parameters.
// An unparseable query is redacted entirely.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redacted
	}

	for key := range values {
		if isSensitive(key) {
			values[key] = []string{redacted}
		}
	}
	return values.Encode()
}

// RedactPath masks path segments following a sensitive route prefix, e.g. the
// email in /user/reset-password/{email}
func RedactPath(path string) string {
	const resetPrefix = "/user/reset-password/"
	if strings.HasPrefix(path, resetPrefix) {
		return resetPrefix + SanitizedEmail(strings.TrimPrefix(path, resetPrefix))
	}
	return path
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for param := range sensitiveParams {
		if strings.Contains(key, param) {
			return true
		}
	}
	return false
}
