package sanitizer

import (
	"regexp"
	"strings"
)

var (
	dotRegex      = regexp.MustCompile(`\.+`)
	nonDigitRegex = regexp.MustCompile(`\D`)
)

// NormalizeEmail trims and lowercases email and collapses repeated dots in
// the local part. Input without exactly one @ is only trimmed and lowercased.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return email
	}
	local = strings.Trim(dotRegex.ReplaceAllString(local, "."), ".")
	return local + "@" + domain
}

// NormalizePhone strips formatting from a dialable number. A leading +
// survives so E.164 numbers keep their country code marker.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	if strings.HasPrefix(phone, "+") && digits != "" {
		return "+" + digits
	}
	return digits
}

// MaskPhone hides all but the last four digits, for logs.
func MaskPhone(phone string) string {
	normalized := NormalizePhone(phone)
	if plus := strings.HasPrefix(normalized, "+"); plus {
		return "+" + MaskString(normalized[1:], 4)
	}
	return MaskString(normalized, 4)
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + "@" + domain
}
