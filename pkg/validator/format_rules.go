package validator

import (
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

// E.164: optional plus, no leading zero, 7 to 15 digits.
var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// ValidEmail accepts a bare RFC 5322 address whose domain has at least two
// non-empty labels. Display names are rejected.
func ValidEmail(field, value string) Rule {
	return newRule(field, "email", "must be a valid email address", func() bool {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != strings.TrimSpace(value) {
			return false
		}
		_, domain, _ := strings.Cut(addr.Address, "@")
		labels := strings.Split(domain, ".")
		return len(labels) > 1 && !slices.Contains(labels, "")
	})
}

// ValidURL requires an absolute URL with scheme and host.
func ValidURL(field, value string) Rule {
	return newRule(field, "url", "must be a valid URL", func() bool {
		u, err := url.ParseRequestURI(value)
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

// ValidURLWithScheme is ValidURL restricted to the given schemes.
func ValidURLWithScheme(field, value string, schemes []string) Rule {
	return newRule(field, "url_scheme", "must be a valid URL with scheme: "+strings.Join(schemes, ", "), func() bool {
		u, err := url.ParseRequestURI(value)
		return err == nil && u.Host != "" && slices.Contains(schemes, u.Scheme)
	})
}

// ValidPhone expects a dialable E.164 number with formatting already
// stripped.
func ValidPhone(field, value string) Rule {
	return newRule(field, "phone", "must be a valid phone number in international format", func() bool {
		return phoneRegex.MatchString(value)
	})
}

// ValidTimezone accepts IANA zone names such as "Europe/Berlin" and "UTC".
func ValidTimezone(field, value string) Rule {
	return newRule(field, "timezone", "must be a valid IANA time zone", func() bool {
		if value == "" || value == "Local" {
			return false
		}
		_, err := time.LoadLocation(value)
		return err == nil
	})
}
