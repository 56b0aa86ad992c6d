package order

import (
	"strings"
)

// DefaultCountryCode is prefixed to numbers that carry none.
const DefaultCountryCode = "673"

const deepLinkBase = "https://wa.me/"

// FormatPhone reduces phone to the digits wa.me expects. Everything but
// digits and '+' is removed, countryCode is prefixed when absent, and the
// leading '+' is dropped.
func FormatPhone(phone, countryCode string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, phone)
	if cleaned == "" {
		return ""
	}
	if !strings.HasPrefix(cleaned, "+"+countryCode) && !strings.HasPrefix(cleaned, countryCode) {
		cleaned = countryCode + cleaned
	}
	return strings.TrimPrefix(cleaned, "+")
}

// BuildDeepLink returns the wa.me link for phone using DefaultCountryCode.
func BuildDeepLink(phone, message string) string {
	return BuildDeepLinkFor(DefaultCountryCode, phone, message)
}

// BuildDeepLinkFor returns the wa.me link for phone with an explicit
// country code. An empty phone yields a link that lets the user pick the
// recipient.
func BuildDeepLinkFor(countryCode, phone, message string) string {
	return deepLinkBase + FormatPhone(phone, countryCode) + "?text=" + EncodeURIComponent(message)
}

const upperHex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes s the way browsers do for a URI
// component: every UTF-8 byte except A-Z a-z 0-9 and -_.!~*'() is escaped.
func EncodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
