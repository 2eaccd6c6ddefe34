// Package phone normalizes Brazilian phone numbers for the WhatsApp gateway.
//
// Numbers are stored as bare digit strings with the 55 country prefix and
// rendered on the wire as "<digits>@s.whatsapp.net". Customer lookups match
// on the last 8 digits so inputs with or without country/area prefixes
// resolve to the same contact.
package phone

import (
	"errors"
	"strings"
)

// WireSuffix is the gateway JID suffix appended to normalized numbers.
const WireSuffix = "@s.whatsapp.net"

// countryPrefix is prepended to national numbers that lack it.
const countryPrefix = "55"

// ErrInvalid is returned when an input does not contain a plausible
// Brazilian subscriber number.
var ErrInvalid = errors.New("invalid phone number")

// Normalize strips formatting from raw and returns the canonical digit form
// "55<area><subscriber>". Inputs already carrying the 55 prefix are not
// double-prefixed. Accepts 10–11 national digits (with or without the extra
// mobile 9) plus the optional country code.
func Normalize(raw string) (string, error) {
	digits := Digits(raw)
	if digits == "" {
		return "", ErrInvalid
	}

	// 12–13 digits starting with 55: country code already present.
	if strings.HasPrefix(digits, countryPrefix) && len(digits) >= 12 && len(digits) <= 13 {
		return digits, nil
	}
	if len(digits) >= 10 && len(digits) <= 11 {
		return countryPrefix + digits, nil
	}
	return "", ErrInvalid
}

// Wire returns the gateway JID for raw, normalizing first.
func Wire(raw string) (string, error) {
	n, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return n + WireSuffix, nil
}

// Digits returns only the decimal digits of s, dropping any gateway suffix.
func Digits(s string) string {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Last8 returns the trailing 8 digits of s (the subscriber number without
// the mobile 9), used for country-code tolerant customer lookups. Shorter
// inputs are returned whole.
func Last8(s string) string {
	d := Digits(s)
	if len(d) <= 8 {
		return d
	}
	return d[len(d)-8:]
}

// SameSubscriber reports whether two raw inputs refer to the same subscriber
// by comparing their last 8 digits.
func SameSubscriber(a, b string) bool {
	la, lb := Last8(a), Last8(b)
	return la != "" && la == lb
}
