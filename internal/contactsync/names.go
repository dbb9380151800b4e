package contactsync

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	fallbackFirstName = "Unknown"
	fallbackLastName  = "Contact"
)

// cleanName trims and NFC-normalizes a display name so composed and
// decomposed umlauts compare equal.
func cleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// SplitName splits a display name into the first and last name sevDesk
// expects on a person contact. A single token fills both halves. The name is
// NFC-normalized first.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(cleanName(name))
	switch len(parts) {
	case 0:
		return fallbackFirstName, fallbackLastName
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
