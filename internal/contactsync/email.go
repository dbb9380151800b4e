package contactsync

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeEmail trims surrounding whitespace and lowercases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a syntactically valid address.
// Leading or trailing whitespace makes it invalid.
func ValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return validate.Var(email, "required,email") == nil
}
