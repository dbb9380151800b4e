package contactsync

import (
	"strings"

	"github.com/sells-group/contact-sync/internal/model"
	"github.com/sells-group/contact-sync/pkg/sevdesk"
)

// Alias groups in priority order. The first key present on the record wins,
// even when its value is blank.
var (
	firstNameKeys = []string{"givenName", "firstName", "surename"}
	lastNameKeys  = []string{"familyname", "lastName"}
)

// nameRule derives a display name from a record, or "" when it cannot.
type nameRule func(rec sevdesk.Record) string

// emailRule yields a raw email candidate for a record.
type emailRule func(rec sevdesk.Record, idx EmailIndex) string

var nameRules = []nameRule{
	personName,
	directName,
}

var emailRules = []emailRule{
	field("email"),
	field("emailAddress"),
	field("mainEmail"),
	indexedEmail,
}

// MapContact reduces a remote contact record to the fields the sync writes.
// It returns false when no usable name or email can be derived.
func MapContact(rec sevdesk.Record, idx EmailIndex) (*model.MappedContact, bool) {
	if rec == nil {
		return nil, false
	}

	name := extractName(rec)
	if name == "" {
		return nil, false
	}
	email := extractEmail(rec, idx)
	if email == "" {
		return nil, false
	}

	return &model.MappedContact{
		RemoteID: strings.TrimSpace(rec.ID()),
		Name:     name,
		Email:    email,
	}, true
}

func extractName(rec sevdesk.Record) string {
	for _, rule := range nameRules {
		if name := rule(rec); name != "" {
			return name
		}
	}
	return ""
}

func extractEmail(rec sevdesk.Record, idx EmailIndex) string {
	for _, rule := range emailRules {
		candidate := strings.TrimSpace(rule(rec, idx))
		if candidate != "" && ValidEmail(candidate) {
			return NormalizeEmail(candidate)
		}
	}
	return ""
}

func personName(rec sevdesk.Record) string {
	first := cleanName(firstPresent(rec, firstNameKeys))
	last := cleanName(firstPresent(rec, lastNameKeys))
	return strings.TrimSpace(first + " " + last)
}

func directName(rec sevdesk.Record) string {
	return cleanName(rec.String("name"))
}

func firstPresent(rec sevdesk.Record, keys []string) string {
	for _, k := range keys {
		if v, ok := rec.Lookup(k); ok {
			return v
		}
	}
	return ""
}

func field(key string) emailRule {
	return func(rec sevdesk.Record, _ EmailIndex) string {
		return rec.String(key)
	}
}

func indexedEmail(rec sevdesk.Record, idx EmailIndex) string {
	email, _ := idx.Lookup(rec.ID())
	return email
}
