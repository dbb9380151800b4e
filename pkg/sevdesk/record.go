package sevdesk

import (
	"encoding/json"
	"strconv"
)

// Record is a raw sevDesk object as decoded from the "objects" envelope.
// Field sets differ between endpoints and tenants, so values are kept loose
// and read through the accessors below.
type Record map[string]any

// Lookup returns the value stored under key rendered as a string. The
// boolean is false when the key is missing or null.
func (r Record) Lookup(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return scalarString(v), true
}

// String returns the value stored under key, or "" when absent.
func (r Record) String(key string) string {
	s, _ := r.Lookup(key)
	return s
}

// Nested returns r[key][sub] as a string, e.g. Nested("contact", "id") on
// address and communication way records.
func (r Record) Nested(key, sub string) string {
	switch m := r[key].(type) {
	case map[string]any:
		return Record(m).String(sub)
	case Record:
		return m.String(sub)
	default:
		return ""
	}
}

// ID returns the sevDesk id of the record.
func (r Record) ID() string {
	return r.String("id")
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return ""
	default:
		// Objects and arrays have no scalar form.
		return ""
	}
}
