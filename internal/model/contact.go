package model

import "time"

// Contact is a locally stored contact. RemoteID is nil until the contact
// has been linked to a sevDesk contact.
type Contact struct {
	ID        int64     `json:"id" yaml:"id"`
	RemoteID  *string   `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Image     string    `json:"image,omitempty" yaml:"image,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasRemoteID reports whether the contact is linked to a remote record.
func (c Contact) HasRemoteID() bool {
	return c.RemoteID != nil && *c.RemoteID != ""
}

// RemoteIDString returns the remote id or "" when unlinked.
func (c Contact) RemoteIDString() string {
	if c.RemoteID == nil {
		return ""
	}
	return *c.RemoteID
}

// MappedContact is a remote record reduced to the fields the sync writes.
// Name and Email are always non-empty; RemoteID may be empty.
type MappedContact struct {
	RemoteID string `json:"remote_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}
