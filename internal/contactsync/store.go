package contactsync

import (
	"context"

	"github.com/sells-group/contact-sync/internal/model"
)

// ContactStore is the local persistence the sync needs. Finders return
// nil, nil when nothing matches.
type ContactStore interface {
	FindContactByRemoteID(ctx context.Context, remoteID string) (*model.Contact, error)
	FindContactByEmail(ctx context.Context, email string) (*model.Contact, error)
	// ListContactsByEmail returns every contact with email, lowest id first.
	ListContactsByEmail(ctx context.Context, email string) ([]model.Contact, error)
	CreateContact(ctx context.Context, c model.Contact) (*model.Contact, error)
	UpdateContact(ctx context.Context, c *model.Contact) error
	ListContactsWithoutRemoteID(ctx context.Context, limit int) ([]model.Contact, error)
}
