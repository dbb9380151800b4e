package store

import (
	"context"

	"github.com/sells-group/contact-sync/internal/model"
)

// ContactFilter specifies criteria for listing local contacts.
type ContactFilter struct {
	// Query matches a substring of name or email, case-insensitively.
	Query           string `json:"query,omitempty"`
	WithoutRemoteID bool   `json:"without_remote_id,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the contact sync.
type Store interface {
	// Contacts. Finders return nil, nil when nothing matches.
	FindContactByRemoteID(ctx context.Context, remoteID string) (*model.Contact, error)
	FindContactByEmail(ctx context.Context, email string) (*model.Contact, error)
	ListContactsByEmail(ctx context.Context, email string) ([]model.Contact, error)
	CreateContact(ctx context.Context, c model.Contact) (*model.Contact, error)
	UpdateContact(ctx context.Context, c *model.Contact) error
	ListContactsWithoutRemoteID(ctx context.Context, limit int) ([]model.Contact, error)
	ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error)

	// Runs
	CreateRun(ctx context.Context, kind model.RunKind) (*model.SyncRun, error)
	FinishRun(ctx context.Context, runID string, counts model.SyncCounts, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.SyncRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.SyncRun, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// finishStatus maps the outcome of a run to its terminal status and error text.
func finishStatus(runErr error) (model.RunStatus, string) {
	if runErr != nil {
		return model.RunStatusFailed, runErr.Error()
	}
	return model.RunStatusComplete, ""
}
