package contactsync

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-sync/internal/model"
	"github.com/sells-group/contact-sync/pkg/sevdesk"
)

// memStore is an in-memory ContactStore.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	contacts map[int64]model.Contact

	findErr   error
	createErr error
	updateErr error
	listErr   error

	creates int
	updates int
}

func newMemStore(seed ...model.Contact) *memStore {
	s := &memStore{contacts: make(map[int64]model.Contact)}
	for _, c := range seed {
		_, _ = s.CreateContact(context.Background(), c)
	}
	s.creates = 0
	return s
}

func (s *memStore) FindContactByRemoteID(_ context.Context, remoteID string) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, id := range s.sortedIDs() {
		c := s.contacts[id]
		if c.RemoteIDString() == remoteID && c.RemoteID != nil {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindContactByEmail(_ context.Context, email string) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, id := range s.sortedIDs() {
		c := s.contacts[id]
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListContactsByEmail(_ context.Context, email string) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []model.Contact
	for _, id := range s.sortedIDs() {
		if c := s.contacts[id]; c.Email == email {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) CreateContact(_ context.Context, c model.Contact) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	if c.RemoteID != nil {
		for _, existing := range s.contacts {
			if existing.RemoteID != nil && *existing.RemoteID == *c.RemoteID {
				return nil, eris.Errorf("duplicate remote id %s", *c.RemoteID)
			}
		}
	}
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	s.contacts[c.ID] = c
	s.creates++
	return &c, nil
}

func (s *memStore) UpdateContact(_ context.Context, c *model.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.contacts[c.ID]; !ok {
		return eris.Errorf("contact not found: %d", c.ID)
	}
	s.contacts[c.ID] = *c
	s.updates++
	return nil
}

func (s *memStore) ListContactsWithoutRemoteID(_ context.Context, limit int) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Contact
	for _, id := range s.sortedIDs() {
		c := s.contacts[id]
		if c.HasRemoteID() {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.contacts))
	for id := range s.contacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// snapshot returns contacts ordered by id with timestamps cleared.
func (s *memStore) snapshot() []model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Contact, 0, len(s.contacts))
	for _, id := range s.sortedIDs() {
		c := s.contacts[id]
		c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}
		out = append(out, c)
	}
	return out
}

// fakeRemote serves fixed record sets with offset pagination.
type fakeRemote struct {
	contacts  []sevdesk.Record
	addresses []sevdesk.Record
	ways      []sevdesk.Record
	byID      map[string]sevdesk.Record

	getCalls []string
	nextID   int
}

func page(rows []sevdesk.Record, limit, offset int) []sevdesk.Record {
	if offset >= len(rows) {
		return nil
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end]
}

func (f *fakeRemote) ListContacts(_ context.Context, limit, offset int) ([]sevdesk.Record, error) {
	return page(f.contacts, limit, offset), nil
}

func (f *fakeRemote) GetContactByID(_ context.Context, id string) (sevdesk.Record, error) {
	f.getCalls = append(f.getCalls, id)
	return f.byID[id], nil
}

func (f *fakeRemote) ListContactAddresses(_ context.Context, limit, offset int) ([]sevdesk.Record, error) {
	return page(f.addresses, limit, offset), nil
}

func (f *fakeRemote) ListCommunicationWays(_ context.Context, limit, offset int) ([]sevdesk.Record, error) {
	return page(f.ways, limit, offset), nil
}

func (f *fakeRemote) CreateContactPerson(_ context.Context, _, _ string) (string, error) {
	f.nextID++
	return strconv.Itoa(1000 + f.nextID), nil
}

func (f *fakeRemote) CreateCommunicationEmail(context.Context, string, string, bool) error {
	return nil
}

func (f *fakeRemote) Ping(context.Context) (int, error) {
	return min(len(f.contacts), 1), nil
}

func emailWay(contactID, value string) sevdesk.Record {
	return sevdesk.Record{
		"type":    "EMAIL",
		"value":   value,
		"contact": map[string]any{"id": contactID, "objectName": "Contact"},
	}
}

func addressFor(contactID string) sevdesk.Record {
	return sevdesk.Record{"contact": map[string]any{"id": contactID}}
}

func strPtr(s string) *string { return &s }
