package contactsync

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-sync/internal/model"
)

// Outcome is the decision the engine took for one mapped contact.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

// Count adds the outcome to c.
func (o Outcome) Count(c *model.SyncCounts) {
	switch o {
	case OutcomeCreated:
		c.Created++
	case OutcomeUpdated:
		c.Updated++
	default:
		c.Skipped++
	}
}

// Engine decides between creating and updating local contacts. The remote
// id is the primary identity; email is consulted only when the remote id is
// empty.
//
// An Engine is meant for a single run. In dry-run mode it keeps the state
// each contact would have after the writes it skipped, so later records in
// the same run match exactly as they would after real writes.
type Engine struct {
	store ContactStore

	// updated holds stored contacts as simulated updates left them.
	updated map[int64]model.Contact
	// created holds simulated creates in creation order. They rank after
	// every stored contact, as new rows would.
	created []model.Contact
}

// NewEngine creates an Engine backed by store.
func NewEngine(store ContactStore) *Engine {
	return &Engine{
		store:   store,
		updated: make(map[int64]model.Contact),
	}
}

// Upsert applies mapped to local storage, or only computes the outcome when
// dryRun is set. Storage errors are returned unchanged in meaning.
func (e *Engine) Upsert(ctx context.Context, mapped *model.MappedContact, dryRun bool) (Outcome, error) {
	if mapped == nil || mapped.Name == "" || mapped.Email == "" {
		return OutcomeSkipped, nil
	}

	var (
		m   match
		err error
	)
	if dryRun {
		m, err = e.matchSimulated(ctx, mapped)
	} else {
		m, err = e.match(ctx, mapped)
	}
	if err != nil {
		return "", err
	}

	log := zap.L().With(
		zap.String("remote_id", mapped.RemoteID),
		zap.Bool("dry_run", dryRun),
	)

	if m.found() {
		c := m.current()
		applyMapped(&c, mapped)

		if dryRun {
			if m.stored != nil {
				e.updated[c.ID] = c
			} else {
				e.created[m.createdIdx] = c
			}
			log.Debug("contactsync: would update contact")
			return OutcomeUpdated, nil
		}

		if err := e.store.UpdateContact(ctx, &c); err != nil {
			return "", eris.Wrapf(err, "contactsync: update contact %d", c.ID)
		}
		log.Debug("contactsync: updated contact", zap.Int64("contact_id", c.ID))
		return OutcomeUpdated, nil
	}

	var c model.Contact
	applyMapped(&c, mapped)

	if dryRun {
		e.created = append(e.created, c)
		log.Debug("contactsync: would create contact")
		return OutcomeCreated, nil
	}

	created, err := e.store.CreateContact(ctx, c)
	if err != nil {
		return "", eris.Wrap(err, "contactsync: create contact")
	}
	log.Debug("contactsync: created contact", zap.Int64("contact_id", created.ID))
	return OutcomeCreated, nil
}

// applyMapped copies the remote fields onto c. An empty remote id keeps the
// existing link.
func applyMapped(c *model.Contact, mapped *model.MappedContact) {
	c.Name = mapped.Name
	c.Email = mapped.Email
	if mapped.RemoteID != "" {
		rid := mapped.RemoteID
		c.RemoteID = &rid
	}
}

// match is the contact an upsert resolved to: a stored row, a simulated
// create, or nothing.
type match struct {
	stored     *model.Contact
	simulated  *model.Contact
	createdIdx int
}

func (m match) found() bool {
	return m.stored != nil || m.simulated != nil
}

func (m match) current() model.Contact {
	if m.stored != nil {
		return *m.stored
	}
	return *m.simulated
}

func (e *Engine) match(ctx context.Context, mapped *model.MappedContact) (match, error) {
	if mapped.RemoteID != "" {
		c, err := e.store.FindContactByRemoteID(ctx, mapped.RemoteID)
		if err != nil {
			return match{}, eris.Wrapf(err, "contactsync: find by remote id %s", mapped.RemoteID)
		}
		return match{stored: c}, nil
	}

	c, err := e.store.FindContactByEmail(ctx, mapped.Email)
	if err != nil {
		return match{}, eris.Wrap(err, "contactsync: find by email")
	}
	return match{stored: c}, nil
}

// matchSimulated resolves mapped against storage as the skipped writes
// would have left it.
func (e *Engine) matchSimulated(ctx context.Context, mapped *model.MappedContact) (match, error) {
	if mapped.RemoteID != "" {
		c, err := e.store.FindContactByRemoteID(ctx, mapped.RemoteID)
		if err != nil {
			return match{}, eris.Wrapf(err, "contactsync: find by remote id %s", mapped.RemoteID)
		}
		if c != nil {
			u, simulated := e.updated[c.ID]
			if !simulated {
				return match{stored: c}, nil
			}
			if u.RemoteIDString() == mapped.RemoteID {
				return match{stored: &u}, nil
			}
		}
		if u, ok := e.firstUpdated(func(u model.Contact) bool { return u.RemoteIDString() == mapped.RemoteID }); ok {
			return match{stored: &u}, nil
		}
		return e.firstCreated(func(c model.Contact) bool { return c.RemoteIDString() == mapped.RemoteID }), nil
	}

	rows, err := e.store.ListContactsByEmail(ctx, mapped.Email)
	if err != nil {
		return match{}, eris.Wrap(err, "contactsync: find by email")
	}

	var best *model.Contact
	for _, c := range rows {
		if u, ok := e.updated[c.ID]; ok {
			if u.Email != mapped.Email {
				continue
			}
			c = u
		}
		best = &c
		break
	}
	if u, ok := e.firstUpdated(func(u model.Contact) bool { return u.Email == mapped.Email }); ok {
		if best == nil || u.ID < best.ID {
			best = &u
		}
	}
	if best != nil {
		return match{stored: best}, nil
	}
	return e.firstCreated(func(c model.Contact) bool { return c.Email == mapped.Email }), nil
}

// firstUpdated returns the lowest-id simulated update accepted by keep.
func (e *Engine) firstUpdated(keep func(model.Contact) bool) (model.Contact, bool) {
	var (
		best  model.Contact
		found bool
	)
	for id, u := range e.updated {
		if keep(u) && (!found || id < best.ID) {
			best, found = u, true
		}
	}
	return best, found
}

func (e *Engine) firstCreated(keep func(model.Contact) bool) match {
	for i := range e.created {
		if keep(e.created[i]) {
			c := e.created[i]
			return match{simulated: &c, createdIdx: i}
		}
	}
	return match{}
}
