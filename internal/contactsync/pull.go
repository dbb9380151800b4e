package contactsync

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-sync/internal/model"
	"github.com/sells-group/contact-sync/pkg/sevdesk"
)

// PullOptions controls a remote to local sync.
type PullOptions struct {
	PageSize int
	MaxPages int
	DryRun   bool
}

func (o PullOptions) normalized() PullOptions {
	o.PageSize = max(o.PageSize, 1)
	o.MaxPages = max(o.MaxPages, 1)
	return o
}

// Puller copies sevDesk contacts into local storage.
type Puller struct {
	client sevdesk.Client
	store  ContactStore
}

// NewPuller creates a Puller.
func NewPuller(client sevdesk.Client, store ContactStore) *Puller {
	return &Puller{client: client, store: store}
}

// Pull reads every remote contact and upserts it locally. Contacts are read
// from the contact listing first, then from the address listing, which some
// tenants populate when the contact listing comes back partial. A remote id
// is processed at most once across both passes. Any remote or storage error
// aborts the run.
func (p *Puller) Pull(ctx context.Context, opts PullOptions) (model.SyncCounts, error) {
	opts = opts.normalized()
	log := zap.L().With(zap.Bool("dry_run", opts.DryRun))

	var counts model.SyncCounts

	idx, err := BuildEmailIndex(ctx, p.client, opts.PageSize, opts.MaxPages)
	if err != nil {
		return counts, err
	}

	engine := NewEngine(p.store)
	seen := make(map[string]struct{})

	listed, err := p.pullListed(ctx, opts, idx, engine, seen)
	counts.Add(listed)
	if err != nil {
		return counts, err
	}

	linked, err := p.pullAddressLinked(ctx, opts, idx, engine, seen)
	counts.Add(linked)
	if err != nil {
		return counts, err
	}

	log.Info("contactsync: pull complete",
		zap.Int("created", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped),
		zap.Int("indexed_emails", len(idx)),
	)
	return counts, nil
}

func (p *Puller) pullListed(ctx context.Context, opts PullOptions, idx EmailIndex, engine *Engine, seen map[string]struct{}) (model.SyncCounts, error) {
	var counts model.SyncCounts
	for page := 0; page < opts.MaxPages; page++ {
		rows, err := p.client.ListContacts(ctx, opts.PageSize, page*opts.PageSize)
		if err != nil {
			return counts, eris.Wrapf(err, "contactsync: list contacts page %d", page)
		}
		if len(rows) == 0 {
			break
		}

		for _, rec := range rows {
			mapped, ok := MapContact(rec, idx)
			if !ok {
				zap.L().Warn("contactsync: skipping remote contact without name or email",
					zap.String("remote_id", rec.ID()))
				counts.Skipped++
				continue
			}
			if mapped.RemoteID != "" {
				seen[mapped.RemoteID] = struct{}{}
			}

			outcome, err := engine.Upsert(ctx, mapped, opts.DryRun)
			if err != nil {
				return counts, err
			}
			outcome.Count(&counts)
		}
	}
	return counts, nil
}

func (p *Puller) pullAddressLinked(ctx context.Context, opts PullOptions, idx EmailIndex, engine *Engine, seen map[string]struct{}) (model.SyncCounts, error) {
	var counts model.SyncCounts
	for page := 0; page < opts.MaxPages; page++ {
		rows, err := p.client.ListContactAddresses(ctx, opts.PageSize, page*opts.PageSize)
		if err != nil {
			return counts, eris.Wrapf(err, "contactsync: list contact addresses page %d", page)
		}
		if len(rows) == 0 {
			break
		}

		for _, addr := range rows {
			contactID := addr.Nested("contact", "id")
			if contactID == "" {
				continue
			}
			if _, done := seen[contactID]; done {
				continue
			}
			seen[contactID] = struct{}{}

			rec, err := p.client.GetContactByID(ctx, contactID)
			if err != nil {
				return counts, eris.Wrapf(err, "contactsync: get contact %s", contactID)
			}
			if rec == nil {
				zap.L().Warn("contactsync: address-linked contact not returned",
					zap.String("remote_id", contactID))
				counts.Skipped++
				continue
			}

			mapped, ok := MapContact(rec, idx)
			if !ok {
				zap.L().Warn("contactsync: skipping remote contact without name or email",
					zap.String("remote_id", contactID))
				counts.Skipped++
				continue
			}

			outcome, err := engine.Upsert(ctx, mapped, opts.DryRun)
			if err != nil {
				return counts, err
			}
			outcome.Count(&counts)
		}
	}
	return counts, nil
}
