package contactsync

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-sync/internal/model"
	"github.com/sells-group/contact-sync/pkg/sevdesk"
)

// PushOptions controls a local to remote push.
type PushOptions struct {
	Limit  int
	DryRun bool
}

// Pusher creates sevDesk contacts for local contacts that have no remote id.
type Pusher struct {
	client sevdesk.Client
	store  ContactStore
}

// NewPusher creates a Pusher.
func NewPusher(client sevdesk.Client, store ContactStore) *Pusher {
	return &Pusher{client: client, store: store}
}

// Push creates up to opts.Limit unlinked local contacts in sevDesk, oldest
// first. Failures are counted per contact and the batch continues. A contact
// whose remote create succeeded but whose follow-up steps failed stays
// unlinked and is pushed again on the next run.
func (p *Pusher) Push(ctx context.Context, opts PushOptions) (model.SyncCounts, error) {
	limit := max(opts.Limit, 1)
	log := zap.L().With(zap.Bool("dry_run", opts.DryRun))

	var counts model.SyncCounts

	contacts, err := p.store.ListContactsWithoutRemoteID(ctx, limit)
	if err != nil {
		return counts, eris.Wrap(err, "contactsync: list unlinked contacts")
	}

	for i := range contacts {
		if err := ctx.Err(); err != nil {
			return counts, eris.Wrap(err, "contactsync: push interrupted")
		}

		c := &contacts[i]
		if !ValidEmail(c.Email) {
			log.Warn("contactsync: skipping contact with invalid email", zap.Int64("contact_id", c.ID))
			counts.Skipped++
			continue
		}

		first, last := SplitName(c.Name)

		if opts.DryRun {
			counts.Created++
			continue
		}

		remoteID, err := p.pushOne(ctx, c, first, last)
		if err != nil {
			log.Error("contactsync: push failed",
				zap.Int64("contact_id", c.ID),
				zap.String("remote_id", remoteID),
				zap.Error(err),
			)
			counts.Failed++
			continue
		}

		log.Debug("contactsync: pushed contact",
			zap.Int64("contact_id", c.ID),
			zap.String("remote_id", remoteID),
		)
		counts.Created++
	}

	log.Info("contactsync: push complete",
		zap.Int("created", counts.Created),
		zap.Int("skipped", counts.Skipped),
		zap.Int("failed", counts.Failed),
	)
	return counts, nil
}

// pushOne returns the remote id whenever the remote contact was created,
// even if a later step failed.
// TODO: delete the remote contact when linking the email or saving locally
// fails, so a retry does not leave a duplicate in sevDesk.
func (p *Pusher) pushOne(ctx context.Context, c *model.Contact, first, last string) (string, error) {
	remoteID, err := p.client.CreateContactPerson(ctx, first, last)
	if err != nil {
		return "", eris.Wrap(err, "contactsync: create remote contact")
	}

	if err := p.client.CreateCommunicationEmail(ctx, remoteID, NormalizeEmail(c.Email), true); err != nil {
		return remoteID, eris.Wrap(err, "contactsync: create remote email")
	}

	linked := *c
	linked.RemoteID = &remoteID
	if err := p.store.UpdateContact(ctx, &linked); err != nil {
		return remoteID, eris.Wrap(err, "contactsync: save remote id")
	}
	return remoteID, nil
}
