package contactsync

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-sync/pkg/sevdesk"
)

// EmailIndex maps a remote contact id to the first valid email address
// found among its communication ways.
type EmailIndex map[string]string

// Lookup returns the indexed email for a remote contact id.
func (idx EmailIndex) Lookup(remoteID string) (string, bool) {
	if remoteID == "" {
		return "", false
	}
	email, ok := idx[remoteID]
	return email, ok
}

const communicationTypeEmail = "EMAIL"

// BuildEmailIndex pages through all communication ways and keeps the first
// valid email per contact. Paging stops at maxPages or the first empty page.
func BuildEmailIndex(ctx context.Context, client sevdesk.Client, pageSize, maxPages int) (EmailIndex, error) {
	pageSize = max(pageSize, 1)
	maxPages = max(maxPages, 1)

	idx := make(EmailIndex)
	var scanned int
	for page := 0; page < maxPages; page++ {
		rows, err := client.ListCommunicationWays(ctx, pageSize, page*pageSize)
		if err != nil {
			return nil, eris.Wrapf(err, "contactsync: list communication ways page %d", page)
		}
		if len(rows) == 0 {
			break
		}
		scanned += len(rows)

		for _, row := range rows {
			if strings.ToUpper(row.String("type")) != communicationTypeEmail {
				continue
			}
			contactID := row.Nested("contact", "id")
			if contactID == "" {
				continue
			}
			email := NormalizeEmail(row.String("value"))
			if !ValidEmail(email) {
				continue
			}
			if _, exists := idx[contactID]; !exists {
				idx[contactID] = email
			}
		}
	}

	zap.L().Debug("contactsync: email index built",
		zap.Int("communication_ways", scanned),
		zap.Int("contacts", len(idx)),
	)
	return idx, nil
}
