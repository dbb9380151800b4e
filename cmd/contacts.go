package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/contact-sync/internal/model"
	"github.com/sells-group/contact-sync/internal/store"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Inspect the local contact store",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local contacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		query, _ := cmd.Flags().GetString("query")
		unlinked, _ := cmd.Flags().GetBool("unlinked")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		contacts, err := st.ListContacts(ctx, store.ContactFilter{
			Query:           query,
			WithoutRemoteID: unlinked,
			Limit:           limit,
			Offset:          offset,
		})
		if err != nil {
			return eris.Wrap(err, "contacts list")
		}

		if len(contacts) == 0 {
			fmt.Fprintln(os.Stderr, "No contacts found.")
			return nil
		}

		formatContactsList(os.Stdout, contacts)
		return nil
	},
}

func init() {
	contactsListCmd.Flags().String("query", "", "match name or email substring")
	contactsListCmd.Flags().Bool("unlinked", false, "only contacts without a sevDesk id")
	contactsListCmd.Flags().Int("limit", 50, "max number of contacts to display")
	contactsListCmd.Flags().Int("offset", 0, "number of contacts to skip")

	contactsCmd.AddCommand(contactsListCmd)
	rootCmd.AddCommand(contactsCmd)
}

// formatContactsList writes a tabular list of contacts to w.
func formatContactsList(out io.Writer, contacts []model.Contact) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREMOTE_ID\tNAME\tEMAIL\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t---------\t----\t-----\t-------")

	for _, c := range contacts {
		remote := c.RemoteIDString()
		if remote == "" {
			remote = "-"
		}

		name := c.Name
		if r := []rune(name); len(r) > 30 {
			name = string(r[:27]) + "..."
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			c.ID,
			remote,
			name,
			c.Email,
			c.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
