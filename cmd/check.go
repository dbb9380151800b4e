package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify sevDesk credentials and store connectivity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := initSevDesk()
		if err != nil {
			return err
		}

		baseURL := cfg.SevDesk.BaseURL

		n, err := client.Ping(ctx)
		if err != nil {
			fmt.Fprintf(os.Stdout, "sevDesk %s: FAILED: %v\n", baseURL, err)
			return eris.Wrap(err, "check sevdesk")
		}
		fmt.Fprintf(os.Stdout, "sevDesk %s: ok (%d contact(s) returned)\n", baseURL, n)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stdout, "store %s: FAILED: %v\n", cfg.Store.Driver, err)
			return eris.Wrap(err, "check store")
		}
		fmt.Fprintf(os.Stdout, "store %s: ok\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
