package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-sync/internal/contactsync"
	"github.com/sells-group/contact-sync/internal/model"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Create sevDesk contacts for unlinked local contacts",
	Long:  "Creates a sevDesk person and main email for each local contact without a remote id, then stores the new remote id. Failures are counted per contact.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := contactsync.PushOptions{Limit: cfg.Push.Limit}
		if cmd.Flags().Changed("limit") {
			opts.Limit, _ = cmd.Flags().GetInt("limit")
		}
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		format, _ := cmd.Flags().GetString("format")

		client, err := initSevDesk()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("push starting",
			zap.String("command", "push"),
			zap.Int("limit", opts.Limit),
			zap.Bool("dry_run", opts.DryRun),
		)

		pusher := contactsync.NewPusher(client, st)
		runID, counts, err := recordRun(ctx, st, model.RunKindPush, opts.DryRun, func(ctx context.Context) (model.SyncCounts, error) {
			return pusher.Push(ctx, opts)
		})
		if err != nil {
			return eris.Wrap(err, "push")
		}

		return writeReport(os.Stdout, newSyncReport(model.RunKindPush, runID, counts, opts.DryRun), format)
	},
}

func init() {
	pushCmd.Flags().Int("limit", 100, "max number of local contacts to push")
	pushCmd.Flags().Bool("dry-run", false, "report what would be created without calling sevDesk")
	pushCmd.Flags().String("format", "text", "report format (text, json, yaml)")
	rootCmd.AddCommand(pushCmd)
}
