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
	"github.com/sells-group/contact-sync/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull sevDesk contacts into the local store",
	Long:  "Reads every sevDesk contact, resolves its email and upserts it locally by remote id, then by email. With --dry-run nothing is written.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := contactsync.PullOptions{
			PageSize: cfg.Sync.PageSize,
			MaxPages: cfg.Sync.MaxPages,
		}
		if cmd.Flags().Changed("limit") {
			opts.PageSize, _ = cmd.Flags().GetInt("limit")
		}
		if cmd.Flags().Changed("max-pages") {
			opts.MaxPages, _ = cmd.Flags().GetInt("max-pages")
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

		zap.L().Info("sync starting",
			zap.String("command", "sync"),
			zap.Int("page_size", opts.PageSize),
			zap.Int("max_pages", opts.MaxPages),
			zap.Bool("dry_run", opts.DryRun),
		)

		puller := contactsync.NewPuller(client, st)
		runID, counts, err := recordRun(ctx, st, model.RunKindPull, opts.DryRun, func(ctx context.Context) (model.SyncCounts, error) {
			return puller.Pull(ctx, opts)
		})
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		return writeReport(os.Stdout, newSyncReport(model.RunKindPull, runID, counts, opts.DryRun), format)
	},
}

func init() {
	syncCmd.Flags().Int("limit", 100, "page size for sevDesk requests")
	syncCmd.Flags().Int("max-pages", 50, "max pages to read per collection")
	syncCmd.Flags().Bool("dry-run", false, "report what would change without writing")
	syncCmd.Flags().String("format", "text", "report format (text, json, yaml)")
	rootCmd.AddCommand(syncCmd)
}

// recordRun executes fn and, outside dry-run mode, records it as a sync run.
// The run's own error takes precedence over a failure to record it.
func recordRun(ctx context.Context, st store.Store, kind model.RunKind, dryRun bool, fn func(context.Context) (model.SyncCounts, error)) (string, model.SyncCounts, error) {
	if dryRun {
		counts, err := fn(ctx)
		return "", counts, err
	}

	run, err := st.CreateRun(ctx, kind)
	if err != nil {
		return "", model.SyncCounts{}, eris.Wrap(err, "create run")
	}

	counts, runErr := fn(ctx)

	// Record the outcome even when the command context was canceled.
	if err := st.FinishRun(context.WithoutCancel(ctx), run.ID, counts, runErr); err != nil {
		if runErr != nil {
			zap.L().Error("failed to record run", zap.String("run_id", run.ID), zap.Error(err))
			return run.ID, counts, runErr
		}
		return run.ID, counts, eris.Wrap(err, "finish run")
	}
	return run.ID, counts, runErr
}
