package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	var all, daemon bool
	var from, to, every string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Export events of one or all accounts to JSON files",
		Long: `Export events to JSON files in the output directory.

Without --all the selected account is exported to <output_dir>/<account>.json.
With --all every account that has credentials is exported and the merged,
time-ordered list is written to <output_dir>/combined.json. --every (or
--daemon with sync_schedule) repeats the export on a cron schedule until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := parseDateRange(from, to, a.loc, a.now())
			if err != nil {
				return err
			}
			if daemon && every == "" {
				every = a.config.SyncSchedule
				if every == "" {
					return fmt.Errorf("%w: --daemon needs sync_schedule in the config or --every", ErrUsage)
				}
			}

			name := ""
			if !all {
				if name, err = a.account(); err != nil {
					return err
				}
			}

			syncer := a.newSyncer()
			runOnce := func(ctx context.Context) error {
				if all {
					doc, err := syncer.SyncAll(ctx, a.config.AccountNames(), rng)
					if err != nil {
						return err
					}
					if a.jsonOut {
						return a.printJSON(doc)
					}
					fmt.Fprintf(a.out, "✅ Synced %d events from accounts %v to %s\n", doc.TotalEvents, doc.Accounts, syncer.combinedPath())
					return nil
				}
				doc, err := syncer.SyncAccount(ctx, name, rng)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(doc)
				}
				fmt.Fprintf(a.out, "✅ Synced %d events (%s – %s) for %s to %s\n",
					doc.TotalEvents, doc.Range.From, doc.Range.To, name, syncer.accountPath(name))
				return nil
			}

			if every == "" {
				return runOnce(cmd.Context())
			}
			if err := runOnce(cmd.Context()); err != nil {
				return err
			}
			return runScheduled(cmd.Context(), every, func(ctx context.Context) {
				if err := runOnce(ctx); err != nil {
					log.Error().Err(err).Msg("scheduled sync failed")
				}
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Sync every account with credentials and write the combined file")
	cmd.Flags().StringVar(&from, "from", "", "Range start (YYYY-MM-DD); default today - sync_window_days")
	cmd.Flags().StringVar(&to, "to", "", "Range end, exclusive (YYYY-MM-DD); default today + sync_window_days")
	cmd.Flags().StringVar(&every, "every", "", "Cron spec to repeat the sync, e.g. \"*/30 * * * *\"")
	cmd.Flags().BoolVar(&daemon, "daemon", false, "Repeat the sync on the configured sync_schedule")
	return cmd
}
