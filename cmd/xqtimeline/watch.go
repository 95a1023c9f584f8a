package main

import (
	"context"

	"github.com/spf13/cobra"
	"xqtimeline/pkg/schedule"
	"xqtimeline/pkg/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Fetch on a cron schedule until interrupted",
	Long: `Run the fetch batch on a cron schedule (standard five-field syntax) until
the process receives SIGINT or SIGTERM. Each run opens and closes its own
browser session. A run that is still going when the next tick fires makes
that tick be skipped. Failed runs are logged and the watcher keeps going.`,
	Example: `  # Every six hours (the default)
  xqtimeline watch

  # Every 30 minutes, starting with an immediate run
  xqtimeline watch --cron "*/30 * * * *" --run-on-start`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addBatchFlags(watchCmd)
	watchCmd.Flags().String("cron", "", "cron expression (default \"0 */6 * * *\")")
	watchCmd.Flags().Bool("run-on-start", false, "run once immediately before following the schedule")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ui.PrintInfo("Schedule", cfg.Schedule.Cron)
	ui.PrintInfo("Accounts", cfg.Accounts.File)

	job := func(ctx context.Context) error {
		report, err := runBatch(ctx, cfg, log)
		if report != nil {
			printReport(report)
		}
		return err
	}

	err = schedule.Watch(cmd.Context(), cfg.Schedule.Cron, job,
		schedule.WithRunOnStart(cfg.Schedule.RunOnStart),
		schedule.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Error("Watch stopped")
		return err
	}

	ui.PrintSuccess("Watcher stopped")
	return nil
}
