package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process rows continuously inside the configured active hours",
	Long:  "Runs the scheduler loop: one row per jittered interval on active days and hours, idling outside them. Stops on SIGINT/SIGTERM or a fatal error.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initOutreach(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sched, err := newScheduler(env.Processor)
		if err != nil {
			return err
		}

		if err := sched.Run(ctx); err != nil {
			return err
		}
		zap.L().Info("outreach stopped")
		return nil
	},
}

func newScheduler(proc scheduler.Processor) (*scheduler.Scheduler, error) {
	window, err := scheduler.WindowFromConfig(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	return scheduler.New(proc, window, cfg.Schedule), nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
