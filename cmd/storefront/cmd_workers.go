package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storefront-go/storefront/internal/server"
	"github.com/storefront-go/storefront/pkg/logger"
)

// storefront queue:work
func (c *cli) queueWorkCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "queue:work",
		Short: "Start the queue worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if workers > 0 {
				c.cfg.Queue.Workers = workers
			}
			app, err := server.Boot(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.StartWorkers(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			app.Queue.Wait()
			logger.Info("queue worker stopped")
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
	return cmd
}

// storefront schedule:run
func (c *cli) scheduleRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule:run",
		Short: "Start the task scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.Boot(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			sched, err := app.Scheduler()
			if err != nil {
				return err
			}
			for _, e := range sched.Entries() {
				logger.Info("schedule: registered", "task", e.Name, "spec", e.Spec)
			}
			sched.Start(ctx)
			return nil
		},
	}
}

// storefront sales:sweep runs one sweep and the resumes it queued in this
// process, for cron setups without a long-running worker.
func (c *cli) salesSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sales:sweep",
		Short: "Retry every stalled sale once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := server.Boot(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			queued, err := app.Sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			ran := app.Queue.Drain(ctx)
			logger.Info("sales: sweep done", "queued", queued, "ran", ran)
			return nil
		},
	}
}
