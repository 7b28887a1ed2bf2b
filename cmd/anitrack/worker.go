package main

import (
	"os/signal"
	"syscall"

	"anitrack/internal/container"

	"github.com/spf13/cobra"
)

var workerOnce bool

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "process due reminders once and exit")
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the reminder worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := container.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		if workerOnce {
			n, err := c.Services.Worker.ProcessDue(ctx)
			if err != nil {
				return err
			}
			c.Logger.WithField("processed", n).Info("Reminder run complete")
			return nil
		}

		c.Services.Worker.Run(ctx)
		return nil
	},
}
