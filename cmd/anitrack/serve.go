package main

import (
	"context"
	"os/signal"
	"syscall"

	"anitrack/internal/container"
	"anitrack/internal/handlers"
	"anitrack/internal/server"

	"github.com/spf13/cobra"
)

var noWorker bool

func init() {
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not run the reminder worker in this process")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reminder worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := server.New(cfg, handlers.New(c.Services, c.Hub, c.Logger), c.Logger)

	if !noWorker {
		go c.Services.Worker.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
