package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/warpmetrics/warp-coder/internal/scheduler"
)

func newWatchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the scheduler until shutdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// First signal: stop polling and wait for in-flight work.
			// Second signal: force exit.
			sigCh := make(chan os.Signal, 2)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				a.log.Info("shutting down, waiting for in-flight work (signal again to force)")
				cancel()
				<-sigCh
				a.log.Warn("forced exit")
				os.Exit(130)
			}()

			sched := scheduler.New(scheduler.Options{
				Config:   a.cfg,
				Secrets:  a.secrets,
				Graph:    a.graph,
				Registry: a.registry,
				Clients:  a.clients,
				Board:    a.board,
				Log:      a.log,
			})
			return sched.Run(ctx)
		},
	}
}
