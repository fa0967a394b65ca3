package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/melih/dockerbar/internal/adapters/console"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow container changes and action results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			_, notifications, err := a.Hub.Subscribe()
			if err != nil {
				return err
			}
			done := runInBackground(ctx, a)

			console.NewWatcher(cmd.OutOrStdout()).Follow(ctx, notifications)
			<-done
			return nil
		},
	}
}
